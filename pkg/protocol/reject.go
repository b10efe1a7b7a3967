package protocol

import "fmt"

// RejectCode is the stable numeric reject code contract (spec.md §6,
// §7). Codes are grouped by hundreds; additions must preserve existing
// values.
type RejectCode int

const (
	// 1xx connection
	CodeNotConnected RejectCode = 100
	CodeInvalidSession RejectCode = 101
	CodeSessionExpired RejectCode = 102

	// 2xx authorization
	CodeBanned           RejectCode = 200
	CodeNotAuthenticated RejectCode = 201

	// 3xx room
	CodeRoomNotFound   RejectCode = 300
	CodeRoomClosed     RejectCode = 301
	CodeRoomFull       RejectCode = 302
	CodeAlreadyInRoom  RejectCode = 303
	CodeNotInRoom      RejectCode = 304
	CodeBuyInBelowMin  RejectCode = 305
	CodeBuyInAboveMax  RejectCode = 306

	// 4xx seat
	CodeSeatNotFound           RejectCode = 400
	CodeSeatTaken              RejectCode = 401
	CodeAlreadySeated          RejectCode = 402
	CodeNotSeated              RejectCode = 403
	CodeCannotChangeDuringHand RejectCode = 404

	// 5xx action
	CodeNotYourTurn      RejectCode = 500
	CodeIllegalAction    RejectCode = 501
	CodeInsufficientChips RejectCode = 502
	CodeBetTooSmall      RejectCode = 503
	CodeBetTooLarge      RejectCode = 504
	CodeActionTimeout    RejectCode = 505
	CodeHandNotActive    RejectCode = 506

	// 6xx sync
	CodeSequenceMismatch RejectCode = 600
	CodeStaleIntent      RejectCode = 601
	CodeDesync           RejectCode = 602
	CodeInvalidHandID    RejectCode = 603
	CodeInvalidTableID   RejectCode = 604

	// 7xx integrity / financial
	CodeDuplicateSettlement RejectCode = 700
	CodeInsufficientFunds   RejectCode = 701
	CodeNonIntegerAmount    RejectCode = 702
	CodeNegativeAmount      RejectCode = 703

	// 9xx server / general
	CodeInternal     RejectCode = 900
	CodeMaintenance  RejectCode = 901
	CodeRateLimit    RejectCode = 902
	CodeTableHalted  RejectCode = 903
)

// Reject is the typed, explicit result value that replaces throw-based
// validation (spec.md §9). It carries a stable numeric code and is
// never used for unrecoverable invariant violations — those are an
// IntegrityFault instead.
type Reject struct {
	Code    RejectCode
	Reason  string
	Details map[string]string
}

func (r *Reject) Error() string {
	return fmt.Sprintf("reject %d: %s", r.Code, r.Reason)
}

// NewReject constructs a Reject with an optional details map.
func NewReject(code RejectCode, reason string, details map[string]string) *Reject {
	return &Reject{Code: code, Reason: reason, Details: details}
}

// AsReject reports whether err is (or wraps) a *Reject.
func AsReject(err error) (*Reject, bool) {
	r, ok := err.(*Reject)
	return r, ok
}

// IntegrityFault marks an unrecoverable invariant violation (ledger
// chain broken, pot conservation failed, zero-sum violated). It halts
// the affected unit; there is no automatic recovery (spec.md §7).
type IntegrityFault struct {
	Component string
	Reason    string
}

func (f *IntegrityFault) Error() string {
	return fmt.Sprintf("integrity fault in %s: %s", f.Component, f.Reason)
}
