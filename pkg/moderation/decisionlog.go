package moderation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DecisionActionType classifies one moderator decision-log entry.
type DecisionActionType string

const (
	ActionOpenCase          DecisionActionType = "open-case"
	ActionAnnotate          DecisionActionType = "annotate"
	ActionBeginInvestigation DecisionActionType = "begin-investigation"
	ActionSubmitForDecision DecisionActionType = "submit-for-decision"
	ActionResolve           DecisionActionType = "resolve"
	ActionDismiss           DecisionActionType = "dismiss"
	ActionEscalate          DecisionActionType = "escalate"
	ActionReopen            DecisionActionType = "reopen"
	// ActionViewReplay and ActionViewBundle log reads, not writes: §4.6
	// requires every replay/bundle view to leave a decision-log entry
	// even though viewing mutates nothing about the case itself.
	ActionViewReplay DecisionActionType = "view-replay"
	ActionViewBundle DecisionActionType = "view-bundle"
)

// DecisionEntry is one append-only record in the moderator decision
// log (spec.md §4.6), hash-chained the same way economy.LedgerEntry is.
type DecisionEntry struct {
	EntryID      string
	Timestamp    int64
	ModeratorID  string
	ActionType   DecisionActionType
	CaseID       string
	Details      string
	PreviousHash string
	EntryHash    string
}

type decisionCanonicalFields struct {
	EntryID      string
	Timestamp    int64
	ModeratorID  string
	ActionType   DecisionActionType
	CaseID       string
	Details      string
	PreviousHash string
}

func hashDecisionEntry(e DecisionEntry) string {
	cf := decisionCanonicalFields{
		EntryID: e.EntryID, Timestamp: e.Timestamp, ModeratorID: e.ModeratorID,
		ActionType: e.ActionType, CaseID: e.CaseID, Details: e.Details,
		PreviousHash: e.PreviousHash,
	}
	b, _ := json.Marshal(cf)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DecisionLogger is the append-only, hash-chained audit trail of every
// moderator action taken against a case.
type DecisionLogger struct {
	mu      sync.Mutex
	entries []DecisionEntry
}

func NewDecisionLogger() *DecisionLogger { return &DecisionLogger{} }

// Record appends one decision-log entry, auto-filling id and the hash
// chain fields.
func (l *DecisionLogger) Record(moderatorID string, actionType DecisionActionType, caseID, details string, timestamp int64) DecisionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := DecisionEntry{
		EntryID: uuid.NewString(), Timestamp: timestamp, ModeratorID: moderatorID,
		ActionType: actionType, CaseID: caseID, Details: details,
	}
	if len(l.entries) > 0 {
		entry.PreviousHash = l.entries[len(l.entries)-1].EntryHash
	}
	entry.EntryHash = hashDecisionEntry(entry)
	l.entries = append(l.entries, entry)
	return entry
}

// ByCase returns every decision-log entry for caseID, in record order.
func (l *DecisionLogger) ByCase(caseID string) []DecisionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []DecisionEntry
	for _, e := range l.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out
}

// DecisionDivergence describes the first point where the decision
// log's hash chain breaks.
type DecisionDivergence struct {
	Index  int
	Reason string
}

// VerifyIntegrity walks the chain asserting PreviousHash equals the
// predecessor's EntryHash and recomputing each EntryHash from the
// canonical serialization (spec.md §4.6).
func (l *DecisionLogger) VerifyIntegrity() *DecisionDivergence {
	l.mu.Lock()
	defer l.mu.Unlock()
	var previous string
	for i, e := range l.entries {
		if e.PreviousHash != previous {
			return &DecisionDivergence{Index: i, Reason: "previousHash does not match predecessor's entryHash"}
		}
		if hashDecisionEntry(e) != e.EntryHash {
			return &DecisionDivergence{Index: i, Reason: fmt.Sprintf("entryHash does not match canonical fields for entry %s", e.EntryID)}
		}
		previous = e.EntryHash
	}
	return nil
}
