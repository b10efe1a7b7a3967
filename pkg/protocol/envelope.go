// Package protocol defines the wire-independent intent/event taxonomy
// and the stable reject-code contract (spec.md §6, §7). It owns no
// transport: encoding these types to JSON/binary and framing them on a
// socket is an explicit non-goal left to the embedding application.
package protocol

// Header is carried by every message, client- or server-originated.
type Header struct {
	MessageID string
	Sequence  int64
	Timestamp int64 // unix millis, supplied by the caller, never read from the wall clock here
}

// TableContext scopes an intent to a specific table/hand/sequence.
type TableContext struct {
	TableID  string
	HandID   string // empty when not yet known to the caller
	Sequence int64
}

// IntentType enumerates client -> server intents (spec.md §6).
type IntentType string

const (
	IntentJoinRoom    IntentType = "join-room"
	IntentLeaveRoom   IntentType = "leave-room"
	IntentTakeSeat    IntentType = "take-seat"
	IntentLeaveSeat   IntentType = "leave-seat"
	IntentStandUp     IntentType = "stand-up"
	IntentSitBack     IntentType = "sit-back"
	IntentPlayerAction IntentType = "player-action"
	IntentRequestSync IntentType = "request-sync"
	IntentHeartbeat   IntentType = "heartbeat"
)

// ActionType enumerates the poker actions carried by a player-action intent.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all-in"
)

// Action is the payload of a player-action intent.
type Action struct {
	Type   ActionType
	Amount int64 // meaningful for bet/raise; ignored otherwise
}

// Intent is a single client -> server message. Exactly one of the
// typed payload fields is populated according to Type.
type Intent struct {
	Type      IntentType
	Header    Header
	SessionID string
	Table     *TableContext // nil for room-scoped / session-scoped intents

	RoomID        string // join-room, leave-room
	AsSpectator   bool   // join-room
	SeatIndex     int    // take-seat
	BuyInAmount   int64  // take-seat
	PlayerAction  Action // player-action
	FromSequence  *int64 // request-sync, nil means "no base"
	ClientTime    int64  // heartbeat
}
