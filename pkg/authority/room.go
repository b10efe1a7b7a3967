// Package authority is the single writer of game state (spec.md
// §4.1). A Room owns one or more tables; its processIntent method is
// the only entry point that mutates them. Per spec.md §5, a Room is
// meant to be driven by exactly one logical serializer — no two
// intents for the same room are ever processed concurrently — so
// internal locking exists only as a defensive guard, not as the
// primary correctness mechanism.
package authority

import (
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/pokerauthority/core/pkg/clock"
	"github.com/pokerauthority/core/pkg/economy"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
	"github.com/pokerauthority/core/pkg/session"
)

// RoomConfig configures blind levels, buy-in bounds, and timing
// (spec.md §3 "Room").
type RoomConfig struct {
	SmallBlind      int64
	BigBlind        int64
	MinBuyIn        int64
	MaxBuyIn        int64
	MaxSeats        int
	ActionTimeout   time.Duration
	DisconnectGrace time.Duration
	AutoStartDelay  time.Duration
}

// Room is a container of tables plus membership sets (spec.md §3).
type Room struct {
	mu sync.Mutex

	ID     string
	Config RoomConfig
	Open   bool

	Tables map[string]*poker.Table

	Economy   *economy.EconomyEngine
	Evaluator poker.HandEvaluator
	Sessions  *session.Manager
	Clock     clock.Clock
	RNG       *rand.Rand
	Outbox    *Outbox
	log       slog.Logger

	members     map[string]bool // playerId -> present (player or spectator)
	spectators  map[string]bool
	handCounter map[string]int64 // tableId -> hands played
}

// NewRoom constructs an open room with no tables yet.
func NewRoom(id string, cfg RoomConfig, econ *economy.EconomyEngine, evaluator poker.HandEvaluator, sessions *session.Manager, clk clock.Clock, rng *rand.Rand) *Room {
	return &Room{
		ID:          id,
		Config:      cfg,
		Open:        true,
		Tables:      make(map[string]*poker.Table),
		Economy:     econ,
		Evaluator:   evaluator,
		Sessions:    sessions,
		Clock:       clk,
		RNG:         rng,
		Outbox:      NewOutbox(),
		log:         slog.Disabled,
		members:     make(map[string]bool),
		spectators:  make(map[string]bool),
		handCounter: make(map[string]int64),
	}
}

// SetLogger wires a subsystem logger into the room, following the
// teacher's log-field-injection idiom. Rooms constructed without
// calling this log nowhere (slog.Disabled).
func (r *Room) SetLogger(log slog.Logger) {
	r.log = log
}

// AddTable registers a table the room owns.
func (r *Room) AddTable(t *poker.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tables[t.ID] = t
}

// ProcessIntent is the Authority's single public contract (spec.md §4.1).
func (r *Room) ProcessIntent(intent protocol.Intent) ([]protocol.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Open {
		return nil, protocol.NewReject(protocol.CodeRoomClosed, "room is closed", nil)
	}

	sess, err := r.Sessions.ValidateSession(intent.SessionID)
	if err != nil {
		return nil, err
	}

	var table *poker.Table
	if intent.Table != nil {
		table = r.Tables[intent.Table.TableID]
		if table == nil {
			return nil, protocol.NewReject(protocol.CodeInvalidTableID, "unknown table", nil)
		}
		if table.Halted {
			return nil, protocol.NewReject(protocol.CodeTableHalted, "table halted: "+table.HaltReason, nil)
		}
		if intent.Table.Sequence < table.Sequence {
			return nil, protocol.NewReject(protocol.CodeStaleIntent, "intent sequence behind table sequence", nil)
		}
		if intent.Table.Sequence > table.Sequence {
			return nil, protocol.NewReject(protocol.CodeSequenceMismatch, "intent sequence ahead of table sequence", nil)
		}
		if intent.Type == protocol.IntentPlayerAction && intent.Table.HandID != table.HandID {
			return nil, protocol.NewReject(protocol.CodeInvalidHandID, "hand id does not match active hand", nil)
		}
	}

	var events []protocol.Event
	switch intent.Type {
	case protocol.IntentJoinRoom:
		events, err = r.handleJoinRoom(sess, intent)
	case protocol.IntentLeaveRoom:
		events, err = r.handleLeaveRoom(sess, intent)
	case protocol.IntentTakeSeat:
		events, err = r.handleTakeSeat(sess, table, intent)
	case protocol.IntentLeaveSeat:
		events, err = r.handleLeaveSeat(sess, table)
	case protocol.IntentStandUp:
		events, err = r.handleStandUp(sess, table)
	case protocol.IntentSitBack:
		events, err = r.handleSitBack(sess, table)
	case protocol.IntentPlayerAction:
		events, err = r.handlePlayerAction(sess, table, intent)
	case protocol.IntentHeartbeat:
		events, err = r.handleHeartbeat(sess, intent)
	case protocol.IntentRequestSync:
		// Sync response generation lives in the sync package, which
		// composes over this room's table state; the authority itself
		// only validates sequence, already done above.
		events = nil
	default:
		return nil, protocol.NewReject(protocol.CodeInternal, "unrecognized intent type", nil)
	}
	if err != nil {
		if fault, ok := err.(*protocol.IntegrityFault); ok {
			if table != nil {
				table.Halt(fault.Reason)
			}
			r.log.Errorf("ProcessIntent: room=%s type=%v integrity fault, halting table: %v", r.ID, intent.Type, err)
			return nil, err
		}
		r.log.Debugf("ProcessIntent: room=%s type=%v rejected: %v", r.ID, intent.Type, err)
		return nil, err
	}

	if table != nil {
		table.Sequence++
	}
	for i := range events {
		events[i].Header.Sequence = tableSeq(table)
	}
	r.Outbox.Publish(events...)
	return events, nil
}

func tableSeq(t *poker.Table) int64 {
	if t == nil {
		return 0
	}
	return t.Sequence
}

func (r *Room) handleJoinRoom(sess *session.Session, intent protocol.Intent) ([]protocol.Event, error) {
	if r.members[sess.PlayerID] {
		return nil, protocol.NewReject(protocol.CodeAlreadyInRoom, "already a member of this room", nil)
	}
	r.members[sess.PlayerID] = true
	if intent.AsSpectator {
		r.spectators[sess.PlayerID] = true
	}
	r.Sessions.SetTableContext(sess.ID, r.ID, "", -1)
	return []protocol.Event{{Type: protocol.EventRoomJoined, PlayerID: sess.PlayerID}}, nil
}

func (r *Room) handleLeaveRoom(sess *session.Session, intent protocol.Intent) ([]protocol.Event, error) {
	if !r.members[sess.PlayerID] {
		return nil, protocol.NewReject(protocol.CodeNotInRoom, "not a member of this room", nil)
	}
	delete(r.members, sess.PlayerID)
	delete(r.spectators, sess.PlayerID)
	for _, t := range r.Tables {
		if seat := t.SeatOf(sess.PlayerID); seat != nil {
			r.vacateSeat(t, seat)
		}
	}
	return []protocol.Event{{Type: protocol.EventRoomLeft, PlayerID: sess.PlayerID}}, nil
}
