// Package integrity is the read-only analytics pipeline (spec.md
// §4.5): it never mutates authority state, only consumes the event
// stream the authority already publishes through its Outbox and turns
// it into behavior metrics and rule-based abuse/collusion signals.
package integrity

import (
	"sync"

	"github.com/pokerauthority/core/pkg/protocol"
)

// EventKind enumerates the integrity pipeline's own event vocabulary,
// distinct from protocol.EventType: these carry the derived context
// (position, facing-bet, heads-up) the metrics/detectors need, mirroring
// how a hand-history parser annotates each action with VPIP/PFR/position
// flags before any statistics are computed over it.
type EventKind string

const (
	KindHandStarted    EventKind = "hand-started"
	KindActionTaken    EventKind = "action-taken"
	KindShowdown       EventKind = "showdown"
	KindPotAwarded     EventKind = "pot-awarded"
	KindAuthorityPause EventKind = "authority-pause"
	KindConfigChange   EventKind = "config-change"
	KindPlayerKicked   EventKind = "player-kicked"
)

// Position buckets a seat's preflop position for positional-VPIP deltas.
type Position string

const (
	PositionEarly Position = "early"
	PositionLate  Position = "late"
)

// Event is one immutable integrity record. Only the fields relevant to
// Kind are meaningful; the rest are left at their zero value, the same
// tagged-variant discipline protocol.Event uses.
type Event struct {
	Kind      EventKind
	TableID   string
	HandID    string
	PlayerID  string // primary actor; empty for table-scoped events
	Timestamp int64  // unix millis

	// hand-started
	Players []string // every seated player, in seat order, for this hand

	// action-taken
	Action      protocol.ActionType
	Amount      int64
	Street      string
	Position    Position
	FacingBet   bool // there was a bet/raise pending when this action was taken
	FacingRaise bool // specifically facing a raise (three-bet / fold-to-3bet context)
	ThinkTimeMs int64
	HeadsUp     bool
	OpponentID  string // the seat currently in the hand against PlayerID, when heads-up

	// showdown / pot-awarded
	Won          bool
	WinnerID     string
	Contributors []string // every player who put chips into the awarded pot

	// authority-pause / config-change / player-kicked
	FacingAction bool  // authority paused while a player had a pending decision
	RecentNetWin int64 // player-kicked: the kicked player's recent net win
}

// Collector is the append-only, immutable event store (spec.md §4.5
// "must not expose mutation of previously recorded events"): every
// accessor returns copies, never pointers into the backing slice.
type Collector struct {
	mu       sync.Mutex
	events   []Event
	byHand   map[string][]int
	byPlayer map[string][]int
	byType   map[EventKind][]int
}

func NewCollector() *Collector {
	return &Collector{
		byHand:   make(map[string][]int),
		byPlayer: make(map[string][]int),
		byType:   make(map[EventKind][]int),
	}
}

// Record appends e, indexing it by hand, player, and kind.
func (c *Collector) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.events)
	c.events = append(c.events, e)
	if e.HandID != "" {
		c.byHand[e.HandID] = append(c.byHand[e.HandID], idx)
	}
	if e.PlayerID != "" {
		c.byPlayer[e.PlayerID] = append(c.byPlayer[e.PlayerID], idx)
	}
	c.byType[e.Kind] = append(c.byType[e.Kind], idx)
}

// All returns every recorded event, oldest first.
func (c *Collector) All() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ByHand returns the events recorded for handID, in recording order.
func (c *Collector) ByHand(handID string) []Event {
	return c.collect(c.byHand[handID])
}

// ByPlayer returns the events where playerID was the primary actor.
func (c *Collector) ByPlayer(playerID string) []Event {
	return c.collect(c.byPlayer[playerID])
}

// ByType returns every event of kind.
func (c *Collector) ByType(kind EventKind) []Event {
	return c.collect(c.byType[kind])
}

// ByTimeRange returns events with Timestamp in [start, end].
func (c *Collector) ByTimeRange(start, end int64) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Timestamp >= start && e.Timestamp <= end {
			out = append(out, e)
		}
	}
	return out
}

func (c *Collector) collect(indices []int) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(indices))
	for _, i := range indices {
		out = append(out, c.events[i])
	}
	return out
}
