package integrity

import (
	"strconv"

	"github.com/pokerauthority/core/pkg/protocol"
)

// tableCursor is the adapter's running per-table bookkeeping: just
// enough derived context (street, who has acted aggressively, heads-up
// arithmetic) to annotate each action-performed event the way a
// hand-history parser would, without the adapter itself needing to
// replay full table/seat state.
type tableCursor struct {
	handID       string
	street       string
	players      []string
	betsThisStreet int
	lastTimestamp  int64
}

func (c *tableCursor) isHeadsUp() bool { return len(c.players) == 2 }

func (c *tableCursor) positionOf(playerID string) Position {
	for i, p := range c.players {
		if p == playerID {
			if i < len(c.players)/2 {
				return PositionEarly
			}
			return PositionLate
		}
	}
	return PositionLate
}

func (c *tableCursor) opponentOf(playerID string) string {
	if !c.isHeadsUp() {
		return ""
	}
	for _, p := range c.players {
		if p != playerID {
			return p
		}
	}
	return ""
}

// FromAuthorityEvents translates the authority's published wire events
// into the integrity pipeline's own annotated event vocabulary. It is
// the only place that understands both taxonomies; everything
// downstream (Compute, the detectors) only ever sees integrity.Event.
//
// The adapter is a pure function of the event slice: calling it twice
// on the same input produces identical output, since it derives every
// annotation (street, facing-bet, position, heads-up) solely from
// events already seen earlier in the same slice.
func FromAuthorityEvents(events []protocol.Event) []Event {
	cursors := make(map[string]*tableCursor) // tableID -> cursor
	out := make([]Event, 0, len(events))

	for _, e := range events {
		cur, ok := cursors[e.TableID]
		if !ok {
			cur = &tableCursor{}
			cursors[e.TableID] = cur
		}

		switch e.Type {
		case protocol.EventHandStarted:
			if e.HandStarted == nil {
				continue
			}
			cur.handID = handIDFor(e.TableID, e.HandStarted.HandNumber)
			cur.street = "preflop"
			cur.players = append([]string(nil), e.HandStarted.Players...)
			cur.betsThisStreet = 1 // the big blind counts as a live bet preflop
			cur.lastTimestamp = e.Header.Timestamp
			out = append(out, Event{
				Kind: KindHandStarted, TableID: e.TableID, HandID: cur.handID,
				Timestamp: e.Header.Timestamp, Players: append([]string(nil), cur.players...),
			})

		case protocol.EventActionPerformed:
			if e.ActionPerformed == nil {
				continue
			}
			p := e.ActionPerformed
			facingBet := cur.betsThisStreet > 0
			facingRaise := cur.betsThisStreet > 1
			thinkTime := int64(0)
			if cur.lastTimestamp > 0 && e.Header.Timestamp > cur.lastTimestamp {
				thinkTime = e.Header.Timestamp - cur.lastTimestamp
			}
			cur.lastTimestamp = e.Header.Timestamp

			if p.Action.Type == protocol.ActionBet || p.Action.Type == protocol.ActionRaise || p.Action.Type == protocol.ActionAllIn {
				cur.betsThisStreet++
			}

			out = append(out, Event{
				Kind: KindActionTaken, TableID: e.TableID, HandID: cur.handID,
				PlayerID: p.PlayerID, Timestamp: e.Header.Timestamp,
				Action: p.Action.Type, Amount: p.Action.Amount, Street: cur.street,
				Position: cur.positionOf(p.PlayerID), FacingBet: facingBet, FacingRaise: facingRaise,
				ThinkTimeMs: thinkTime, HeadsUp: cur.isHeadsUp(), OpponentID: cur.opponentOf(p.PlayerID),
			})

		case protocol.EventStreetChanged:
			if e.StreetChanged == nil {
				continue
			}
			cur.street = e.StreetChanged.Street
			cur.betsThisStreet = 0

		case protocol.EventHandEnded:
			if e.HandEnded == nil {
				continue
			}
			contributors := append([]string(nil), cur.players...)
			for _, w := range e.HandEnded.Winners {
				out = append(out, Event{
					Kind: KindShowdown, TableID: e.TableID, HandID: cur.handID,
					PlayerID: w.PlayerID, Timestamp: e.Header.Timestamp,
					Won: true, WinnerID: w.PlayerID, HeadsUp: cur.isHeadsUp(),
				})
				out = append(out, Event{
					Kind: KindPotAwarded, TableID: e.TableID, HandID: cur.handID,
					Timestamp: e.Header.Timestamp, WinnerID: w.PlayerID,
					Amount: w.Amount, Contributors: contributors,
				})
			}
		}
	}

	return out
}

func handIDFor(tableID string, handNumber int64) string {
	return tableID + "-hand-" + strconv.FormatInt(handNumber, 10)
}
