package authority

import (
	"fmt"

	"github.com/pokerauthority/core/pkg/economy"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
)

// CanStartHand reports whether table has at least two seats able to
// play with chips in front of them (spec.md §4.1 "canStartHand").
func CanStartHand(table *poker.Table) bool {
	count := 0
	for i := range table.Seats {
		s := &table.Seats[i]
		if s.IsOccupied() && s.Status != poker.SeatSittingOut && s.Status != poker.SeatEmpty && s.Stack > 0 {
			count++
		}
	}
	return count >= 2
}

// StartHand drives the waiting -> preflop transition: rotates the
// dealer, derives blind seats (heads-up dealer-posts-SB exception),
// deals hole cards via the room's injected RNG, and posts blinds.
// It is not triggered by a client intent; the owning serializer
// invokes it directly once canStartHand holds, mirroring spec.md §5's
// "timers are delivered as scheduled messages back into the owning
// serializer" rule — there is no client-facing "start hand" intent.
func (r *Room) StartHand(tableID string) ([]protocol.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.Tables[tableID]
	if !ok {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, "unknown table", nil)
	}
	if !CanStartHand(table) {
		return nil, protocol.NewReject(protocol.CodeHandNotActive, "not enough eligible seats to start a hand", nil)
	}

	playable := playableSeatIndices(table)
	table.DealerSeat = nextDealerSeat(table, playable)

	sbSeat, bbSeat := blindSeats(table, playable)

	r.handCounter[tableID]++
	table.HandID = fmt.Sprintf("%s-hand-%d", tableID, r.handCounter[tableID])
	table.Street = poker.StreetPreflop
	table.CommunityCards = nil
	table.Pot = 0

	for i := range table.Seats {
		s := &table.Seats[i]
		if s.IsOccupied() && s.Status != poker.SeatSittingOut {
			s.Status = poker.SeatActive
			s.CurrentBet = 0
			s.TotalBetThisHand = 0
			s.HoleCards = nil
			s.IsDealer = s.Index == table.DealerSeat
		}
	}

	deck := poker.NewDeck(r.RNG)
	for i := 0; i < 2; i++ {
		for _, idx := range playable {
			seat := table.SeatAt(idx)
			card, ok := deck.Draw()
			if !ok {
				return nil, &protocol.IntegrityFault{Component: "authority", Reason: "deck exhausted while dealing hole cards"}
			}
			seat.HoleCards = append(seat.HoleCards, card)
		}
	}

	r.Economy.StartHand(table.HandID)

	ts := timeToMs(r.Clock.Now())
	blinds := map[string]int64{}
	sbSeatPtr := table.SeatAt(sbSeat)
	bbSeatPtr := table.SeatAt(bbSeat)
	sbAmount := postBlind(sbSeatPtr, r.Config.SmallBlind)
	bbAmount := postBlind(bbSeatPtr, r.Config.BigBlind)
	blinds[sbSeatPtr.PlayerID] = sbAmount
	blinds[bbSeatPtr.PlayerID] = bbAmount
	if err := r.Economy.PostBlinds(table.HandID, table.ID, blinds, ts); err != nil {
		return nil, err
	}
	table.Pot += sbAmount + bbAmount

	table.CurrentBet = bbAmount
	table.MinRaise = r.Config.BigBlind
	table.LastRaiserSeat = bbSeat
	table.ActionsThisRound = 0
	table.ActiveSeat = table.NextOccupiedSeat(bbSeat, func(s *poker.Seat) bool { return s.IsActingEligible() })
	if table.ActiveSeat == -1 {
		table.ActiveSeat = bbSeat
	}

	players := make([]string, 0, len(playable))
	for _, idx := range playable {
		players = append(players, table.SeatAt(idx).PlayerID)
	}

	r.log.Infof("StartHand: table=%s hand=%s dealer=%d sb=%d bb=%d players=%v", table.ID, table.HandID, table.DealerSeat, sbSeat, bbSeat, players)

	return []protocol.Event{{
		Type:    protocol.EventHandStarted,
		TableID: table.ID,
		HandStarted: &protocol.HandStartedPayload{
			HandNumber: r.handCounter[tableID],
			DealerSeat: table.DealerSeat,
			SBSeat:     sbSeat,
			BBSeat:     bbSeat,
			Players:    players,
		},
	}}, nil
}

func playableSeatIndices(table *poker.Table) []int {
	var out []int
	for i := range table.Seats {
		s := &table.Seats[i]
		if s.IsOccupied() && s.Status != poker.SeatSittingOut && s.Stack > 0 {
			out = append(out, i)
		}
	}
	return out
}

func nextDealerSeat(table *poker.Table, playable []int) int {
	if len(playable) == 0 {
		return table.DealerSeat
	}
	next := table.NextOccupiedSeat(table.DealerSeat, func(s *poker.Seat) bool {
		return s.IsOccupied() && s.Status != poker.SeatSittingOut && s.Stack > 0
	})
	if next == -1 {
		return playable[0]
	}
	return next
}

// blindSeats derives SB/BB seats with the heads-up exception: with
// exactly two eligible seats, the dealer posts the small blind.
func blindSeats(table *poker.Table, playable []int) (sbSeat, bbSeat int) {
	eligible := func(s *poker.Seat) bool {
		return s.IsOccupied() && s.Status != poker.SeatSittingOut && s.Stack > 0
	}
	if len(playable) == 2 {
		sbSeat = table.DealerSeat
		bbSeat = table.NextOccupiedSeat(sbSeat, eligible)
		return sbSeat, bbSeat
	}
	sbSeat = table.NextOccupiedSeat(table.DealerSeat, eligible)
	bbSeat = table.NextOccupiedSeat(sbSeat, eligible)
	return sbSeat, bbSeat
}

// postBlind debits the seat's stack by amount (capped by the stack;
// an under-stack blind is a legal all-in blind), adds it to the seat's
// CurrentBet and TotalBetThisHand, and returns the amount actually
// posted; the caller credits the pot with that amount.
func postBlind(seat *poker.Seat, amount int64) int64 {
	posted := amount
	if posted > seat.Stack {
		posted = seat.Stack
	}
	seat.Stack -= posted
	seat.CurrentBet += posted
	seat.TotalBetThisHand += posted
	if seat.Stack == 0 {
		seat.Status = poker.SeatAllIn
	}
	return posted
}

// economyRakeInputFor builds the RakeInput context from the hand's
// final state for EconomyEngine.SettleHand.
func economyRakeInputFor(table *poker.Table, playersAtShowdown int) economy.RakeInput {
	return economy.RakeInput{
		ReachedFlop:       table.Street != poker.StreetPreflop || len(table.CommunityCards) > 0,
		PlayersAtShowdown: playersAtShowdown,
		FinalStreet:       string(table.Street),
	}
}
