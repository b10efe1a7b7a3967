package authority

import (
	"github.com/pokerauthority/core/pkg/economy"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
	"github.com/pokerauthority/core/pkg/session"
)

func (r *Room) handlePlayerAction(sess *session.Session, table *poker.Table, intent protocol.Intent) ([]protocol.Event, error) {
	if table == nil {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, "player-action requires a table context", nil)
	}
	if table.Street == poker.StreetWaiting || table.Street == poker.StreetComplete {
		return nil, protocol.NewReject(protocol.CodeHandNotActive, "no hand is active", nil)
	}
	seat := table.SeatOf(sess.PlayerID)
	if seat == nil {
		return nil, protocol.NewReject(protocol.CodeNotSeated, "not seated at this table", nil)
	}
	if seat.Index != table.ActiveSeat {
		return nil, protocol.NewReject(protocol.CodeNotYourTurn, "it is not this seat's turn", nil)
	}

	action := intent.PlayerAction
	call := table.CurrentBet - seat.CurrentBet

	var committed int64
	switch action.Type {
	case protocol.ActionFold:
		seat.Status = poker.SeatFolded
		r.Economy.PlayerFolded(table.HandID, seat.PlayerID)

	case protocol.ActionCheck:
		if call != 0 {
			return nil, protocol.NewReject(protocol.CodeIllegalAction, "cannot check facing a bet", nil)
		}

	case protocol.ActionCall:
		if call <= 0 {
			return nil, protocol.NewReject(protocol.CodeIllegalAction, "nothing to call", nil)
		}
		committed = min64(call, seat.Stack)
		applyCommitment(seat, committed)

	case protocol.ActionBet:
		if table.CurrentBet != 0 {
			return nil, protocol.NewReject(protocol.CodeIllegalAction, "cannot bet, a bet is already in front", nil)
		}
		if action.Amount < table.MinRaise {
			return nil, protocol.NewReject(protocol.CodeBetTooSmall, "bet below minimum raise", nil)
		}
		if action.Amount > seat.Stack {
			return nil, protocol.NewReject(protocol.CodeBetTooLarge, "bet exceeds stack", nil)
		}
		committed = action.Amount
		applyCommitment(seat, committed)
		table.CurrentBet = seat.CurrentBet
		table.MinRaise = action.Amount
		table.LastRaiserSeat = seat.Index

	case protocol.ActionRaise:
		if table.CurrentBet == 0 {
			return nil, protocol.NewReject(protocol.CodeIllegalAction, "no bet to raise", nil)
		}
		if action.Amount < table.CurrentBet+table.MinRaise {
			return nil, protocol.NewReject(protocol.CodeBetTooSmall, "raise below minimum raise size", nil)
		}
		needed := action.Amount - seat.CurrentBet
		if needed > seat.Stack {
			return nil, protocol.NewReject(protocol.CodeBetTooLarge, "raise exceeds stack", nil)
		}
		previousBet := table.CurrentBet
		committed = needed
		applyCommitment(seat, committed)
		table.CurrentBet = seat.CurrentBet
		table.MinRaise = action.Amount - previousBet
		table.LastRaiserSeat = seat.Index

	case protocol.ActionAllIn:
		if seat.Stack <= 0 {
			return nil, protocol.NewReject(protocol.CodeIllegalAction, "no chips left to push all-in", nil)
		}
		committed = seat.Stack
		incrementalRaise := seat.CurrentBet + committed - table.CurrentBet
		applyCommitment(seat, committed)
		if seat.CurrentBet > table.CurrentBet {
			table.CurrentBet = seat.CurrentBet
			// Under-min-raise all-in rule (spec.md §4.1, authoritative
			// over the ambiguous source behavior per spec.md §9): only
			// reopens action when the incremental raise meets minRaise.
			if incrementalRaise >= table.MinRaise {
				table.MinRaise = incrementalRaise
				table.LastRaiserSeat = seat.Index
			}
		}

	default:
		return nil, protocol.NewReject(protocol.CodeIllegalAction, "unrecognized action type", nil)
	}

	if seat.Stack == 0 && seat.Status == poker.SeatActive {
		seat.Status = poker.SeatAllIn
	}

	if committed > 0 {
		if err := r.Economy.RecordAction(table.HandID, table.ID, string(table.Street), seat.PlayerID, committed, timeToMs(r.Clock.Now())); err != nil {
			return nil, err
		}
		table.Pot += committed
	}

	events := []protocol.Event{{
		Type:    protocol.EventActionPerformed,
		TableID: table.ID,
		ActionPerformed: &protocol.ActionPerformedPayload{
			PlayerID: seat.PlayerID, SeatIndex: seat.Index, Action: action,
			NewStack: seat.Stack, PotTotal: table.Pot,
		},
	}}

	table.ActionsThisRound++

	contesting := table.ContestingSeats()
	if len(contesting) <= 1 {
		more, err := r.endHandAllFolded(table)
		if err != nil {
			return nil, err
		}
		return append(events, more...), nil
	}

	table.ActiveSeat = table.NextOccupiedSeat(seat.Index, func(s *poker.Seat) bool { return s.IsActingEligible() })

	if roundClosed(table) {
		more, err := r.advanceStreet(table)
		if err != nil {
			return nil, err
		}
		events = append(events, more...)
	}

	return events, nil
}

func applyCommitment(seat *poker.Seat, amount int64) {
	seat.Stack -= amount
	seat.CurrentBet += amount
	seat.TotalBetThisHand += amount
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// roundClosed implements spec.md §4.1's betting-round closure rule:
// every acting seat matches currentBet (or is all-in) and every acting
// seat has had at least one chance to act this round.
func roundClosed(table *poker.Table) bool {
	acting := table.ActingSeats()
	if len(acting) == 0 {
		return true
	}
	for _, idx := range acting {
		s := table.SeatAt(idx)
		if s.CurrentBet != table.CurrentBet {
			return false
		}
	}
	return table.ActionsThisRound >= len(acting)
}

// advanceStreet implements spec.md §4.1's street transition: reset
// per-seat currentBet, clear currentBet/lastRaiserSeat, advance
// street, deal community cards, and reposition activePlayerSeat. If at
// most one acting seat remains, remaining streets are auto-run to
// showdown.
func (r *Room) advanceStreet(table *poker.Table) ([]protocol.Event, error) {
	return r.advanceStreetDispatch(table, false)
}

// advanceStreetDispatch carries forcedAutoRun across the recursive
// auto-run-to-showdown calls so runShowdown can tell an all-in runout
// apart from a showdown reached by normal betting closure.
func (r *Room) advanceStreetDispatch(table *poker.Table, forcedAutoRun bool) ([]protocol.Event, error) {
	for i := range table.Seats {
		table.Seats[i].CurrentBet = 0
	}
	table.CurrentBet = 0
	table.MinRaise = r.Config.BigBlind
	table.LastRaiserSeat = -1
	table.ActionsThisRound = 0

	var events []protocol.Event
	deck := poker.NewDeck(r.RNG)

	dealCommunity := func(n int) {
		for i := 0; i < n; i++ {
			card, ok := deck.Draw()
			if ok {
				table.CommunityCards = append(table.CommunityCards, card)
			}
		}
	}

	switch table.Street {
	case poker.StreetPreflop:
		table.Street = poker.StreetFlop
		dealCommunity(3)
	case poker.StreetFlop:
		table.Street = poker.StreetTurn
		dealCommunity(1)
	case poker.StreetTurn:
		table.Street = poker.StreetRiver
		dealCommunity(1)
	case poker.StreetRiver:
		table.Street = poker.StreetShowdown
	}

	if table.Street != poker.StreetShowdown {
		events = append(events, protocol.Event{
			Type: protocol.EventStreetChanged, TableID: table.ID,
			StreetChanged: &protocol.StreetChangedPayload{
				Street: string(table.Street), CommunityCards: cardStrings(table.CommunityCards),
			},
		})
		table.ActiveSeat = table.NextOccupiedSeat(table.DealerSeat, func(s *poker.Seat) bool { return s.IsActingEligible() })
		if len(table.ActingSeats()) <= 1 {
			// Auto-run remaining streets when at most one seat can act.
			more, err := r.advanceStreetDispatch(table, true)
			if err != nil {
				return nil, err
			}
			return append(events, more...), nil
		}
		return events, nil
	}

	more, err := r.runShowdown(table, forcedAutoRun)
	if err != nil {
		return nil, err
	}
	return append(events, more...), nil
}

func cardStrings(cards []poker.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// endHandAllFolded ends the hand immediately when only one contesting
// seat remains (spec.md §4.1 "all-folded path").
func (r *Room) endHandAllFolded(table *poker.Table) ([]protocol.Event, error) {
	contesting := table.ContestingSeats()
	var winnerID string
	if len(contesting) == 1 {
		winnerID = table.SeatAt(contesting[0]).PlayerID
	}

	result, err := r.Economy.SettleHand(economy.SettleHandInput{
		HandID:  table.HandID,
		TableID: table.ID,
		Rake:    economyRakeInputFor(table, 0),
		Decisions: []economy.WinnerDecision{
			{PotIndex: 0, Winners: []string{winnerID}},
		},
		Timestamp: timeToMs(r.Clock.Now()),
	})
	if err != nil {
		return nil, err
	}

	winners := payoutsToWinners(result.Payouts, nil)
	table.Street = poker.StreetComplete
	table.Pot = 0

	r.log.Infof("endHandAllFolded: table=%s hand=%s winner=%s", table.ID, table.HandID, winnerID)

	return []protocol.Event{{
		Type: protocol.EventHandEnded, TableID: table.ID,
		HandEnded: &protocol.HandEndedPayload{Winners: winners, EndReason: protocol.EndAllFolded},
	}}, nil
}

func payoutsToWinners(payouts []economy.Payout, descriptions map[string]string) []protocol.Winner {
	out := make([]protocol.Winner, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, protocol.Winner{PlayerID: p.PlayerID, Amount: p.Amount, HandDescription: descriptions[p.PlayerID]})
	}
	return out
}
