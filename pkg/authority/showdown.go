package authority

import (
	"github.com/pokerauthority/core/pkg/economy"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
)

// runShowdown evaluates every contesting hand, decides winners per
// side-pot using the room's injected HandEvaluator, and settles the
// hand through the economy engine. forcedAutoRun distinguishes a hand
// that reached showdown because advanceStreet ran out remaining
// streets with at most one seat left to act (spec.md §4.1's
// all-in-runout path) from a genuine contested showdown reached by
// normal betting closure on the river.
func (r *Room) runShowdown(table *poker.Table, forcedAutoRun bool) ([]protocol.Event, error) {
	contesting := table.ContestingSeats()

	values := make(map[string]poker.HandValue, len(contesting))
	descriptions := make(map[string]string, len(contesting))
	for _, idx := range contesting {
		seat := table.SeatAt(idx)
		if seat.Status == poker.SeatFolded {
			continue
		}
		v, err := r.Evaluator.Evaluate(seat.HoleCards, table.CommunityCards)
		if err != nil {
			return nil, &protocol.IntegrityFault{Component: "authority", Reason: "hand evaluation failed: " + err.Error()}
		}
		values[seat.PlayerID] = v
		descriptions[seat.PlayerID] = v.HandDescription
	}

	pots := r.Economy.PreviewPots(table.HandID)
	decisions := make([]economy.WinnerDecision, 0, len(pots))
	for i, pot := range pots {
		winners := bestEligibleHands(r.Evaluator, pot.Eligible, values)
		decisions = append(decisions, economy.WinnerDecision{PotIndex: i, Winners: winners})
	}

	playersAtShowdown := 0
	for range values {
		playersAtShowdown++
	}

	result, err := r.Economy.SettleHand(economy.SettleHandInput{
		HandID:    table.HandID,
		TableID:   table.ID,
		Rake:      economyRakeInputFor(table, playersAtShowdown),
		Decisions: decisions,
		Timestamp: timeToMs(r.Clock.Now()),
	})
	if err != nil {
		return nil, err
	}

	table.Street = poker.StreetComplete
	table.Pot = 0

	endReason := protocol.EndShowdown
	if forcedAutoRun {
		endReason = protocol.EndAllInRunout
	}

	r.log.Infof("runShowdown: table=%s hand=%s payouts=%d pots=%d forcedAutoRun=%v", table.ID, table.HandID, len(result.Payouts), len(pots), forcedAutoRun)

	return []protocol.Event{{
		Type: protocol.EventHandEnded, TableID: table.ID,
		HandEnded: &protocol.HandEndedPayload{
			Winners:   payoutsToWinners(result.Payouts, descriptions),
			EndReason: endReason,
		},
	}}, nil
}

// bestEligibleHands returns the player id(s) with the strongest hand
// among eligible, splitting ties.
func bestEligibleHands(evaluator poker.HandEvaluator, eligible []string, values map[string]poker.HandValue) []string {
	var best []string
	var bestValue poker.HandValue
	for _, playerID := range eligible {
		v, ok := values[playerID]
		if !ok {
			continue // folded players remain eligible-by-contribution but cannot win
		}
		if len(best) == 0 {
			best = []string{playerID}
			bestValue = v
			continue
		}
		switch evaluator.Compare(v, bestValue) {
		case 1:
			best = []string{playerID}
			bestValue = v
		case 0:
			best = append(best, playerID)
		}
	}
	return best
}
