package economy

// Payout is one line of a pot settlement: playerID receives amount
// from potIndex.
type Payout struct {
	PlayerID string
	Amount   int64
	PotIndex int
}

// SettlePots implements spec.md §4.4's pot settlement rule: for each
// pot, award floor(amount/|winners|) to each winner, distributing the
// remainder one chip at a time to winners in the order provided.
// Winners not in the pot's eligible set are skipped. winnersByPot must
// already reflect whichever winner(s) the caller's hand-ranking
// function chose for that pot's eligible player set.
func SettlePots(pots []SidePot, winnersByPot [][]string) []Payout {
	var payouts []Payout
	for potIdx, pot := range pots {
		var winners []string
		if potIdx < len(winnersByPot) {
			winners = winnersByPot[potIdx]
		}
		eligible := make(map[string]bool, len(pot.Eligible))
		for _, p := range pot.Eligible {
			eligible[p] = true
		}
		var qualifying []string
		for _, w := range winners {
			if eligible[w] {
				qualifying = append(qualifying, w)
			}
		}
		if len(qualifying) == 0 {
			continue
		}
		share := pot.Amount / int64(len(qualifying))
		remainder := pot.Amount % int64(len(qualifying))
		for i, w := range qualifying {
			amount := share
			if int64(i) < remainder {
				amount++
			}
			if amount > 0 {
				payouts = append(payouts, Payout{PlayerID: w, Amount: amount, PotIndex: potIdx})
			}
		}
	}
	return payouts
}

// TotalPayouts sums a payout list, for conservation checks.
func TotalPayouts(payouts []Payout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}
