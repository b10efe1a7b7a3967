package economy

import "sort"

// Contribution is a single player's total commitment to a hand's pot,
// used as the input to side-pot computation (spec.md §3 "pot
// contribution record").
type Contribution struct {
	PlayerID          string
	TotalContribution int64
	IsAllIn           bool
	IsFolded          bool
}

// SidePot is one layer of a split pot with its eligible winner set.
type SidePot struct {
	Amount     int64
	Eligible   []string // non-folded players whose contribution reached this layer's threshold
}

// HandPotTracker accumulates per-player, per-street contributions for
// one hand. Folded players remain in the totals: their chips stay in
// the pot even though they can no longer win it.
type HandPotTracker struct {
	totalByPlayer  map[string]int64
	streetByPlayer map[string]map[string]int64 // street -> player -> amount
	folded         map[string]bool
	allIn          map[string]bool
}

func NewHandPotTracker() *HandPotTracker {
	return &HandPotTracker{
		totalByPlayer:  make(map[string]int64),
		streetByPlayer: make(map[string]map[string]int64),
		folded:         make(map[string]bool),
		allIn:          make(map[string]bool),
	}
}

// AddContribution records amount contributed by playerID on street.
func (t *HandPotTracker) AddContribution(street, playerID string, amount int64) {
	t.totalByPlayer[playerID] += amount
	byStreet, ok := t.streetByPlayer[street]
	if !ok {
		byStreet = make(map[string]int64)
		t.streetByPlayer[street] = byStreet
	}
	byStreet[playerID] += amount
}

func (t *HandPotTracker) MarkFolded(playerID string) { t.folded[playerID] = true }
func (t *HandPotTracker) MarkAllIn(playerID string)  { t.allIn[playerID] = true }

// PlayerTotal returns a player's total contribution this hand.
func (t *HandPotTracker) PlayerTotal(playerID string) int64 { return t.totalByPlayer[playerID] }

// StreetTotal returns the total contributed by all players on street.
func (t *HandPotTracker) StreetTotal(street string) int64 {
	var total int64
	for _, amt := range t.streetByPlayer[street] {
		total += amt
	}
	return total
}

// Total returns the sum of all contributions across all players.
func (t *HandPotTracker) Total() int64 {
	var total int64
	for _, v := range t.totalByPlayer {
		total += v
	}
	return total
}

// Contributions materializes the tracker into the input shape
// CalculateSidePots expects, in a stable (sorted by player id) order.
func (t *HandPotTracker) Contributions() []Contribution {
	ids := make([]string, 0, len(t.totalByPlayer))
	for id := range t.totalByPlayer {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Contribution, 0, len(ids))
	for _, id := range ids {
		out = append(out, Contribution{
			PlayerID:          id,
			TotalContribution: t.totalByPlayer[id],
			IsAllIn:           t.allIn[id],
			IsFolded:          t.folded[id],
		})
	}
	return out
}

// CalculateSidePots implements spec.md §4.4's ascending-threshold-walk
// algorithm verbatim:
//
//  1. Sort ascending by totalContribution.
//  2. Walk all-in thresholds in ascending order. At each distinct
//     threshold t, the side-pot amount is (t - previousThreshold) *
//     (count of players whose totalContribution >= t); its eligible
//     set is every non-folded player with totalContribution >= t.
//  3. Remaining contributions above the highest all-in form the final pot.
//
// This is a fresh implementation of the rule the spec names, not the
// teacher's bubble-sort CreateSidePots: the teacher's algorithm reaches
// an equivalent partition by a different method, but the spec is
// authoritative on the method itself (see DESIGN.md).
func CalculateSidePots(contributions []Contribution) []SidePot {
	sorted := append([]Contribution{}, contributions...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalContribution != sorted[j].TotalContribution {
			return sorted[i].TotalContribution < sorted[j].TotalContribution
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})

	// Distinct thresholds taken from all-in players only, ascending.
	var thresholds []int64
	seen := make(map[int64]bool)
	for _, c := range sorted {
		if c.IsAllIn && !seen[c.TotalContribution] {
			seen[c.TotalContribution] = true
			thresholds = append(thresholds, c.TotalContribution)
		}
	}

	var pots []SidePot
	var previous int64
	for _, t := range thresholds {
		if t <= previous {
			continue
		}
		var count int64
		var eligible []string
		for _, c := range sorted {
			if c.TotalContribution >= t {
				count++
				if !c.IsFolded {
					eligible = append(eligible, c.PlayerID)
				}
			}
		}
		amount := (t - previous) * count
		if amount > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
		previous = t
	}

	// Final pot: remaining contributions above the highest all-in threshold.
	var topMax int64
	for _, c := range sorted {
		if c.TotalContribution > topMax {
			topMax = c.TotalContribution
		}
	}
	if topMax > previous {
		var count int64
		var eligible []string
		for _, c := range sorted {
			if c.TotalContribution > previous {
				count++
				if !c.IsFolded {
					eligible = append(eligible, c.PlayerID)
				}
			}
		}
		amount := (topMax - previous) * count
		if amount > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
	}

	return pots
}

// TotalContributed sums every contribution, for conservation checks
// against CalculateSidePots' output.
func TotalContributed(contributions []Contribution) int64 {
	var total int64
	for _, c := range contributions {
		total += c.TotalContribution
	}
	return total
}

// TotalPots sums the amounts across a list of side-pots.
func TotalPots(pots []SidePot) int64 {
	var total int64
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
