package integrity

import "sort"

// TimingThresholds configures the quick-fold/long-tank buckets
// (spec.md §4.5 "action-timing stats ... thresholds configurable").
type TimingThresholds struct {
	QuickFoldMs int64
	LongTankMs  int64
}

// DefaultTimingThresholds mirrors typical manual-review defaults: a
// fold inside 500ms is suspiciously fast, a think older than 20s is a
// long tank.
var DefaultTimingThresholds = TimingThresholds{QuickFoldMs: 500, LongTankMs: 20000}

// PlayerMetrics is one player's full behavior-metric set (spec.md
// §4.5). Every field is an accumulated count; ratio accessors below
// divide lazily so a player with zero opportunities never produces a
// NaN through the pipeline.
type PlayerMetrics struct {
	PlayerID string

	HandsPlayed int
	HandsWon    int

	VPIPHands         int
	VPIPOpportunities int
	PFRHands          int
	PFROpportunities  int

	ThreeBetHands         int
	ThreeBetOpportunities int
	CBetHands             int
	CBetOpportunities     int

	AggressiveActions int // bet/raise/all-in
	PassiveActions    int // call/check
	CheckActions      int // check only, subset of PassiveActions
	TotalActions      int

	RiverCheckOpportunities int // river actions taken with no bet facing
	MissedRiverValueBets    int // of those, the ones followed by a showdown win

	FoldToRaiseHands         int
	FoldToRaiseOpportunities int

	WTSDHands      int // went to showdown
	WonAtShowdown  int
	ShowdownHands  int // total hands reaching showdown (denominator for W$SD)

	EarlyPositionHands int
	EarlyPositionVPIP  int
	LatePositionHands  int
	LatePositionVPIP   int

	HeadsUpAggressiveActions  int
	HeadsUpTotalActions       int
	MultiwayAggressiveActions int
	MultiwayTotalActions      int

	QuickFolds int
	LongTanks  int

	NetChipChange int64
	BiggestWin    int64
	BiggestLoss   int64 // stored as a positive magnitude
}

func handPlayerKey(handID, playerID string) string { return handID + "|" + playerID }

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func (m *PlayerMetrics) VPIP() float64 { return ratio(m.VPIPHands, m.VPIPOpportunities) }
func (m *PlayerMetrics) PFR() float64  { return ratio(m.PFRHands, m.PFROpportunities) }
func (m *PlayerMetrics) ThreeBetRate() float64 {
	return ratio(m.ThreeBetHands, m.ThreeBetOpportunities)
}
func (m *PlayerMetrics) CBetRate() float64 { return ratio(m.CBetHands, m.CBetOpportunities) }

// AggressionFactor is aggressive actions (bets, raises, all-ins) over
// passive actions (calls and checks); undefined (returned as 0) when
// the player has no passive actions.
func (m *PlayerMetrics) AggressionFactor() float64 {
	if m.PassiveActions == 0 {
		return 0
	}
	return float64(m.AggressiveActions) / float64(m.PassiveActions)
}

func (m *PlayerMetrics) AggressionFrequency() float64 {
	return ratio(m.AggressiveActions, m.TotalActions)
}
func (m *PlayerMetrics) FoldToRaise() float64 {
	return ratio(m.FoldToRaiseHands, m.FoldToRaiseOpportunities)
}
func (m *PlayerMetrics) WTSD() float64 { return ratio(m.WTSDHands, m.HandsPlayed) }
func (m *PlayerMetrics) WonDollarAtShowdown() float64 {
	return ratio(m.WonAtShowdown, m.ShowdownHands)
}

// MissedRiverValueBetRate is the fraction of river checks with no bet
// facing that were immediately followed by a showdown win — a proxy
// for "checked back a hand that had value to bet".
func (m *PlayerMetrics) MissedRiverValueBetRate() float64 {
	return ratio(m.MissedRiverValueBets, m.RiverCheckOpportunities)
}

// PositionalVPIPDelta is late-position VPIP minus early-position VPIP;
// a well-disciplined player's is positive (wider late, tighter early).
func (m *PlayerMetrics) PositionalVPIPDelta() float64 {
	return ratio(m.LatePositionVPIP, m.LatePositionHands) - ratio(m.EarlyPositionVPIP, m.EarlyPositionHands)
}

func (m *PlayerMetrics) HeadsUpAggressionFactor() float64 {
	return ratio(m.HeadsUpAggressiveActions, m.HeadsUpTotalActions)
}
func (m *PlayerMetrics) MultiwayAggressionFactor() float64 {
	return ratio(m.MultiwayAggressiveActions, m.MultiwayTotalActions)
}
func (m *PlayerMetrics) HeadsUpVsMultiwayDelta() float64 {
	return m.HeadsUpAggressionFactor() - m.MultiwayAggressionFactor()
}

// PairMetrics is the between-player pair metric set (spec.md §4.5).
type PairMetrics struct {
	PlayerA, PlayerB string

	HandsTogether         int
	HeadsUpConfrontations int
	NetFlowAToB           int64 // chips that flowed from A to B across the pair's shared hands

	RaisesAToB int // A raised while B was the one facing it (heads-up context)
	RaisesBToA int
	FoldsAToB  int
	FoldsBToA  int
	ChecksAToB int
	ChecksBToA int

	ShowdownsTogether int
}

func (p *PairMetrics) AggressionAsymmetry() float64 {
	total := p.RaisesAToB + p.RaisesBToA
	if total == 0 {
		return 0
	}
	diff := p.RaisesAToB - p.RaisesBToA
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(total)
}

func (p *PairMetrics) FoldAsymmetry() float64 {
	total := p.FoldsAToB + p.FoldsBToA
	if total == 0 {
		return 0
	}
	diff := p.FoldsAToB - p.FoldsBToA
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(total)
}

func (p *PairMetrics) ShowdownRate() float64 { return ratio(p.ShowdownsTogether, p.HandsTogether) }

type pairKey struct{ A, B string }

func makePairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// ChipFlowMatrix apportions every pot-awarded event's amount equally
// among its non-winning contributors, toward the winner (spec.md §4.5
// "no negative entries"). Matrix[contributor][winner] is the total
// chips that have flowed from contributor to winner.
type ChipFlowMatrix map[string]map[string]int64

func (m ChipFlowMatrix) add(from, to string, amount int64) {
	if amount <= 0 || from == to {
		return
	}
	row, ok := m[from]
	if !ok {
		row = make(map[string]int64)
		m[from] = row
	}
	row[to] += amount
}

// Result bundles everything Compute derives from an event stream.
type Result struct {
	Players  map[string]*PlayerMetrics
	Pairs    map[pairKey]*PairMetrics
	ChipFlow ChipFlowMatrix
}

// PairFor returns a's and b's combined metrics regardless of argument order.
func (r Result) PairFor(a, b string) (*PairMetrics, bool) {
	p, ok := r.Pairs[makePairKey(a, b)]
	return p, ok
}

// Compute is a deterministic, pure pass over events (spec.md §4.5
// "Deterministic, pure functions over an event stream"): the same
// events slice always yields identical metrics.
func Compute(events []Event, timing TimingThresholds) Result {
	players := make(map[string]*PlayerMetrics)
	pairs := make(map[pairKey]*PairMetrics)
	flow := make(ChipFlowMatrix)

	player := func(id string) *PlayerMetrics {
		p, ok := players[id]
		if !ok {
			p = &PlayerMetrics{PlayerID: id}
			players[id] = p
		}
		return p
	}
	pair := func(a, b string) *PairMetrics {
		key := makePairKey(a, b)
		p, ok := pairs[key]
		if !ok {
			p = &PairMetrics{PlayerA: key.A, PlayerB: key.B}
			pairs[key] = p
		}
		return p
	}

	handSeatedPlayers := make(map[string]map[string]bool)   // handID -> set of players in it
	handShowdownPlayers := make(map[string]map[string]bool) // handID -> set of players who reached showdown
	riverCheckbacks := make(map[string]bool)                // handID|playerID -> checked river with no bet facing

	for _, e := range events {
		switch e.Kind {
		case KindHandStarted:
			// no per-player fields; handSeatedPlayers is filled from action events below
		case KindActionTaken:
			p := player(e.PlayerID)
			p.TotalActions++
			aggressive := e.Action == "bet" || e.Action == "raise" || e.Action == "all-in"
			if aggressive {
				p.AggressiveActions++
			} else if e.Action == "call" || e.Action == "check" {
				p.PassiveActions++
				if e.Action == "check" {
					p.CheckActions++
				}
			}
			if e.HeadsUp {
				p.HeadsUpTotalActions++
				if aggressive {
					p.HeadsUpAggressiveActions++
				}
			} else {
				p.MultiwayTotalActions++
				if aggressive {
					p.MultiwayAggressiveActions++
				}
			}

			if e.Street == "preflop" {
				p.VPIPOpportunities++
				if e.Action == "call" || aggressive {
					p.VPIPHands++
				}
				p.PFROpportunities++
				if aggressive {
					p.PFRHands++
				}
				if e.FacingRaise {
					p.ThreeBetOpportunities++
					if e.Action == "raise" {
						p.ThreeBetHands++
					}
					p.FoldToRaiseOpportunities++
					if e.Action == "fold" {
						p.FoldToRaiseHands++
					}
				}
				switch e.Position {
				case PositionEarly:
					p.EarlyPositionHands++
					if e.Action == "call" || aggressive {
						p.EarlyPositionVPIP++
					}
				case PositionLate:
					p.LatePositionHands++
					if e.Action == "call" || aggressive {
						p.LatePositionVPIP++
					}
				}
			} else if e.FacingBet {
				p.CBetOpportunities++
				if e.Action == "bet" || e.Action == "raise" {
					p.CBetHands++
				}
				if e.FacingRaise {
					p.FoldToRaiseOpportunities++
					if e.Action == "fold" {
						p.FoldToRaiseHands++
					}
				}
			}

			if e.Action == "fold" && e.ThinkTimeMs > 0 {
				if e.ThinkTimeMs <= timing.QuickFoldMs {
					p.QuickFolds++
				}
			}
			if e.ThinkTimeMs >= timing.LongTankMs {
				p.LongTanks++
			}

			if e.OpponentID != "" {
				pm := pair(e.PlayerID, e.OpponentID)
				if e.PlayerID == pm.PlayerA {
					if e.Action == "raise" {
						pm.RaisesAToB++
					}
					if e.Action == "fold" {
						pm.FoldsAToB++
					}
					if e.Action == "check" {
						pm.ChecksAToB++
					}
				} else {
					if e.Action == "raise" {
						pm.RaisesBToA++
					}
					if e.Action == "fold" {
						pm.FoldsBToA++
					}
					if e.Action == "check" {
						pm.ChecksBToA++
					}
				}
			}

			if e.Street == "river" && e.Action == "check" && !e.FacingBet {
				p.RiverCheckOpportunities++
				riverCheckbacks[handPlayerKey(e.HandID, e.PlayerID)] = true
			}

			if handSeatedPlayers[e.HandID] == nil {
				handSeatedPlayers[e.HandID] = make(map[string]bool)
			}
			handSeatedPlayers[e.HandID][e.PlayerID] = true

		case KindShowdown:
			p := player(e.PlayerID)
			p.ShowdownHands++
			p.WTSDHands++
			if e.Won {
				p.WonAtShowdown++
				if riverCheckbacks[handPlayerKey(e.HandID, e.PlayerID)] {
					p.MissedRiverValueBets++
				}
			}
			if handShowdownPlayers[e.HandID] == nil {
				handShowdownPlayers[e.HandID] = make(map[string]bool)
			}
			handShowdownPlayers[e.HandID][e.PlayerID] = true

		case KindPotAwarded:
			winner := player(e.WinnerID)
			winner.HandsWon++
			winner.NetChipChange += e.Amount
			if e.Amount > winner.BiggestWin {
				winner.BiggestWin = e.Amount
			}
			losers := 0
			for _, contributor := range e.Contributors {
				if contributor != e.WinnerID {
					losers++
				}
			}
			if losers > 0 {
				share := e.Amount / int64(losers)
				for _, contributor := range e.Contributors {
					if contributor == e.WinnerID {
						continue
					}
					flow.add(contributor, e.WinnerID, share)
					loser := player(contributor)
					loser.NetChipChange -= share
					if share > loser.BiggestLoss {
						loser.BiggestLoss = share
					}
					pm := pair(contributor, e.WinnerID)
					if contributor == pm.PlayerA {
						pm.NetFlowAToB += share
					} else {
						pm.NetFlowAToB -= share
					}
				}
			}
		}
	}

	for _, seated := range handSeatedPlayers {
		for pid := range seated {
			player(pid).HandsPlayed++
		}
		ids := make([]string, 0, len(seated))
		for pid := range seated {
			ids = append(ids, pid)
		}
		sort.Strings(ids)
		if len(ids) == 2 {
			p := pair(ids[0], ids[1])
			p.HeadsUpConfrontations++
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				pair(ids[i], ids[j]).HandsTogether++
			}
		}
	}

	for _, seated := range handShowdownPlayers {
		ids := make([]string, 0, len(seated))
		for pid := range seated {
			ids = append(ids, pid)
		}
		sort.Strings(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				pair(ids[i], ids[j]).ShowdownsTogether++
			}
		}
	}

	return Result{Players: players, Pairs: pairs, ChipFlow: flow}
}
