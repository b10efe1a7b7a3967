package integrity

import "sort"

// SoftPlayThresholds parameterizes how large a delta from a player's
// own baseline is required before a pattern is flagged (spec.md §4.5:
// "a delta from the player's own global statistics ... never just an
// absolute threshold").
type SoftPlayThresholds struct {
	MinSample int // minimum opportunities before any pattern is evaluated

	PassiveInHighEVDelta float64 // CBetRate below AggressionFrequency by more than this
	MissedValueBetRate   float64 // MissedRiverValueBetRate above this
	LowPressureDelta     float64 // pair heads-up raise rate below player's own heads-up rate by this
	CheckFrequencyDelta  float64 // pair check rate above player's own global check rate by this
}

func DefaultSoftPlayThresholds() SoftPlayThresholds {
	return SoftPlayThresholds{
		MinSample:            10,
		PassiveInHighEVDelta: 0.25,
		MissedValueBetRate:   0.4,
		LowPressureDelta:     0.25,
		CheckFrequencyDelta:  0.3,
	}
}

// SoftPlayDetector flags a player being unusually passive relative to
// their own established tendencies, not relative to a fixed baseline —
// every pattern here compares a narrow-context rate against the same
// player's wider-context rate.
type SoftPlayDetector struct {
	Thresholds SoftPlayThresholds
}

func NewSoftPlayDetector(t SoftPlayThresholds) *SoftPlayDetector {
	return &SoftPlayDetector{Thresholds: t}
}

func (d *SoftPlayDetector) Detect(result Result) []DetectionSignal {
	var signals []DetectionSignal
	signals = append(signals, d.passiveInHighEVSpots(result)...)
	signals = append(signals, d.missingValueBetOnRiver(result)...)
	signals = append(signals, d.lowPressureHeadsUp(result)...)
	signals = append(signals, d.abnormalCheckFrequency(result)...)

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Pattern != signals[j].Pattern {
			return signals[i].Pattern < signals[j].Pattern
		}
		return playersKey(signals[i].Indicator.Players) < playersKey(signals[j].Indicator.Players)
	})
	return signals
}

func (d *SoftPlayDetector) passiveInHighEVSpots(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, pid := range sortedPlayerIDs(result.Players) {
		p := result.Players[pid]
		if p.CBetOpportunities < d.Thresholds.MinSample {
			continue
		}
		baseline := p.AggressionFrequency()
		cbet := p.CBetRate()
		delta := baseline - cbet
		if delta <= d.Thresholds.PassiveInHighEVDelta {
			continue
		}
		ind := Indicator{
			Pattern:       "passive-in-high-ev-spots",
			Strength:      clampUnit(delta),
			Occurrences:   p.CBetOpportunities - p.CBetHands,
			ExpectedCount: baseline * float64(p.CBetOpportunities),
			ZScore:        zScore(p.CBetOpportunities-p.CBetHands, baseline*float64(p.CBetOpportunities)),
			Players:       []string{pid},
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

func (d *SoftPlayDetector) missingValueBetOnRiver(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, pid := range sortedPlayerIDs(result.Players) {
		p := result.Players[pid]
		if p.RiverCheckOpportunities < d.Thresholds.MinSample {
			continue
		}
		rate := p.MissedRiverValueBetRate()
		if rate <= d.Thresholds.MissedValueBetRate {
			continue
		}
		ind := Indicator{
			Pattern:       "missing-value-bet-on-river",
			Strength:      clampUnit(rate),
			Occurrences:   p.MissedRiverValueBets,
			ExpectedCount: d.Thresholds.MissedValueBetRate * float64(p.RiverCheckOpportunities),
			ZScore:        zScore(p.MissedRiverValueBets, d.Thresholds.MissedValueBetRate*float64(p.RiverCheckOpportunities)),
			Players:       []string{pid},
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

func (d *SoftPlayDetector) lowPressureHeadsUp(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, key := range sortedPairKeys(result.Pairs) {
		pm := result.Pairs[key]
		if pm.HeadsUpConfrontations < d.Thresholds.MinSample {
			continue
		}
		for _, side := range []struct {
			self, opponent string
			raises         int
		}{
			{pm.PlayerA, pm.PlayerB, pm.RaisesAToB},
			{pm.PlayerB, pm.PlayerA, pm.RaisesBToA},
		} {
			p, ok := result.Players[side.self]
			if !ok {
				continue
			}
			own := p.HeadsUpAggressionFactor()
			specific := float64(side.raises) / float64(pm.HeadsUpConfrontations)
			delta := own - specific
			if delta <= d.Thresholds.LowPressureDelta {
				continue
			}
			expected := own * float64(pm.HeadsUpConfrontations)
			ind := Indicator{
				Pattern:       "low-pressure-heads-up",
				Strength:      clampUnit(delta),
				Occurrences:   side.raises,
				ExpectedCount: expected,
				ZScore:        zScore(side.raises, expected),
				Players:       []string{side.self, side.opponent},
			}
			signals = append(signals, toSignal(ind))
		}
	}
	return signals
}

func (d *SoftPlayDetector) abnormalCheckFrequency(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, key := range sortedPairKeys(result.Pairs) {
		pm := result.Pairs[key]
		if pm.HeadsUpConfrontations < d.Thresholds.MinSample {
			continue
		}
		for _, side := range []struct {
			self, opponent string
			checks         int
		}{
			{pm.PlayerA, pm.PlayerB, pm.ChecksAToB},
			{pm.PlayerB, pm.PlayerA, pm.ChecksBToA},
		} {
			p, ok := result.Players[side.self]
			if !ok || p.TotalActions == 0 {
				continue
			}
			own := float64(p.CheckActions) / float64(p.TotalActions)
			specific := float64(side.checks) / float64(pm.HeadsUpConfrontations)
			delta := specific - own
			if delta <= d.Thresholds.CheckFrequencyDelta {
				continue
			}
			expected := own * float64(pm.HeadsUpConfrontations)
			ind := Indicator{
				Pattern:       "abnormal-check-frequency",
				Strength:      clampUnit(delta),
				Occurrences:   side.checks,
				ExpectedCount: expected,
				ZScore:        zScore(side.checks, expected),
				Players:       []string{side.self, side.opponent},
			}
			signals = append(signals, toSignal(ind))
		}
	}
	return signals
}

func sortedPlayerIDs(players map[string]*PlayerMetrics) []string {
	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
