package integrity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassiveInHighEVSpotsFlagged(t *testing.T) {
	result := Result{
		Players: map[string]*PlayerMetrics{
			"hero": {
				PlayerID:          "hero",
				AggressiveActions: 60,
				TotalActions:      100,
				CBetOpportunities: 20,
				CBetHands:         2,
			},
		},
	}
	d := NewSoftPlayDetector(DefaultSoftPlayThresholds())
	signals := d.Detect(result)
	require.Len(t, signals, 1)
	require.Equal(t, "passive-in-high-ev-spots", signals[0].Pattern)
}

func TestMissingValueBetOnRiverFlagged(t *testing.T) {
	result := Result{
		Players: map[string]*PlayerMetrics{
			"hero": {PlayerID: "hero", RiverCheckOpportunities: 20, MissedRiverValueBets: 15},
		},
	}
	d := NewSoftPlayDetector(DefaultSoftPlayThresholds())
	signals := d.Detect(result)
	require.Len(t, signals, 1)
	require.Equal(t, "missing-value-bet-on-river", signals[0].Pattern)
}

func TestLowPressureHeadsUpUsesOwnBaseline(t *testing.T) {
	result := Result{
		Players: map[string]*PlayerMetrics{
			"a": {PlayerID: "a", HeadsUpAggressiveActions: 40, HeadsUpTotalActions: 50},
			"b": {PlayerID: "b", HeadsUpAggressiveActions: 10, HeadsUpTotalActions: 50},
		},
		Pairs: map[pairKey]*PairMetrics{
			makePairKey("a", "b"): {PlayerA: "a", PlayerB: "b", RaisesAToB: 1, RaisesBToA: 9, HeadsUpConfrontations: 20},
		},
	}
	d := NewSoftPlayDetector(DefaultSoftPlayThresholds())
	signals := d.Detect(result)
	foundA := false
	for _, s := range signals {
		if s.Pattern == "low-pressure-heads-up" && s.Indicator.Players[0] == "a" {
			foundA = true
		}
	}
	require.True(t, foundA, "a's own heads-up aggression (0.8) far exceeds their specific rate vs b (0.05)")
}

func TestSoftPlayIgnoresThinSample(t *testing.T) {
	result := Result{
		Players: map[string]*PlayerMetrics{
			"hero": {PlayerID: "hero", RiverCheckOpportunities: 2, MissedRiverValueBets: 2},
		},
	}
	d := NewSoftPlayDetector(DefaultSoftPlayThresholds())
	signals := d.Detect(result)
	require.Empty(t, signals)
}
