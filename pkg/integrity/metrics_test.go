package integrity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeVPIPAndPFR(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "hero", Street: "preflop", Action: "raise"},
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "villain", Street: "preflop", Action: "call"},
	}
	res := Compute(events, DefaultTimingThresholds)

	hero := res.Players["hero"]
	require.Equal(t, 1, hero.VPIPHands)
	require.Equal(t, 1, hero.VPIPOpportunities)
	require.Equal(t, 1, hero.PFRHands)
	require.Equal(t, float64(1), hero.VPIP())
	require.Equal(t, float64(1), hero.PFR())

	villain := res.Players["villain"]
	require.Equal(t, 1, villain.VPIPHands)
	require.Equal(t, 0, villain.PFRHands)
	require.Equal(t, float64(0), villain.PFR())
}

func TestComputeThreeBetAndFoldToRaise(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "hero", Street: "preflop", Action: "raise", FacingRaise: true},
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "villain", Street: "preflop", Action: "fold", FacingRaise: true},
	}
	res := Compute(events, DefaultTimingThresholds)

	hero := res.Players["hero"]
	require.Equal(t, 1, hero.ThreeBetOpportunities)
	require.Equal(t, 1, hero.ThreeBetHands)

	villain := res.Players["villain"]
	require.Equal(t, 1, villain.FoldToRaiseOpportunities)
	require.Equal(t, 1, villain.FoldToRaiseHands)
	require.Equal(t, float64(1), villain.FoldToRaise())
}

func TestComputeHandsPlayedAndHeadsUpConfrontations(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "hero", Street: "preflop", Action: "call"},
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "villain", Street: "preflop", Action: "check"},
	}
	res := Compute(events, DefaultTimingThresholds)

	require.Equal(t, 1, res.Players["hero"].HandsPlayed)
	require.Equal(t, 1, res.Players["villain"].HandsPlayed)

	pm, ok := res.PairFor("hero", "villain")
	require.True(t, ok)
	require.Equal(t, 1, pm.HandsTogether)
	require.Equal(t, 1, pm.HeadsUpConfrontations)
}

func TestComputeShowdownMetrics(t *testing.T) {
	events := []Event{
		{Kind: KindShowdown, HandID: "h1", PlayerID: "hero", Won: true},
		{Kind: KindShowdown, HandID: "h1", PlayerID: "villain", Won: false},
	}
	res := Compute(events, DefaultTimingThresholds)

	hero := res.Players["hero"]
	require.Equal(t, 1, hero.ShowdownHands)
	require.Equal(t, 1, hero.WonAtShowdown)
	require.Equal(t, float64(1), hero.WonDollarAtShowdown())

	pm, ok := res.PairFor("hero", "villain")
	require.True(t, ok)
	require.Equal(t, 1, pm.ShowdownsTogether)
}

func TestComputeChipFlowAndNetFlow(t *testing.T) {
	events := []Event{
		{Kind: KindPotAwarded, HandID: "h1", WinnerID: "hero", Amount: 100, Contributors: []string{"hero", "villain"}},
	}
	res := Compute(events, DefaultTimingThresholds)

	require.Equal(t, int64(100), res.ChipFlow["villain"]["hero"])
	require.Equal(t, int64(100), res.Players["hero"].NetChipChange)
	require.Equal(t, int64(-100), res.Players["villain"].NetChipChange)
	require.Equal(t, int64(100), res.Players["villain"].BiggestLoss)

	pm, ok := res.PairFor("hero", "villain")
	require.True(t, ok)
	if pm.PlayerA == "villain" {
		require.Equal(t, int64(100), pm.NetFlowAToB)
	} else {
		require.Equal(t, int64(-100), pm.NetFlowAToB)
	}
}

func TestChipFlowMatrixNoSelfOrNegativeEntries(t *testing.T) {
	flow := make(ChipFlowMatrix)
	flow.add("hero", "hero", 50)
	flow.add("hero", "villain", -10)
	flow.add("hero", "villain", 20)

	require.Empty(t, flow["hero"]["hero"])
	require.Equal(t, int64(20), flow["hero"]["villain"])
}

func TestPairAsymmetryMetrics(t *testing.T) {
	pm := &PairMetrics{RaisesAToB: 8, RaisesBToA: 2, FoldsAToB: 1, FoldsBToA: 9}
	require.InDelta(t, 0.6, pm.AggressionAsymmetry(), 0.0001)
	require.InDelta(t, 0.8, pm.FoldAsymmetry(), 0.0001)
}

func TestQuickFoldAndLongTank(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "hero", Street: "flop", Action: "fold", ThinkTimeMs: 100},
		{Kind: KindActionTaken, HandID: "h2", PlayerID: "hero", Street: "flop", Action: "call", ThinkTimeMs: 25000},
	}
	res := Compute(events, DefaultTimingThresholds)

	hero := res.Players["hero"]
	require.Equal(t, 1, hero.QuickFolds)
	require.Equal(t, 1, hero.LongTanks)
}

func TestComputeIsDeterministic(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", PlayerID: "hero", Street: "preflop", Action: "raise"},
		{Kind: KindShowdown, HandID: "h1", PlayerID: "hero", Won: true},
		{Kind: KindPotAwarded, HandID: "h1", WinnerID: "hero", Amount: 30, Contributors: []string{"hero", "villain"}},
	}
	r1 := Compute(events, DefaultTimingThresholds)
	r2 := Compute(events, DefaultTimingThresholds)
	require.Equal(t, r1.Players["hero"].NetChipChange, r2.Players["hero"].NetChipChange)
	require.Equal(t, r1.ChipFlow, r2.ChipFlow)
}
