package integrity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChipTransferConcentrationFlagsSkew(t *testing.T) {
	result := Result{
		ChipFlow: ChipFlowMatrix{
			"victim": {"beneficiary": 900, "other": 50},
		},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	signals := d.Detect(result, nil)
	require.Len(t, signals, 1)
	require.Equal(t, "chip-transfer-concentration", signals[0].Pattern)
	require.Equal(t, []string{"victim", "beneficiary"}, signals[0].Indicator.Players)
}

func TestChipTransferConcentrationIgnoresThinSample(t *testing.T) {
	result := Result{
		ChipFlow: ChipFlowMatrix{"victim": {"beneficiary": 50}},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	signals := d.Detect(result, nil)
	require.Empty(t, signals)
}

func TestAsymmetricAggressionFlagged(t *testing.T) {
	result := Result{
		Pairs: map[pairKey]*PairMetrics{
			makePairKey("a", "b"): {PlayerA: "a", PlayerB: "b", RaisesAToB: 18, RaisesBToA: 2},
		},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	signals := d.Detect(result, nil)
	found := false
	for _, s := range signals {
		if s.Pattern == "asymmetric-aggression" {
			found = true
		}
	}
	require.True(t, found)
}

func TestCoordinatedCheckdownsRequiresRecurrence(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", Street: "river", PlayerID: "a", Action: "check"},
		{Kind: KindActionTaken, HandID: "h1", Street: "river", PlayerID: "b", Action: "check"},
		{Kind: KindActionTaken, HandID: "h2", Street: "river", PlayerID: "a", Action: "check"},
		{Kind: KindActionTaken, HandID: "h2", Street: "river", PlayerID: "b", Action: "check"},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	result := Result{}
	signals := d.Detect(result, events)
	require.Empty(t, signals, "two occurrences should not meet the >=3 recurrence threshold")

	events = append(events,
		Event{Kind: KindActionTaken, HandID: "h3", Street: "river", PlayerID: "a", Action: "check"},
		Event{Kind: KindActionTaken, HandID: "h3", Street: "river", PlayerID: "b", Action: "check"},
	)
	signals = d.Detect(result, events)
	require.Len(t, signals, 1)
	require.Equal(t, "coordinated-checkdowns", signals[0].Pattern)
	require.Equal(t, 3, signals[0].Indicator.Occurrences)
}

func TestCoordinatedBettingRequiresRecurrence(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", Street: "flop", PlayerID: "a", Action: "bet"},
		{Kind: KindActionTaken, HandID: "h1", Street: "flop", PlayerID: "b", Action: "raise"},
		{Kind: KindActionTaken, HandID: "h2", Street: "flop", PlayerID: "a", Action: "bet"},
		{Kind: KindActionTaken, HandID: "h2", Street: "flop", PlayerID: "b", Action: "raise"},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	result := Result{}
	signals := d.Detect(result, events)
	require.Empty(t, signals, "two occurrences should not meet the >=3 recurrence threshold")

	events = append(events,
		Event{Kind: KindActionTaken, HandID: "h3", Street: "flop", PlayerID: "a", Action: "bet"},
		Event{Kind: KindActionTaken, HandID: "h3", Street: "flop", PlayerID: "b", Action: "raise"},
	)
	signals = d.Detect(result, events)
	require.Len(t, signals, 1)
	require.Equal(t, "coordinated-betting", signals[0].Pattern)
	require.Equal(t, 3, signals[0].Indicator.Occurrences)
}

func TestCoordinatedBettingIgnoredWhenSomeoneCalls(t *testing.T) {
	events := []Event{
		{Kind: KindActionTaken, HandID: "h1", Street: "flop", PlayerID: "a", Action: "bet"},
		{Kind: KindActionTaken, HandID: "h1", Street: "flop", PlayerID: "b", Action: "call"},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	signals := d.Detect(Result{}, events)
	require.Empty(t, signals)
}

func TestNetworkPositionFlagsHighCoOccurrenceAndChipFlow(t *testing.T) {
	var events []Event
	for i := 0; i < 60; i++ {
		events = append(events, Event{
			Kind: KindHandStarted, HandID: handIDFor("t1", int64(i)),
			Players: []string{"a", "b"},
		})
	}
	result := Result{
		ChipFlow: ChipFlowMatrix{"a": {"b": 900}},
		Pairs: map[pairKey]*PairMetrics{
			makePairKey("a", "b"): {PlayerA: "a", PlayerB: "b", RaisesAToB: 18, RaisesBToA: 2},
		},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	signals := d.Detect(result, events)

	found := false
	for _, s := range signals {
		if s.Pattern == "player-interaction-network" {
			found = true
			require.Equal(t, []string{"a", "b"}, s.Indicator.Players)
		}
	}
	require.True(t, found)
}

func TestNetworkPositionIgnoresThinCoOccurrenceSample(t *testing.T) {
	events := []Event{{Kind: KindHandStarted, HandID: "h1", Players: []string{"a", "b"}}}
	result := Result{ChipFlow: ChipFlowMatrix{"a": {"b": 900}}}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	signals := d.Detect(result, events)
	for _, s := range signals {
		require.NotEqual(t, "player-interaction-network", s.Pattern)
	}
}

func TestCollusionDetectSignalsAreOrderedDeterministically(t *testing.T) {
	result := Result{
		ChipFlow: ChipFlowMatrix{"victim": {"beneficiary": 900}},
		Pairs: map[pairKey]*PairMetrics{
			makePairKey("a", "b"): {PlayerA: "a", PlayerB: "b", RaisesAToB: 18, RaisesBToA: 2},
		},
	}
	d := NewCollusionDetector(DefaultCollusionThresholds())
	s1 := d.Detect(result, nil)
	s2 := d.Detect(result, nil)
	require.Equal(t, s1, s2)
}
