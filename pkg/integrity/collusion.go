package integrity

import "sort"

// CollusionThresholds parameterizes every pattern the collusion
// detector checks (spec.md §4.5's T1/T2 plus the per-pattern minimum
// sample sizes needed to suppress false positives on thin data).
type CollusionThresholds struct {
	ChipTransferConcentration float64 // T1: fraction of a player's losses to one opponent
	MinChipTransferSample     int64   // minimum total losses before concentration is evaluated

	AggressionAsymmetry float64 // T2
	MinAsymmetrySample  int     // minimum raises(A<->B)+raises(B<->A) before evaluated

	FoldAsymmetry     float64
	MinFoldSample     int

	SoftPlayHeadsUpFloor float64 // expected raises-per-heads-up; below this is suspiciously passive
	MinHeadsUpSample     int

	CoordinatedMinOccurrences int // recurrence threshold for the same player set (spec.md: >=3)

	// Pairwise interaction-graph scoring (§4.5 network-position
	// enrichment): a pair's co-occurrence and seating-adjacency counts,
	// combined with their already-computed chip-flow and aggression
	// metrics, into one weighted network score per edge.
	MinCoOccurrenceSample     int     // hands shared before an edge is scored at all
	CoOccurrenceThreshold     int     // hands shared at which the co-occurrence component saturates
	SeatingAdjacencyThreshold int     // adjacent-seatings at which that component saturates
	CoOccurrenceWeight        float64
	SeatingAdjacencyWeight    float64
	ChipFlowWeight            float64
	AggressionWeight          float64
	NetworkScoreThreshold     float64 // combined weighted score above which the edge is flagged
}

// DefaultCollusionThresholds mirrors the kind of conservative defaults
// a manual-review tool ships with: flag only when a pattern both
// crosses the ratio threshold and has enough samples to not be noise.
func DefaultCollusionThresholds() CollusionThresholds {
	return CollusionThresholds{
		ChipTransferConcentration: 0.7,
		MinChipTransferSample:     200,
		AggressionAsymmetry:       0.6,
		MinAsymmetrySample:        10,
		FoldAsymmetry:             0.6,
		MinFoldSample:             10,
		SoftPlayHeadsUpFloor:      0.15,
		MinHeadsUpSample:          5,
		CoordinatedMinOccurrences: 3,

		MinCoOccurrenceSample:     20,
		CoOccurrenceThreshold:     50,
		SeatingAdjacencyThreshold: 10,
		CoOccurrenceWeight:        0.25,
		SeatingAdjacencyWeight:    0.2,
		ChipFlowWeight:            0.35,
		AggressionWeight:          0.2,
		NetworkScoreThreshold:     0.6,
	}
}

// CollusionDetector evaluates the rule-based, deterministic patterns
// spec.md §4.5 names, entirely over the already-computed Result plus
// the raw event stream for the recurrence-based checkdown and betting
// patterns and the interaction graph.
type CollusionDetector struct {
	Thresholds CollusionThresholds
}

func NewCollusionDetector(t CollusionThresholds) *CollusionDetector {
	return &CollusionDetector{Thresholds: t}
}

// Detect runs every collusion pattern and returns signals in a stable
// order (sorted by pattern, then by the involved player ids) so two
// invocations over the same inputs are bit-identical.
func (d *CollusionDetector) Detect(result Result, events []Event) []DetectionSignal {
	var signals []DetectionSignal
	signals = append(signals, d.chipTransferConcentration(result)...)
	signals = append(signals, d.aggressionAsymmetry(result)...)
	signals = append(signals, d.foldPattern(result)...)
	signals = append(signals, d.softPlayHeadsUp(result)...)
	signals = append(signals, d.coordinatedCheckdowns(events)...)
	signals = append(signals, d.coordinatedBetting(events)...)
	signals = append(signals, d.networkPosition(result, BuildInteractionGraph(events))...)

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Pattern != signals[j].Pattern {
			return signals[i].Pattern < signals[j].Pattern
		}
		return playersKey(signals[i].Indicator.Players) < playersKey(signals[j].Indicator.Players)
	})
	return signals
}

func playersKey(players []string) string {
	key := ""
	for _, p := range players {
		key += p + "|"
	}
	return key
}

func (d *CollusionDetector) chipTransferConcentration(result Result) []DetectionSignal {
	var signals []DetectionSignal
	froms := make([]string, 0, len(result.ChipFlow))
	for from := range result.ChipFlow {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	for _, from := range froms {
		row := result.ChipFlow[from]
		var total int64
		for _, v := range row {
			total += v
		}
		if total < d.Thresholds.MinChipTransferSample {
			continue
		}
		tos := make([]string, 0, len(row))
		for to := range row {
			tos = append(tos, to)
		}
		sort.Strings(tos)
		for _, to := range tos {
			fraction := float64(row[to]) / float64(total)
			if fraction <= d.Thresholds.ChipTransferConcentration {
				continue
			}
			expected := float64(total) / float64(len(row))
			ind := Indicator{
				Pattern:       "chip-transfer-concentration",
				Strength:      clampUnit(fraction),
				Occurrences:   int(row[to]),
				ExpectedCount: expected,
				ZScore:        zScore(int(row[to]), expected),
				Players:       []string{from, to},
			}
			signals = append(signals, toSignal(ind))
		}
	}
	return signals
}

func (d *CollusionDetector) aggressionAsymmetry(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, key := range sortedPairKeys(result.Pairs) {
		pm := result.Pairs[key]
		total := pm.RaisesAToB + pm.RaisesBToA
		if total < d.Thresholds.MinAsymmetrySample {
			continue
		}
		asym := pm.AggressionAsymmetry()
		if asym <= d.Thresholds.AggressionAsymmetry {
			continue
		}
		expected := float64(total) / 2
		occurrences := pm.RaisesAToB
		if pm.RaisesBToA > occurrences {
			occurrences = pm.RaisesBToA
		}
		ind := Indicator{
			Pattern:       "asymmetric-aggression",
			Strength:      clampUnit(asym),
			Occurrences:   occurrences,
			ExpectedCount: expected,
			ZScore:        zScore(occurrences, expected),
			Players:       []string{pm.PlayerA, pm.PlayerB},
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

func (d *CollusionDetector) foldPattern(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, key := range sortedPairKeys(result.Pairs) {
		pm := result.Pairs[key]
		total := pm.FoldsAToB + pm.FoldsBToA
		if total < d.Thresholds.MinFoldSample {
			continue
		}
		asym := pm.FoldAsymmetry()
		if asym <= d.Thresholds.FoldAsymmetry {
			continue
		}
		expected := float64(total) / 2
		occurrences := pm.FoldsAToB
		if pm.FoldsBToA > occurrences {
			occurrences = pm.FoldsBToA
		}
		ind := Indicator{
			Pattern:       "abnormal-fold-pattern",
			Strength:      clampUnit(asym),
			Occurrences:   occurrences,
			ExpectedCount: expected,
			ZScore:        zScore(occurrences, expected),
			Players:       []string{pm.PlayerA, pm.PlayerB},
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

func (d *CollusionDetector) softPlayHeadsUp(result Result) []DetectionSignal {
	var signals []DetectionSignal
	for _, key := range sortedPairKeys(result.Pairs) {
		pm := result.Pairs[key]
		if pm.HeadsUpConfrontations < d.Thresholds.MinHeadsUpSample {
			continue
		}
		raisesPerHeadsUp := float64(pm.RaisesAToB+pm.RaisesBToA) / float64(pm.HeadsUpConfrontations)
		if raisesPerHeadsUp >= d.Thresholds.SoftPlayHeadsUpFloor {
			continue
		}
		deficit := (d.Thresholds.SoftPlayHeadsUpFloor - raisesPerHeadsUp) / d.Thresholds.SoftPlayHeadsUpFloor
		expected := d.Thresholds.SoftPlayHeadsUpFloor * float64(pm.HeadsUpConfrontations)
		occurrences := pm.RaisesAToB + pm.RaisesBToA
		ind := Indicator{
			Pattern:       "soft-play-heads-up",
			Strength:      clampUnit(deficit),
			Occurrences:   occurrences,
			ExpectedCount: expected,
			ZScore:        zScore(occurrences, expected),
			Players:       []string{pm.PlayerA, pm.PlayerB},
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

// coordinatedCheckdowns flags a player set only once it has recurred
// at least CoordinatedMinOccurrences times (spec.md §4.5): a single
// all-check street is unremarkable, a pattern that repeats across many
// hands for the same seats is not.
func (d *CollusionDetector) coordinatedCheckdowns(events []Event) []DetectionSignal {
	type streetKey struct {
		handID string
		street string
	}
	actorsByStreet := make(map[streetKey]map[string]bool)
	allCheckByStreet := make(map[streetKey]bool)
	order := []streetKey{}

	for _, e := range events {
		if e.Kind != KindActionTaken {
			continue
		}
		sk := streetKey{handID: e.HandID, street: e.Street}
		if actorsByStreet[sk] == nil {
			actorsByStreet[sk] = make(map[string]bool)
			allCheckByStreet[sk] = true
			order = append(order, sk)
		}
		actorsByStreet[sk][e.PlayerID] = true
		if e.Action != "check" {
			allCheckByStreet[sk] = false
		}
	}

	occurrences := make(map[string]int)
	hands := make(map[string]map[string]bool)
	playerSets := make(map[string][]string)
	for _, sk := range order {
		if !allCheckByStreet[sk] || len(actorsByStreet[sk]) < 2 {
			continue
		}
		ids := make([]string, 0, len(actorsByStreet[sk]))
		for pid := range actorsByStreet[sk] {
			ids = append(ids, pid)
		}
		sort.Strings(ids)
		key := playersKey(ids)
		occurrences[key]++
		playerSets[key] = ids
		if hands[key] == nil {
			hands[key] = make(map[string]bool)
		}
		hands[key][sk.handID] = true
	}

	var signals []DetectionSignal
	keys := make([]string, 0, len(occurrences))
	for k := range occurrences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		count := occurrences[key]
		if count < d.Thresholds.CoordinatedMinOccurrences {
			continue
		}
		handIDs := make([]string, 0, len(hands[key]))
		for h := range hands[key] {
			handIDs = append(handIDs, h)
		}
		sort.Strings(handIDs)
		strength := clampUnit(float64(count) / float64(count+d.Thresholds.CoordinatedMinOccurrences))
		ind := Indicator{
			Pattern:       "coordinated-checkdowns",
			Strength:      strength,
			Occurrences:   count,
			ExpectedCount: float64(d.Thresholds.CoordinatedMinOccurrences),
			ZScore:        zScore(count, float64(d.Thresholds.CoordinatedMinOccurrences)),
			Players:       playerSets[key],
			HandIDs:       handIDs,
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

// coordinatedBetting is coordinatedCheckdowns' counterpart (spec.md
// §4.5's bundled "coordinated betting and unnatural checkdowns"
// pattern): instead of flagging a street where everyone checked it
// through, it flags a street where every acting player bet or raised
// — nobody simply called or folded — which is exactly as unnatural a
// show of synchronized pressure as an all-check street is of
// synchronized passivity. Same ≥3-recurrence-for-the-same-player-set
// gate as the checkdown pattern.
func (d *CollusionDetector) coordinatedBetting(events []Event) []DetectionSignal {
	type streetKey struct {
		handID string
		street string
	}
	actorsByStreet := make(map[streetKey]map[string]bool)
	allAggressiveByStreet := make(map[streetKey]bool)
	order := []streetKey{}

	for _, e := range events {
		if e.Kind != KindActionTaken {
			continue
		}
		sk := streetKey{handID: e.HandID, street: e.Street}
		if actorsByStreet[sk] == nil {
			actorsByStreet[sk] = make(map[string]bool)
			allAggressiveByStreet[sk] = true
			order = append(order, sk)
		}
		actorsByStreet[sk][e.PlayerID] = true
		switch e.Action {
		case "bet", "raise", "all-in":
		default:
			allAggressiveByStreet[sk] = false
		}
	}

	occurrences := make(map[string]int)
	hands := make(map[string]map[string]bool)
	playerSets := make(map[string][]string)
	for _, sk := range order {
		if !allAggressiveByStreet[sk] || len(actorsByStreet[sk]) < 2 {
			continue
		}
		ids := make([]string, 0, len(actorsByStreet[sk]))
		for pid := range actorsByStreet[sk] {
			ids = append(ids, pid)
		}
		sort.Strings(ids)
		key := playersKey(ids)
		occurrences[key]++
		playerSets[key] = ids
		if hands[key] == nil {
			hands[key] = make(map[string]bool)
		}
		hands[key][sk.handID] = true
	}

	var signals []DetectionSignal
	keys := make([]string, 0, len(occurrences))
	for k := range occurrences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		count := occurrences[key]
		if count < d.Thresholds.CoordinatedMinOccurrences {
			continue
		}
		handIDs := make([]string, 0, len(hands[key]))
		for h := range hands[key] {
			handIDs = append(handIDs, h)
		}
		sort.Strings(handIDs)
		strength := clampUnit(float64(count) / float64(count+d.Thresholds.CoordinatedMinOccurrences))
		ind := Indicator{
			Pattern:       "coordinated-betting",
			Strength:      strength,
			Occurrences:   count,
			ExpectedCount: float64(d.Thresholds.CoordinatedMinOccurrences),
			ZScore:        zScore(count, float64(d.Thresholds.CoordinatedMinOccurrences)),
			Players:       playerSets[key],
			HandIDs:       handIDs,
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

// networkPosition scores every edge of the player-interaction graph by
// combining co-occurrence, seating adjacency, and the pair's
// already-computed chip-flow concentration and aggression asymmetry
// into one weighted network score (spec.md §4.5's pairwise edge
// enrichment), flagging pairs whose combined relational footprint
// crosses NetworkScoreThreshold even when no single component alone
// would.
func (d *CollusionDetector) networkPosition(result Result, graph *PlayerInteractionGraph) []DetectionSignal {
	var signals []DetectionSignal
	for _, e := range graph.Edges() {
		if e.CoOccurrences < d.Thresholds.MinCoOccurrenceSample {
			continue
		}

		coOccScore := progressToward(e.CoOccurrences, d.Thresholds.CoOccurrenceThreshold)
		seatScore := progressToward(e.SeatingAdjacency, d.Thresholds.SeatingAdjacencyThreshold)

		chipScore := chipFractionTo(result.ChipFlow, e.PlayerA, e.PlayerB)
		if alt := chipFractionTo(result.ChipFlow, e.PlayerB, e.PlayerA); alt > chipScore {
			chipScore = alt
		}

		aggressionScore := 0.0
		if pm, ok := result.PairFor(e.PlayerA, e.PlayerB); ok {
			aggressionScore = clampUnit(pm.AggressionAsymmetry())
		}

		networkScore := coOccScore*d.Thresholds.CoOccurrenceWeight +
			seatScore*d.Thresholds.SeatingAdjacencyWeight +
			chipScore*d.Thresholds.ChipFlowWeight +
			aggressionScore*d.Thresholds.AggressionWeight

		if networkScore <= d.Thresholds.NetworkScoreThreshold {
			continue
		}

		ind := Indicator{
			Pattern:       "player-interaction-network",
			Strength:      clampUnit(networkScore),
			Occurrences:   e.CoOccurrences,
			ExpectedCount: float64(d.Thresholds.CoOccurrenceThreshold),
			ZScore:        zScore(e.CoOccurrences, float64(d.Thresholds.CoOccurrenceThreshold)),
			Players:       []string{e.PlayerA, e.PlayerB},
		}
		signals = append(signals, toSignal(ind))
	}
	return signals
}

// progressToward is how far count has closed the gap to threshold,
// saturating at 1 once count reaches it.
func progressToward(count, threshold int) float64 {
	if threshold <= 0 {
		return 0
	}
	if count >= threshold {
		return 1
	}
	return float64(count) / float64(threshold)
}

func chipFractionTo(flow ChipFlowMatrix, from, to string) float64 {
	row, ok := flow[from]
	if !ok {
		return 0
	}
	var total int64
	for _, v := range row {
		total += v
	}
	if total == 0 {
		return 0
	}
	return float64(row[to]) / float64(total)
}

func sortedPairKeys(pairs map[pairKey]*PairMetrics) []pairKey {
	keys := make([]pairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}
