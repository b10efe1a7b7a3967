package integrity

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// RiskLevel buckets a TableRiskReport.RiskScore (spec.md §4.5).
type RiskLevel string

const (
	RiskClean    RiskLevel = "CLEAN"
	RiskLow      RiskLevel = "LOW_RISK"
	RiskModerate RiskLevel = "MODERATE_RISK"
	RiskHigh     RiskLevel = "HIGH_RISK"
	RiskCritical RiskLevel = "CRITICAL"
)

func riskLevelFor(score float64) RiskLevel {
	switch {
	case score >= 85:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskModerate
	case score >= 10:
		return RiskLow
	default:
		return RiskClean
	}
}

// PlayerRiskReport is one player's slice of a table report: every
// signal that names them, across all three detectors.
type PlayerRiskReport struct {
	PlayerID string
	Signals  []DetectionSignal
	Score    float64 // max signal strength involving this player
}

// TableRiskReport aggregates detection indicators and per-player
// reports into one table-level score and level (spec.md §4.5).
type TableRiskReport struct {
	TableID string

	CollusionSignals []DetectionSignal
	SoftPlaySignals  []DetectionSignal
	AbuseSignals     []DetectionSignal

	PlayerReports map[string]*PlayerRiskReport

	RiskScore  float64 // [0,100]
	RiskLevel  RiskLevel
	Confidence float64 // [0,1], scales with evidence volume
}

// riskWeights sums to 0.75 (spec.md §4.5); RiskReportEngine normalizes
// the weighted sum by this total rather than assuming it sums to 1, so
// adding a future weighted category never silently requires rebalancing
// the existing three.
const (
	collusionWeight = 0.3
	softPlayWeight  = 0.2
	abuseWeight     = 0.25
)

var riskWeightTotal = collusionWeight + softPlayWeight + abuseWeight

// multipleHighRiskBoost is added to the normalized score when two or
// more distinct players carry a high-or-critical severity signal —
// a single bad actor is noise, two acting in concert is not.
const multipleHighRiskBoost = 15

// RiskReportEngine runs all three detectors over a table's integrity
// events and metrics, fanning them out concurrently since each is an
// independent, read-only pass over the same inputs.
type RiskReportEngine struct {
	Collusion *CollusionDetector
	SoftPlay  *SoftPlayDetector
	Abuse     *AuthorityAbuseDetector
}

func NewRiskReportEngine(collusion *CollusionDetector, softPlay *SoftPlayDetector, abuse *AuthorityAbuseDetector) *RiskReportEngine {
	return &RiskReportEngine{Collusion: collusion, SoftPlay: softPlay, Abuse: abuse}
}

// Generate produces tableID's risk report from result (the already
// computed Compute(events, ...) output) and the raw events the
// collusion/abuse detectors need directly.
func (e *RiskReportEngine) Generate(ctx context.Context, tableID string, result Result, events []Event) (*TableRiskReport, error) {
	var collusionSignals, softPlaySignals, abuseSignals []DetectionSignal

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		collusionSignals = e.Collusion.Detect(result, events)
		return nil
	})
	g.Go(func() error {
		softPlaySignals = e.SoftPlay.Detect(result)
		return nil
	})
	g.Go(func() error {
		abuseSignals = e.Abuse.Detect(events)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &TableRiskReport{
		TableID:          tableID,
		CollusionSignals: collusionSignals,
		SoftPlaySignals:  softPlaySignals,
		AbuseSignals:     abuseSignals,
		PlayerReports:    make(map[string]*PlayerRiskReport),
	}

	all := append(append(append([]DetectionSignal{}, collusionSignals...), softPlaySignals...), abuseSignals...)
	highRiskPlayers := make(map[string]bool)
	totalOccurrences := 0
	for _, sig := range all {
		totalOccurrences += sig.Indicator.Occurrences
		for _, pid := range sig.Indicator.Players {
			pr, ok := report.PlayerReports[pid]
			if !ok {
				pr = &PlayerRiskReport{PlayerID: pid}
				report.PlayerReports[pid] = pr
			}
			pr.Signals = append(pr.Signals, sig)
			if sig.Indicator.Strength > pr.Score {
				pr.Score = sig.Indicator.Strength
			}
			if sig.Severity == SeverityHigh || sig.Severity == SeverityCritical {
				highRiskPlayers[pid] = true
			}
		}
	}

	weighted := categoryScore(collusionSignals)*collusionWeight +
		categoryScore(softPlaySignals)*softPlayWeight +
		categoryScore(abuseSignals)*abuseWeight
	score := (weighted / riskWeightTotal) * 100
	if len(highRiskPlayers) >= 2 {
		score += multipleHighRiskBoost
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	report.RiskScore = score
	report.RiskLevel = riskLevelFor(score)
	report.Confidence = clampUnit(float64(totalOccurrences) / float64(totalOccurrences+20))

	return report, nil
}

// categoryScore is the mean strength across a detector's signals; an
// empty category contributes 0, not an undefined average.
func categoryScore(signals []DetectionSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signals {
		sum += s.Indicator.Strength
	}
	return sum / float64(len(signals))
}

// SortedPlayerReports returns the table's per-player reports ordered
// by player id, for deterministic presentation.
func (r *TableRiskReport) SortedPlayerReports() []*PlayerRiskReport {
	ids := make([]string, 0, len(r.PlayerReports))
	for id := range r.PlayerReports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*PlayerRiskReport, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.PlayerReports[id])
	}
	return out
}
