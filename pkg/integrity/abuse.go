package integrity

import "sort"

// AuthorityAbuseThresholds parameterizes the patterns that look for a
// table operator using their privileged powers (pause, config, kick)
// to their own advantage (spec.md §4.5).
type AuthorityAbuseThresholds struct {
	PauseFacingActionRate float64 // fraction of pauses landing while someone faces a decision
	MinPauseSample        int

	ConfigChangeWindowMs int64 // how soon after an authority loss a config change looks correlated
	ConfigChangeRate     float64
	MinConfigChangeSample int

	SelectiveKickRate float64 // fraction of kicks targeting net-winning opponents
	MinKickSample     int

	InterventionWindowMs     int64 // pre/post window around an intervention, for win-rate comparison
	InterventionWinRateDelta float64
	MinInterventionSample    int
}

func DefaultAuthorityAbuseThresholds() AuthorityAbuseThresholds {
	return AuthorityAbuseThresholds{
		PauseFacingActionRate:  0.5,
		MinPauseSample:         5,
		ConfigChangeWindowMs:   5 * 60 * 1000,
		ConfigChangeRate:       0.4,
		MinConfigChangeSample:  3,
		SelectiveKickRate:      0.6,
		MinKickSample:          3,
		InterventionWindowMs:   30 * 60 * 1000,
		InterventionWinRateDelta: 0.2,
		MinInterventionSample:  5,
	}
}

// AuthorityAbuseDetector evaluates the event stream for patterns of a
// table operator exploiting pause/config/kick powers, keyed on the
// player id the operator plays under (if any — most patterns need no
// such id, but intervention-correlation compares the operator's own
// win rate before and after their interventions).
type AuthorityAbuseDetector struct {
	Thresholds        AuthorityAbuseThresholds
	AuthorityPlayerID string
}

func NewAuthorityAbuseDetector(t AuthorityAbuseThresholds, authorityPlayerID string) *AuthorityAbuseDetector {
	return &AuthorityAbuseDetector{Thresholds: t, AuthorityPlayerID: authorityPlayerID}
}

func (d *AuthorityAbuseDetector) Detect(events []Event) []DetectionSignal {
	var signals []DetectionSignal
	signals = append(signals, d.suspiciousPauseTiming(events)...)
	signals = append(signals, d.configChangeAfterLoss(events)...)
	signals = append(signals, d.selectiveKicks(events)...)
	if d.AuthorityPlayerID != "" {
		signals = append(signals, d.interventionCorrelation(events)...)
	}
	return signals
}

func (d *AuthorityAbuseDetector) suspiciousPauseTiming(events []Event) []DetectionSignal {
	var total, facingAction int
	var handIDs []string
	for _, e := range events {
		if e.Kind != KindAuthorityPause {
			continue
		}
		total++
		if e.FacingAction {
			facingAction++
			handIDs = append(handIDs, e.HandID)
		}
	}
	if total < d.Thresholds.MinPauseSample {
		return nil
	}
	rate := ratio(facingAction, total)
	if rate <= d.Thresholds.PauseFacingActionRate {
		return nil
	}
	expected := d.Thresholds.PauseFacingActionRate * float64(total)
	ind := Indicator{
		Pattern:       "suspicious-pause-timing",
		Strength:      clampUnit(rate),
		Occurrences:   facingAction,
		ExpectedCount: expected,
		ZScore:        zScore(facingAction, expected),
		HandIDs:       dedupStrings(handIDs),
	}
	return []DetectionSignal{toSignal(ind)}
}

func (d *AuthorityAbuseDetector) configChangeAfterLoss(events []Event) []DetectionSignal {
	var lossTimestamps []int64
	for _, e := range events {
		if e.Kind == KindPotAwarded && d.AuthorityPlayerID != "" && e.WinnerID != d.AuthorityPlayerID {
			for _, c := range e.Contributors {
				if c == d.AuthorityPlayerID {
					lossTimestamps = append(lossTimestamps, e.Timestamp)
					break
				}
			}
		}
	}

	var total, correlated int
	var handIDs []string
	for _, e := range events {
		if e.Kind != KindConfigChange {
			continue
		}
		total++
		for _, lt := range lossTimestamps {
			if e.Timestamp >= lt && e.Timestamp-lt <= d.Thresholds.ConfigChangeWindowMs {
				correlated++
				handIDs = append(handIDs, e.HandID)
				break
			}
		}
	}
	if total < d.Thresholds.MinConfigChangeSample {
		return nil
	}
	rate := ratio(correlated, total)
	if rate <= d.Thresholds.ConfigChangeRate {
		return nil
	}
	expected := d.Thresholds.ConfigChangeRate * float64(total)
	ind := Indicator{
		Pattern:       "config-change-after-loss",
		Strength:      clampUnit(rate),
		Occurrences:   correlated,
		ExpectedCount: expected,
		ZScore:        zScore(correlated, expected),
		HandIDs:       dedupStrings(handIDs),
	}
	return []DetectionSignal{toSignal(ind)}
}

func (d *AuthorityAbuseDetector) selectiveKicks(events []Event) []DetectionSignal {
	var total, winning int
	var players []string
	for _, e := range events {
		if e.Kind != KindPlayerKicked {
			continue
		}
		total++
		if e.RecentNetWin > 0 {
			winning++
			players = append(players, e.PlayerID)
		}
	}
	if total < d.Thresholds.MinKickSample {
		return nil
	}
	rate := ratio(winning, total)
	if rate <= d.Thresholds.SelectiveKickRate {
		return nil
	}
	expected := d.Thresholds.SelectiveKickRate * float64(total)
	ind := Indicator{
		Pattern:       "selective-kicks-of-winners",
		Strength:      clampUnit(rate),
		Occurrences:   winning,
		ExpectedCount: expected,
		ZScore:        zScore(winning, expected),
		Players:       dedupStrings(players),
	}
	return []DetectionSignal{toSignal(ind)}
}

// interventionCorrelation compares the authority's own per-hand win
// rate in the window before versus after each pause/config-change
// event (an "intervention"); a material, recurring improvement is
// the signal, not any single instance.
func (d *AuthorityAbuseDetector) interventionCorrelation(events []Event) []DetectionSignal {
	var interventions []int64
	for _, e := range events {
		if e.Kind == KindAuthorityPause || e.Kind == KindConfigChange {
			interventions = append(interventions, e.Timestamp)
		}
	}
	if len(interventions) == 0 {
		return nil
	}

	var potEvents []Event
	for _, e := range events {
		if e.Kind == KindPotAwarded {
			potEvents = append(potEvents, e)
		}
	}

	var preWins, preTotal, postWins, postTotal int
	for _, t := range interventions {
		for _, e := range potEvents {
			won := e.WinnerID == d.AuthorityPlayerID
			if e.Timestamp < t && t-e.Timestamp <= d.Thresholds.InterventionWindowMs {
				preTotal++
				if won {
					preWins++
				}
			} else if e.Timestamp >= t && e.Timestamp-t <= d.Thresholds.InterventionWindowMs {
				postTotal++
				if won {
					postWins++
				}
			}
		}
	}
	if preTotal < d.Thresholds.MinInterventionSample || postTotal < d.Thresholds.MinInterventionSample {
		return nil
	}
	preRate := ratio(preWins, preTotal)
	postRate := ratio(postWins, postTotal)
	delta := postRate - preRate
	if delta <= d.Thresholds.InterventionWinRateDelta {
		return nil
	}
	expected := preRate * float64(postTotal)
	ind := Indicator{
		Pattern:       "intervention-correlation",
		Strength:      clampUnit(delta),
		Occurrences:   postWins,
		ExpectedCount: expected,
		ZScore:        zScore(postWins, expected),
		Players:       []string{d.AuthorityPlayerID},
	}
	return []DetectionSignal{toSignal(ind)}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
