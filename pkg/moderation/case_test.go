package moderation

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

func TestCaseWorkflowHappyPath(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())

	c := svc.OpenCase("t1:1", "t1", "integrity-collusion")
	require.Equal(t, StatusPendingReview, c.Status)

	c, err := svc.BeginInvestigation(c.ID, "mod1")
	require.NoError(t, err)
	require.Equal(t, StatusUnderInvestigation, c.Status)

	c, err = svc.SubmitForDecision(c.ID, "mod1", "reviewed hand history")
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingDecision, c.Status)

	c, err = svc.Resolve(c.ID, "mod1", "no action taken")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, c.Status)
	require.Equal(t, "no action taken", c.FinalDecision)

	entries := svc.DecisionLog().ByCase(c.ID)
	require.Len(t, entries, 4)
	require.Nil(t, svc.DecisionLog().VerifyIntegrity())
}

func TestAnnotateRecordsRecommendationWithoutChangingStatus(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "integrity-collusion")

	_, err := svc.BeginInvestigation(c.ID, "mod1")
	require.NoError(t, err)

	c, err = svc.Annotate(c.ID, "mod1", "chip-flow concentrated on one opponent")
	require.NoError(t, err)
	require.Equal(t, StatusUnderInvestigation, c.Status)
	require.Equal(t, "chip-flow concentrated on one opponent", c.ResolutionRecommendation)
	require.Contains(t, c.Notes, "chip-flow concentrated on one opponent")

	c, err = svc.SubmitForDecision(c.ID, "mod1", "recommend dismissal")
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingDecision, c.Status)

	entries := svc.DecisionLog().ByCase(c.ID)
	var sawAnnotate bool
	for _, e := range entries {
		if e.ActionType == ActionAnnotate {
			sawAnnotate = true
		}
	}
	require.True(t, sawAnnotate)
}

func TestAnnotateRejectedOutsideInvestigation(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "integrity-collusion")

	_, err := svc.Annotate(c.ID, "mod1", "too early")
	require.Error(t, err)
}

func TestViewReplayAndViewBundleAreLogged(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "integrity-collusion")

	require.NoError(t, svc.ViewReplay(c.ID, "mod1", &HandReplay{HandID: "t1:1"}))
	require.NoError(t, svc.ViewBundle(c.ID, "mod1", &EvidenceBundle{BundleID: "bundle-1", HandID: "t1:1"}))

	refreshed, ok := svc.Case(c.ID)
	require.True(t, ok)
	require.Equal(t, "bundle-1", refreshed.BundleID)

	entries := svc.DecisionLog().ByCase(c.ID)
	var sawReplay, sawBundle bool
	for _, e := range entries {
		switch e.ActionType {
		case ActionViewReplay:
			sawReplay = true
		case ActionViewBundle:
			sawBundle = true
		}
	}
	require.True(t, sawReplay)
	require.True(t, sawBundle)
}

func TestCaseHistoryTracksTransitions(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "integrity-collusion")

	_, err := svc.BeginInvestigation(c.ID, "mod1")
	require.NoError(t, err)
	_, err = svc.SubmitForDecision(c.ID, "mod1", "")
	require.NoError(t, err)

	history, err := svc.CaseHistory(c.ID)
	require.NoError(t, err)
	require.Equal(t, []string{string(StatusUnderInvestigation), string(StatusAwaitingDecision)}, []string{history[0].To, history[1].To})
}

func TestCaseRejectsInvalidTransition(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "player-report")

	_, err := svc.Resolve(c.ID, "mod1", "")
	require.Error(t, err)

	refreshed, ok := svc.Case(c.ID)
	require.True(t, ok)
	require.Equal(t, StatusPendingReview, refreshed.Status)
}

func TestCaseReopenFromDismissed(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "player-report")

	c, err := svc.Dismiss(c.ID, "mod1", "insufficient evidence")
	require.NoError(t, err)
	require.Equal(t, StatusDismissed, c.Status)

	c, err = svc.Reopen(c.ID, "mod2", "new evidence surfaced")
	require.NoError(t, err)
	require.Equal(t, StatusUnderInvestigation, c.Status)
	require.Equal(t, 1, c.ReopenCount)
}

func TestCaseEscalateFromInvestigation(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "integrity-abuse")

	_, err := svc.BeginInvestigation(c.ID, "mod1")
	require.NoError(t, err)

	c, err = svc.Escalate(c.ID, "mod1", "needs senior review")
	require.NoError(t, err)
	require.Equal(t, StatusEscalated, c.Status)

	c, err = svc.Resolve(c.ID, "mod-senior", "banned player")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, c.Status)
}

func TestDecisionLogDetectsTamper(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "player-report")
	_, err := svc.BeginInvestigation(c.ID, "mod1")
	require.NoError(t, err)

	log := svc.DecisionLog()
	require.Nil(t, log.VerifyIntegrity())

	entries := log.ByCase(c.ID)
	require.NotEmpty(t, entries)
	tampered := entries[0]
	tampered.Details = "tampered"
	log.entries[0] = tampered

	divergence := log.VerifyIntegrity()
	require.NotNil(t, divergence)
	require.Equal(t, 0, divergence.Index)
}

func TestClockAdvanceDoesNotBreakWorkflow(t *testing.T) {
	clk := quartz.NewMock(t)
	svc := NewModeratorService(clk, NewDecisionLogger())
	c := svc.OpenCase("t1:1", "t1", "player-report")

	clk.Advance(5 * time.Minute)
	_, err := svc.BeginInvestigation(c.ID, "mod1")
	require.NoError(t, err)
}
