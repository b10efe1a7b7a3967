// Package moderation is the read-side human-review surface (spec.md
// §4.6): hand replay, evidence bundling, an append-only decision log,
// and the case-status workflow a moderator drives them through. Like
// integrity, it only ever reads authority/integrity state.
package moderation

import (
	"github.com/pokerauthority/core/pkg/statemachine"
)

// CaseStatus is one of the case-review workflow's discrete states.
type CaseStatus string

const (
	StatusPendingReview      CaseStatus = "PENDING_REVIEW"
	StatusUnderInvestigation CaseStatus = "UNDER_INVESTIGATION"
	StatusAwaitingDecision   CaseStatus = "AWAITING_DECISION"
	StatusResolved           CaseStatus = "RESOLVED"
	StatusDismissed          CaseStatus = "DISMISSED"
	StatusEscalated          CaseStatus = "ESCALATED"
)

// CaseCommand is a moderator-issued request to move a case forward.
// The case machine only ever reacts to PendingCommand; it never
// advances on its own.
type CaseCommand string

const (
	cmdNone               CaseCommand = ""
	CmdAnnotate           CaseCommand = "annotate"
	CmdBeginInvestigation CaseCommand = "begin-investigation"
	CmdSubmitForDecision  CaseCommand = "submit-for-decision"
	CmdResolve            CaseCommand = "resolve"
	CmdDismiss            CaseCommand = "dismiss"
	CmdEscalate           CaseCommand = "escalate"
	CmdReopen             CaseCommand = "reopen"
)

// Case is one flagged-hand review, reachable from a DetectionSignal or
// a manual report. Transition guards live in the state functions below;
// Case itself is the entity the generic state machine operates on.
type Case struct {
	ID       string
	HandID   string
	TableID  string
	OpenedBy string // player id or moderator id that raised it

	Status         CaseStatus
	PendingCommand CaseCommand

	ModeratorID string
	Notes       []string
	ReopenCount int

	// BundleID links the case to the evidence bundle a moderator last
	// viewed for it (spec.md §4.6's evidence bundle reference); set the
	// first time ViewBundle is called against the case.
	BundleID string
	// ResolutionRecommendation is the investigator's [annotate ...]
	// note recorded while UNDER_INVESTIGATION, ahead of the
	// recommend/AWAITING_DECISION transition.
	ResolutionRecommendation string
	// FinalDecision is the decision text attached to whichever terminal
	// command (resolve/dismiss/escalate) last moved the case forward.
	FinalDecision string

	// pendingAnnotation and pendingDetails are transient inputs set by
	// ModeratorService immediately before a Dispatch call and consumed
	// by the state function that Dispatch runs; they never outlive one
	// Dispatch.
	pendingAnnotation string
	pendingDetails    string

	CreatedAt int64
	UpdatedAt int64
}

// NewCase starts a case in PENDING_REVIEW, spec.md §4.6's entry state.
func NewCase(id, handID, tableID, openedBy string, createdAt int64) *Case {
	return &Case{
		ID: id, HandID: handID, TableID: tableID, OpenedBy: openedBy,
		Status: StatusPendingReview, CreatedAt: createdAt, UpdatedAt: createdAt,
	}
}

// NewCaseMachine wires c into the generic state machine, following the
// teacher's Rob Pike-style StateFn[T] pattern: each state function
// inspects c.PendingCommand, applies the transition if it's a command
// that state accepts, clears it, and returns the next state function —
// or returns itself unchanged for a command it doesn't accept.
func NewCaseMachine(c *Case) *statemachine.StateMachine[Case] {
	return statemachine.NewStateMachine(c, pendingReviewState)
}

// transition applies next; the caller (ModeratorService) is
// responsible for stamping c.UpdatedAt before dispatching, since state
// functions must stay pure and never read a clock themselves.
func transition(c *Case, next CaseStatus) {
	c.Status = next
	c.PendingCommand = cmdNone
}

// finalize transitions to next and records whatever decision text the
// caller attached via pendingDetails as the case's FinalDecision — for
// the resolve/dismiss/escalate commands, all of which conclude a round
// of review with a moderator's ruling, not just a status flip.
func finalize(c *Case, next CaseStatus) {
	transition(c, next)
	if c.pendingDetails != "" {
		c.FinalDecision = c.pendingDetails
	}
	c.pendingDetails = ""
}

func pendingReviewState(c *Case, cb func(string, statemachine.StateEvent)) statemachine.StateFn[Case] {
	switch c.PendingCommand {
	case CmdBeginInvestigation:
		transition(c, StatusUnderInvestigation)
		notify(cb, string(StatusUnderInvestigation))
		return underInvestigationState
	case CmdDismiss:
		finalize(c, StatusDismissed)
		notify(cb, string(StatusDismissed))
		return dismissedState
	default:
		c.PendingCommand = cmdNone
		return pendingReviewState
	}
}

// underInvestigationState is also where spec.md §4.6's "[annotate ...]"
// step lives: CmdAnnotate records an investigator's note and a
// resolution recommendation without moving the case out of
// UNDER_INVESTIGATION, any number of times, ahead of the
// recommend/AWAITING_DECISION transition CmdSubmitForDecision makes.
func underInvestigationState(c *Case, cb func(string, statemachine.StateEvent)) statemachine.StateFn[Case] {
	switch c.PendingCommand {
	case CmdAnnotate:
		if c.pendingAnnotation != "" {
			c.Notes = append(c.Notes, c.pendingAnnotation)
			c.ResolutionRecommendation = c.pendingAnnotation
		}
		c.pendingAnnotation = ""
		c.PendingCommand = cmdNone
		return underInvestigationState
	case CmdSubmitForDecision:
		transition(c, StatusAwaitingDecision)
		notify(cb, string(StatusAwaitingDecision))
		return awaitingDecisionState
	case CmdDismiss:
		finalize(c, StatusDismissed)
		notify(cb, string(StatusDismissed))
		return dismissedState
	case CmdEscalate:
		finalize(c, StatusEscalated)
		notify(cb, string(StatusEscalated))
		return escalatedState
	default:
		c.PendingCommand = cmdNone
		return underInvestigationState
	}
}

func awaitingDecisionState(c *Case, cb func(string, statemachine.StateEvent)) statemachine.StateFn[Case] {
	switch c.PendingCommand {
	case CmdResolve:
		finalize(c, StatusResolved)
		notify(cb, string(StatusResolved))
		return resolvedState
	case CmdDismiss:
		finalize(c, StatusDismissed)
		notify(cb, string(StatusDismissed))
		return dismissedState
	case CmdEscalate:
		finalize(c, StatusEscalated)
		notify(cb, string(StatusEscalated))
		return escalatedState
	default:
		c.PendingCommand = cmdNone
		return awaitingDecisionState
	}
}

func resolvedState(c *Case, cb func(string, statemachine.StateEvent)) statemachine.StateFn[Case] {
	if c.PendingCommand == CmdReopen {
		c.ReopenCount++
		transition(c, StatusUnderInvestigation)
		notify(cb, string(StatusUnderInvestigation))
		return underInvestigationState
	}
	c.PendingCommand = cmdNone
	return resolvedState
}

func dismissedState(c *Case, cb func(string, statemachine.StateEvent)) statemachine.StateFn[Case] {
	if c.PendingCommand == CmdReopen {
		c.ReopenCount++
		transition(c, StatusUnderInvestigation)
		notify(cb, string(StatusUnderInvestigation))
		return underInvestigationState
	}
	c.PendingCommand = cmdNone
	return dismissedState
}

func escalatedState(c *Case, cb func(string, statemachine.StateEvent)) statemachine.StateFn[Case] {
	switch c.PendingCommand {
	case CmdResolve:
		finalize(c, StatusResolved)
		notify(cb, string(StatusResolved))
		return resolvedState
	case CmdDismiss:
		finalize(c, StatusDismissed)
		notify(cb, string(StatusDismissed))
		return dismissedState
	default:
		c.PendingCommand = cmdNone
		return escalatedState
	}
}

func notify(cb func(string, statemachine.StateEvent), state string) {
	if cb == nil {
		return
	}
	cb(state, statemachine.StateEntered)
}
