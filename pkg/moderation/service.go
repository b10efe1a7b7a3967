package moderation

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pokerauthority/core/pkg/clock"
	"github.com/pokerauthority/core/pkg/protocol"
	"github.com/pokerauthority/core/pkg/statemachine"
)

// caseEntry bundles a Case with its live state machine; the machine
// holds a pointer to the same Case so Dispatch mutates it in place.
type caseEntry struct {
	c  *Case
	sm *statemachine.StateMachine[Case]
}

// ModeratorService is the composition point for the case workflow and
// its decision log: it owns every open case, drives their state
// machines off moderator commands, and appends one decision-log entry
// per accepted transition.
type ModeratorService struct {
	mu     sync.Mutex
	clk    clock.Clock
	cases  map[string]*caseEntry
	log    *DecisionLogger
}

func NewModeratorService(clk clock.Clock, log *DecisionLogger) *ModeratorService {
	return &ModeratorService{clk: clk, cases: make(map[string]*caseEntry), log: log}
}

// OpenCase creates a new case in PENDING_REVIEW for handID/tableID,
// raised by openedBy (a player id for a report, or a detector name for
// an automated flag).
func (s *ModeratorService) OpenCase(handID, tableID, openedBy string) *Case {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now().UnixMilli()
	c := NewCase(uuid.NewString(), handID, tableID, openedBy, now)
	s.cases[c.ID] = &caseEntry{c: c, sm: NewCaseMachine(c)}
	s.log.Record(openedBy, ActionOpenCase, c.ID, fmt.Sprintf("hand %s flagged", handID), now)
	return c
}

// Case returns the current state of caseID.
func (s *ModeratorService) Case(caseID string) (*Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cases[caseID]
	if !ok {
		return nil, false
	}
	cp := *entry.c
	return &cp, true
}

func (s *ModeratorService) dispatch(caseID, moderatorID string, cmd CaseCommand, action DecisionActionType, details string) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cases[caseID]
	if !ok {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, fmt.Sprintf("unknown case %s", caseID), nil)
	}

	before := entry.c.Status
	now := s.clk.Now().UnixMilli()
	entry.c.PendingCommand = cmd
	entry.c.pendingDetails = details
	entry.c.ModeratorID = moderatorID
	entry.c.UpdatedAt = now
	entry.sm.Dispatch(nil)

	if entry.c.Status == before {
		return nil, protocol.NewReject(protocol.CodeIllegalAction, fmt.Sprintf("%s is not a valid transition from %s", cmd, before), nil)
	}

	s.log.Record(moderatorID, action, caseID, details, now)
	cp := *entry.c
	return &cp, nil
}

func (s *ModeratorService) BeginInvestigation(caseID, moderatorID string) (*Case, error) {
	return s.dispatch(caseID, moderatorID, CmdBeginInvestigation, ActionBeginInvestigation, "")
}

func (s *ModeratorService) SubmitForDecision(caseID, moderatorID, details string) (*Case, error) {
	return s.dispatch(caseID, moderatorID, CmdSubmitForDecision, ActionSubmitForDecision, details)
}

func (s *ModeratorService) Resolve(caseID, moderatorID, details string) (*Case, error) {
	return s.dispatch(caseID, moderatorID, CmdResolve, ActionResolve, details)
}

func (s *ModeratorService) Dismiss(caseID, moderatorID, details string) (*Case, error) {
	return s.dispatch(caseID, moderatorID, CmdDismiss, ActionDismiss, details)
}

func (s *ModeratorService) Escalate(caseID, moderatorID, details string) (*Case, error) {
	return s.dispatch(caseID, moderatorID, CmdEscalate, ActionEscalate, details)
}

func (s *ModeratorService) Reopen(caseID, moderatorID, details string) (*Case, error) {
	return s.dispatch(caseID, moderatorID, CmdReopen, ActionReopen, details)
}

// Annotate records an investigator's note and resolution
// recommendation against a case UNDER_INVESTIGATION (spec.md §4.6's
// "[annotate ...]" step). Unlike the other commands it never changes
// Status, so it cannot go through dispatch's before/after status
// check; it has its own guard instead and may be called any number of
// times ahead of SubmitForDecision.
func (s *ModeratorService) Annotate(caseID, moderatorID, recommendation string) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cases[caseID]
	if !ok {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, fmt.Sprintf("unknown case %s", caseID), nil)
	}
	if entry.c.Status != StatusUnderInvestigation {
		return nil, protocol.NewReject(protocol.CodeIllegalAction, fmt.Sprintf("annotate is not valid from %s", entry.c.Status), nil)
	}

	now := s.clk.Now().UnixMilli()
	entry.c.PendingCommand = CmdAnnotate
	entry.c.pendingAnnotation = recommendation
	entry.c.ModeratorID = moderatorID
	entry.c.UpdatedAt = now
	entry.sm.Dispatch(nil)

	s.log.Record(moderatorID, ActionAnnotate, caseID, recommendation, now)
	cp := *entry.c
	return &cp, nil
}

// ViewReplay logs a moderator's read of a hand replay against caseID
// (spec.md §4.6: "All reads (view replay, view bundle) are logged").
// It never mutates the case beyond the decision-log side effect.
func (s *ModeratorService) ViewReplay(caseID, moderatorID string, replay *HandReplay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[caseID]; !ok {
		return protocol.NewReject(protocol.CodeInvalidTableID, fmt.Sprintf("unknown case %s", caseID), nil)
	}

	now := s.clk.Now().UnixMilli()
	s.log.Record(moderatorID, ActionViewReplay, caseID, fmt.Sprintf("viewed replay for hand %s", replay.HandID), now)
	return nil
}

// ViewBundle logs a moderator's read of an evidence bundle against
// caseID, and links the case to that bundle the first time one is
// viewed.
func (s *ModeratorService) ViewBundle(caseID, moderatorID string, bundle *EvidenceBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cases[caseID]
	if !ok {
		return protocol.NewReject(protocol.CodeInvalidTableID, fmt.Sprintf("unknown case %s", caseID), nil)
	}
	if entry.c.BundleID == "" {
		entry.c.BundleID = bundle.BundleID
	}

	now := s.clk.Now().UnixMilli()
	s.log.Record(moderatorID, ActionViewBundle, caseID, fmt.Sprintf("viewed evidence bundle %s", bundle.BundleID), now)
	return nil
}

// CaseHistory returns caseID's recorded state transitions, oldest
// first — an introspection aid distinct from the decision log: the
// decision log is the hash-chained record of record, this is a cheap
// in-memory trail of status changes for dashboards and tests.
func (s *ModeratorService) CaseHistory(caseID string) ([]statemachine.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cases[caseID]
	if !ok {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, fmt.Sprintf("unknown case %s", caseID), nil)
	}
	return entry.sm.History(), nil
}

// DecisionLog exposes the underlying hash-chained log for verification
// and querying.
func (s *ModeratorService) DecisionLog() *DecisionLogger { return s.log }
