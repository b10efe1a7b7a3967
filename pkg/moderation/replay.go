package moderation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pokerauthority/core/pkg/protocol"
)

// HandID is the replay/evidence identifier for one played hand: the
// table it was played at plus the authority's own per-table hand
// counter, since protocol.Event itself carries no handId field.
func HandID(tableID string, handNumber int64) string {
	return fmt.Sprintf("%s:%d", tableID, handNumber)
}

// StackEntry is one player's chip stack at a point in the replay,
// kept as a slice element (rather than a map) so it marshals in a
// fixed, sorted order for hashing.
type StackEntry struct {
	PlayerID string
	Stack    int64
}

// HandState is the table state at one point during a hand.
type HandState struct {
	Street         string
	CommunityCards []string
	PotTotal       int64
	Stacks         []StackEntry // sorted by PlayerID
}

func (s HandState) withStack(playerID string, stack int64) HandState {
	out := HandState{Street: s.Street, PotTotal: s.PotTotal}
	out.CommunityCards = append([]string(nil), s.CommunityCards...)
	found := false
	out.Stacks = make([]StackEntry, 0, len(s.Stacks)+1)
	for _, e := range s.Stacks {
		if e.PlayerID == playerID {
			out.Stacks = append(out.Stacks, StackEntry{PlayerID: playerID, Stack: stack})
			found = true
			continue
		}
		out.Stacks = append(out.Stacks, e)
	}
	if !found {
		out.Stacks = append(out.Stacks, StackEntry{PlayerID: playerID, Stack: stack})
	}
	sort.Slice(out.Stacks, func(i, j int) bool { return out.Stacks[i].PlayerID < out.Stacks[j].PlayerID })
	return out
}

// ReplayStep is one state transition in a HandReplay.
type ReplayStep struct {
	State       HandState
	Action      *protocol.Action // nil for non-action steps (street/pot changes)
	Diff        string
	SourceEvent protocol.EventType
}

// HandReplay is a deterministic reconstruction of one hand's lifecycle
// (spec.md §4.6): initial state, every intervening step, final state,
// winners, total pot, duration, and a checksum over the whole sequence.
type HandReplay struct {
	HandID          string
	InitialState    HandState
	Steps           []ReplayStep
	FinalState      HandState
	Winners         []protocol.Winner
	TotalPotAwarded int64
	DurationMs      int64
	Checksum        string
}

// HandReplayEngine rebuilds a HandReplay from the authority's own
// outbox event stream (protocol.Event), the same events broadcast to
// clients — grounded on the teacher's event-sourced design where
// every client-visible change already passes through a typed event.
type HandReplayEngine struct{}

func NewHandReplayEngine() *HandReplayEngine { return &HandReplayEngine{} }

// Replay scans events (assumed ordered, already filtered or not to one
// table) for the HandStarted/HandEnded pair identifying handID, and
// replays everything between them.
func (e *HandReplayEngine) Replay(events []protocol.Event, handID string) (*HandReplay, error) {
	var startIdx, endIdx = -1, -1
	var tableID string
	for i, ev := range events {
		if ev.Type == protocol.EventHandStarted && ev.HandStarted != nil {
			if HandID(ev.TableID, ev.HandStarted.HandNumber) == handID {
				startIdx = i
				tableID = ev.TableID
				break
			}
		}
	}
	if startIdx == -1 {
		return nil, fmt.Errorf("moderation: no hand-started event found for %s", handID)
	}
	for i := startIdx + 1; i < len(events); i++ {
		if events[i].TableID != tableID {
			continue
		}
		if events[i].Type == protocol.EventHandEnded {
			endIdx = i
			break
		}
	}
	if endIdx == -1 {
		return nil, fmt.Errorf("moderation: no hand-ended event found for %s", handID)
	}

	state := HandState{Street: "preflop"}
	replay := &HandReplay{HandID: handID, InitialState: state}

	for i := startIdx + 1; i <= endIdx; i++ {
		ev := events[i]
		if ev.TableID != tableID {
			continue
		}
		switch ev.Type {
		case protocol.EventActionPerformed:
			p := ev.ActionPerformed
			state = state.withStack(p.PlayerID, p.NewStack)
			state.PotTotal = p.PotTotal
			replay.Steps = append(replay.Steps, ReplayStep{
				State:       state,
				Action:      &p.Action,
				Diff:        fmt.Sprintf("%s %s amount=%d pot=%d", p.PlayerID, p.Action.Type, p.Action.Amount, p.PotTotal),
				SourceEvent: ev.Type,
			})
		case protocol.EventStreetChanged:
			p := ev.StreetChanged
			state.Street = p.Street
			state.CommunityCards = append([]string(nil), p.CommunityCards...)
			replay.Steps = append(replay.Steps, ReplayStep{
				State:       state,
				Diff:        fmt.Sprintf("street -> %s board=%v", p.Street, p.CommunityCards),
				SourceEvent: ev.Type,
			})
		case protocol.EventPotUpdated:
			state.PotTotal = ev.PotUpdated.PotTotal
			replay.Steps = append(replay.Steps, ReplayStep{
				State:       state,
				Diff:        fmt.Sprintf("pot -> %d", state.PotTotal),
				SourceEvent: ev.Type,
			})
		case protocol.EventHandEnded:
			p := ev.HandEnded
			replay.Winners = p.Winners
			var total int64
			for _, w := range p.Winners {
				total += w.Amount
			}
			replay.TotalPotAwarded = total
			replay.DurationMs = ev.Header.Timestamp - events[startIdx].Header.Timestamp
			replay.Steps = append(replay.Steps, ReplayStep{
				State:       state,
				Diff:        fmt.Sprintf("hand ended reason=%s winners=%v", p.EndReason, p.Winners),
				SourceEvent: ev.Type,
			})
		}
	}

	replay.FinalState = state
	replay.Checksum = checksumReplay(replay)
	return replay, nil
}

// replayChecksumInput is the canonical, hashed view of a HandReplay —
// every step's action plus a hash of the resulting state, per spec.md
// §4.6's literal `{handId, [each step's action + hash(state)]}`.
type replayChecksumInput struct {
	HandID string
	Steps  []stepChecksumInput
}

type stepChecksumInput struct {
	Action     *protocol.Action
	StateHash  string
	SourceType protocol.EventType
}

func hashState(s HandState) string {
	b, _ := json.Marshal(s) // Stacks is already kept sorted by PlayerID
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func checksumReplay(r *HandReplay) string {
	input := replayChecksumInput{HandID: r.HandID}
	for _, step := range r.Steps {
		input.Steps = append(input.Steps, stepChecksumInput{
			Action:     step.Action,
			StateHash:  hashState(step.State),
			SourceType: step.SourceEvent,
		})
	}
	b, _ := json.Marshal(input)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyReplayDeterminism recomputes replay's checksum and reports
// whether it still matches the stored one.
func VerifyReplayDeterminism(replay *HandReplay) bool {
	return checksumReplay(replay) == replay.Checksum
}
