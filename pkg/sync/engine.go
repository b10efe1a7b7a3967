package sync

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pokerauthority/core/pkg/authority"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
)

// DefaultSnapshotInterval is spec.md §4.3's documented default K: a
// full snapshot is retained every K sequences, plus on every
// seat-structural change regardless of K.
const DefaultSnapshotInterval = 10

const defaultHistoryPerViewer = 32

// viewerKey identifies one (table, viewer) snapshot history.
type viewerKey struct {
	TableID  string
	ViewerID string
}

// history is the bounded-by-count store of a single viewer's past
// projections of one table, keyed by sequence.
type history struct {
	bySequence map[int64]RoomView
	order      []int64 // insertion order, oldest first; eviction drops the oldest stored sequence
}

// Engine is the per-room sync engine (spec.md §4.3): it stores
// viewer-specific snapshots and turns sync requests into either a
// full snapshot or a deterministic diff against a stored base.
type Engine struct {
	mu           sync.Mutex
	k            int64
	maxPerViewer int
	histories    map[viewerKey]*history
	rebuildGroup singleflight.Group
}

// NewEngine constructs a sync engine. k <= 0 uses DefaultSnapshotInterval.
func NewEngine(k int) *Engine {
	if k <= 0 {
		k = DefaultSnapshotInterval
	}
	return &Engine{
		k:            int64(k),
		maxPerViewer: defaultHistoryPerViewer,
		histories:    make(map[viewerKey]*history),
	}
}

// StoreSnapshot persists viewerID's projection of table at its
// current sequence. Callers invoke this every K sequences and on every
// seat-structural change (spec.md §4.3); the engine itself does not
// watch for structural changes, since only the authority knows when
// one occurred.
func (e *Engine) StoreSnapshot(room *authority.Room, tableID, viewerID string) {
	table, ok := room.Tables[tableID]
	if !ok {
		return
	}
	view := BuildRoomProjection(room, viewerID)
	seq := table.Sequence

	e.mu.Lock()
	defer e.mu.Unlock()
	key := viewerKey{TableID: tableID, ViewerID: viewerID}
	h, ok := e.histories[key]
	if !ok {
		h = &history{bySequence: make(map[int64]RoomView)}
		e.histories[key] = h
	}
	if _, exists := h.bySequence[seq]; !exists {
		h.order = append(h.order, seq)
	}
	h.bySequence[seq] = view
	for len(h.order) > e.maxPerViewer {
		evict := h.order[0]
		h.order = h.order[1:]
		delete(h.bySequence, evict)
	}
}

// ValidateSequence implements spec.md §4.3's validateSequence: an
// incoming client sequence behind the table's committed sequence is
// STALE_INTENT, and one further ahead than current+1 is
// SEQUENCE_MISMATCH.
func ValidateSequence(table *poker.Table, incoming int64) error {
	current := table.Sequence
	if incoming < current {
		return protocol.NewReject(protocol.CodeStaleIntent, "client sequence behind table sequence", nil)
	}
	if incoming > current+1 {
		return protocol.NewReject(protocol.CodeSequenceMismatch, "client sequence too far ahead of table sequence", nil)
	}
	return nil
}

// SyncResponse is either a full room snapshot or a diff against a
// stored base; exactly one of the two is populated.
type SyncResponse struct {
	Snapshot *RoomView
	Diff     *protocol.DiffPayload
}

// GenerateSyncResponse implements spec.md §4.3's generateSyncResponse:
// absent a usable base, or one lagging by more than K sequences, a
// full snapshot is returned; otherwise a diff against the stored base.
func (e *Engine) GenerateSyncResponse(room *authority.Room, tableID, playerID string, clientSequence *int64) (SyncResponse, error) {
	table, ok := room.Tables[tableID]
	if !ok {
		return SyncResponse{}, protocol.NewReject(protocol.CodeInvalidTableID, "unknown table", nil)
	}

	current := BuildRoomProjection(room, playerID)

	if clientSequence == nil || table.Sequence-*clientSequence > e.k {
		view, err := e.fullSnapshot(room, tableID, playerID)
		if err != nil {
			return SyncResponse{}, err
		}
		return SyncResponse{Snapshot: &view}, nil
	}

	e.mu.Lock()
	h, ok := e.histories[viewerKey{TableID: tableID, ViewerID: playerID}]
	var base *RoomView
	if ok {
		if v, present := h.bySequence[*clientSequence]; present {
			base = &v
		}
	}
	e.mu.Unlock()

	if base == nil {
		view, err := e.fullSnapshot(room, tableID, playerID)
		if err != nil {
			return SyncResponse{}, err
		}
		return SyncResponse{Snapshot: &view}, nil
	}

	ops := Diff(*base, current)
	return SyncResponse{Diff: &protocol.DiffPayload{BaseSequence: *clientSequence, Operations: ops}}, nil
}

// fullSnapshot builds (and stores) a fresh full projection, collapsing
// concurrent rebuild requests for the same (table, sequence) into one
// computation.
func (e *Engine) fullSnapshot(room *authority.Room, tableID, viewerID string) (RoomView, error) {
	table, ok := room.Tables[tableID]
	if !ok {
		return RoomView{}, protocol.NewReject(protocol.CodeInvalidTableID, "unknown table", nil)
	}
	groupKey := fmt.Sprintf("%s:%s:%d", tableID, viewerID, table.Sequence)
	v, err, _ := e.rebuildGroup.Do(groupKey, func() (any, error) {
		view := BuildRoomProjection(room, viewerID)
		e.StoreSnapshot(room, tableID, viewerID)
		return view, nil
	})
	if err != nil {
		return RoomView{}, err
	}
	return v.(RoomView), nil
}
