// Package sync implements the viewer-projection snapshot/diff engine
// (spec.md §4.3). It never mutates a Room or Table; it only reads
// already-committed authority state and turns it into a client-facing
// view, so it is safe to call from a goroutine other than the one
// driving authority.Room.ProcessIntent.
package sync

import (
	"sort"

	"github.com/pokerauthority/core/pkg/authority"
	"github.com/pokerauthority/core/pkg/poker"
)

// SeatView is one seat's client-visible fields. HoleCards is nil
// unless the critical privacy invariant allows revealing it (spec.md
// §4.3): the viewer owns the seat, or the table has reached
// showdown/complete.
type SeatView struct {
	Index      int
	PlayerID   string
	Stack      int64
	CurrentBet int64
	Status     string
	HoleCards  []string
	IsDealer   bool
}

// TableView is one table's client-visible fields.
type TableView struct {
	ID             string
	Street         string
	CommunityCards []string
	Pot            int64
	CurrentBet     int64
	DealerSeat     int
	ActiveSeat     int
	Sequence       int64
	Seats          []SeatView
}

// RoomView is the full room-level projection: every table the room
// owns, each viewed for the same viewerID.
type RoomView struct {
	RoomID string
	Tables []TableView
}

// BuildRoomProjection builds viewerID's projection of every table in
// room, in stable table-ID order so repeated calls against identical
// state produce byte-identical output (required for deterministic
// diffing).
func BuildRoomProjection(room *authority.Room, viewerID string) RoomView {
	ids := make([]string, 0, len(room.Tables))
	for id := range room.Tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	view := RoomView{RoomID: room.ID, Tables: make([]TableView, 0, len(ids))}
	for _, id := range ids {
		view.Tables = append(view.Tables, buildTableView(room.Tables[id], viewerID))
	}
	return view
}

func buildTableView(table *poker.Table, viewerID string) TableView {
	revealAll := table.Street == poker.StreetShowdown || table.Street == poker.StreetComplete

	tv := TableView{
		ID:             table.ID,
		Street:         string(table.Street),
		CommunityCards: cardStringsOrNil(table.CommunityCards),
		Pot:            table.Pot,
		CurrentBet:     table.CurrentBet,
		DealerSeat:     table.DealerSeat,
		ActiveSeat:     table.ActiveSeat,
		Sequence:       table.Sequence,
		Seats:          make([]SeatView, len(table.Seats)),
	}
	for i := range table.Seats {
		seat := &table.Seats[i]
		sv := SeatView{
			Index:      seat.Index,
			PlayerID:   seat.PlayerID,
			Stack:      seat.Stack,
			CurrentBet: seat.CurrentBet,
			Status:     string(seat.Status),
			IsDealer:   seat.IsDealer,
		}
		if seat.PlayerID != "" && (seat.PlayerID == viewerID || revealAll) {
			sv.HoleCards = cardStringsOrNil(seat.HoleCards)
		}
		tv.Seats[i] = sv
	}
	return tv
}

func cardStringsOrNil(cards []poker.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
