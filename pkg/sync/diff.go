package sync

import (
	"fmt"
	"reflect"

	"github.com/pokerauthority/core/pkg/protocol"
)

// Diff produces the ordered, deterministic list of JSON-pointer-style
// operations that turn base into current (spec.md §4.3). Tables and
// seats are both already in stable sorted order (see
// BuildRoomProjection), so the same (base, current) pair always
// yields the same operation list.
func Diff(base, current RoomView) []protocol.DiffOp {
	var ops []protocol.DiffOp

	maxTables := len(current.Tables)
	if len(base.Tables) > maxTables {
		maxTables = len(base.Tables)
	}
	for i := 0; i < maxTables; i++ {
		var b, c *TableView
		if i < len(base.Tables) {
			b = &base.Tables[i]
		}
		if i < len(current.Tables) {
			c = &current.Tables[i]
		}
		switch {
		case b == nil && c != nil:
			ops = append(ops, protocol.DiffOp{Op: "add", Path: fmt.Sprintf("/tables/%d", i), Value: *c})
		case b != nil && c == nil:
			ops = append(ops, protocol.DiffOp{Op: "remove", Path: fmt.Sprintf("/tables/%d", i)})
		case b != nil && c != nil:
			ops = append(ops, diffTable(i, *b, *c)...)
		}
	}
	return ops
}

func diffTable(idx int, b, c TableView) []protocol.DiffOp {
	var ops []protocol.DiffOp
	prefix := fmt.Sprintf("/tables/%d", idx)

	scalarOp := func(field string, bv, cv any) {
		if !reflect.DeepEqual(bv, cv) {
			ops = append(ops, protocol.DiffOp{Op: "replace", Path: prefix + "/" + field, Value: cv})
		}
	}
	scalarOp("street", b.Street, c.Street)
	scalarOp("pot", b.Pot, c.Pot)
	scalarOp("currentBet", b.CurrentBet, c.CurrentBet)
	scalarOp("dealerSeat", b.DealerSeat, c.DealerSeat)
	scalarOp("activeSeat", b.ActiveSeat, c.ActiveSeat)
	scalarOp("sequence", b.Sequence, c.Sequence)

	if !reflect.DeepEqual(b.CommunityCards, c.CommunityCards) {
		ops = append(ops, protocol.DiffOp{Op: "replace", Path: prefix + "/communityCards", Value: c.CommunityCards})
	}

	maxSeats := len(c.Seats)
	if len(b.Seats) > maxSeats {
		maxSeats = len(b.Seats)
	}
	for i := 0; i < maxSeats; i++ {
		var bs, cs *SeatView
		if i < len(b.Seats) {
			bs = &b.Seats[i]
		}
		if i < len(c.Seats) {
			cs = &c.Seats[i]
		}
		seatPrefix := fmt.Sprintf("%s/seats/%d", prefix, i)
		switch {
		case bs == nil && cs != nil:
			ops = append(ops, protocol.DiffOp{Op: "add", Path: seatPrefix, Value: *cs})
		case bs != nil && cs == nil:
			ops = append(ops, protocol.DiffOp{Op: "remove", Path: seatPrefix})
		case bs != nil && cs != nil:
			ops = append(ops, diffSeat(seatPrefix, *bs, *cs)...)
		}
	}
	return ops
}

func diffSeat(prefix string, b, c SeatView) []protocol.DiffOp {
	var ops []protocol.DiffOp
	scalarOp := func(field string, bv, cv any) {
		if !reflect.DeepEqual(bv, cv) {
			ops = append(ops, protocol.DiffOp{Op: "replace", Path: prefix + "/" + field, Value: cv})
		}
	}
	scalarOp("playerId", b.PlayerID, c.PlayerID)
	scalarOp("stack", b.Stack, c.Stack)
	scalarOp("currentBet", b.CurrentBet, c.CurrentBet)
	scalarOp("status", b.Status, c.Status)
	scalarOp("isDealer", b.IsDealer, c.IsDealer)
	if !reflect.DeepEqual(b.HoleCards, c.HoleCards) {
		ops = append(ops, protocol.DiffOp{Op: "replace", Path: prefix + "/holeCards", Value: c.HoleCards})
	}
	return ops
}
