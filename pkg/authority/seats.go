package authority

import (
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
	"github.com/pokerauthority/core/pkg/session"
)

func (r *Room) handleTakeSeat(sess *session.Session, table *poker.Table, intent protocol.Intent) ([]protocol.Event, error) {
	if table == nil {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, "take-seat requires a table context", nil)
	}
	if table.SeatOf(sess.PlayerID) != nil {
		return nil, protocol.NewReject(protocol.CodeAlreadySeated, "already seated at this table", nil)
	}
	seat := table.SeatAt(intent.SeatIndex)
	if seat == nil {
		return nil, protocol.NewReject(protocol.CodeSeatNotFound, "seat index out of range", nil)
	}
	if seat.IsOccupied() {
		return nil, protocol.NewReject(protocol.CodeSeatTaken, "seat already occupied", nil)
	}
	if intent.BuyInAmount < r.Config.MinBuyIn {
		return nil, protocol.NewReject(protocol.CodeBuyInBelowMin, "buy-in below minimum", nil)
	}
	if r.Config.MaxBuyIn > 0 && intent.BuyInAmount > r.Config.MaxBuyIn {
		return nil, protocol.NewReject(protocol.CodeBuyInAboveMax, "buy-in above maximum", nil)
	}

	if err := r.Economy.BuyIn(table.ID, sess.PlayerID, intent.BuyInAmount); err != nil {
		return nil, err
	}

	seat.PlayerID = sess.PlayerID
	seat.Stack = intent.BuyInAmount
	seat.Status = poker.SeatActive
	r.Sessions.SetTableContext(sess.ID, r.ID, table.ID, seat.Index)

	return []protocol.Event{{Type: protocol.EventSeatTaken, TableID: table.ID, PlayerID: sess.PlayerID, SeatIndex: seat.Index}}, nil
}

func (r *Room) handleLeaveSeat(sess *session.Session, table *poker.Table) ([]protocol.Event, error) {
	if table == nil {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, "leave-seat requires a table context", nil)
	}
	seat := table.SeatOf(sess.PlayerID)
	if seat == nil {
		return nil, protocol.NewReject(protocol.CodeNotSeated, "not seated at this table", nil)
	}
	if table.Street != poker.StreetWaiting && seat.Status != poker.SeatSittingOut {
		return nil, protocol.NewReject(protocol.CodeCannotChangeDuringHand, "cannot leave a seat mid-hand", nil)
	}
	r.vacateSeat(table, seat)
	return []protocol.Event{{Type: protocol.EventSeatVacated, TableID: table.ID, PlayerID: sess.PlayerID, SeatIndex: seat.Index}}, nil
}

func (r *Room) vacateSeat(table *poker.Table, seat *poker.Seat) {
	if seat.Stack > 0 {
		_ = r.Economy.Escrow.CashOut(table.ID, seat.PlayerID, seat.Stack)
	}
	*seat = poker.Seat{Index: seat.Index, Status: poker.SeatEmpty}
}

func (r *Room) handleStandUp(sess *session.Session, table *poker.Table) ([]protocol.Event, error) {
	if table == nil {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, "stand-up requires a table context", nil)
	}
	seat := table.SeatOf(sess.PlayerID)
	if seat == nil {
		return nil, protocol.NewReject(protocol.CodeNotSeated, "not seated at this table", nil)
	}
	seat.Status = poker.SeatSittingOut
	return []protocol.Event{{Type: protocol.EventPlayerSatOut, TableID: table.ID, PlayerID: sess.PlayerID, SeatIndex: seat.Index}}, nil
}

func (r *Room) handleSitBack(sess *session.Session, table *poker.Table) ([]protocol.Event, error) {
	if table == nil {
		return nil, protocol.NewReject(protocol.CodeInvalidTableID, "sit-back requires a table context", nil)
	}
	seat := table.SeatOf(sess.PlayerID)
	if seat == nil {
		return nil, protocol.NewReject(protocol.CodeNotSeated, "not seated at this table", nil)
	}
	if seat.Status != poker.SeatSittingOut {
		return nil, protocol.NewReject(protocol.CodeIllegalAction, "seat is not sitting out", nil)
	}
	if seat.Stack <= 0 {
		return nil, protocol.NewReject(protocol.CodeInsufficientChips, "cannot sit back with an empty stack", nil)
	}
	seat.Status = poker.SeatActive
	return []protocol.Event{{Type: protocol.EventPlayerSatBack, TableID: table.ID, PlayerID: sess.PlayerID, SeatIndex: seat.Index}}, nil
}

func (r *Room) handleHeartbeat(sess *session.Session, intent protocol.Intent) ([]protocol.Event, error) {
	serverTime, latency, err := r.Sessions.ProcessHeartbeat(sess.ID, msToTime(intent.ClientTime))
	if err != nil {
		return nil, err
	}
	return []protocol.Event{{
		Type: protocol.EventHeartbeatAck,
		HeartbeatAck: &protocol.HeartbeatAckPayload{
			ServerTime: timeToMs(serverTime),
			ClientTime: intent.ClientTime,
			LatencyMs:  latency,
		},
	}}, nil
}
