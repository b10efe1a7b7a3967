package authority

import (
	"math/rand"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/pokerauthority/core/pkg/economy"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
	"github.com/pokerauthority/core/pkg/session"
)

// rankSumEvaluator is a deterministic stand-in for the injected
// hand-ranking function (spec.md §1): it scores a hand as the sum of
// its hole-card ranks, ignoring community cards entirely, so tests can
// fix a winner just by overwriting a seat's hole cards.
type rankSumEvaluator struct{}

func (rankSumEvaluator) Evaluate(hole, community []poker.Card) (poker.HandValue, error) {
	score := 0
	for _, c := range hole {
		score += cardRankScore(c.GetValue())
	}
	return poker.HandValue{Score: score, HandDescription: "stub-hand"}, nil
}

func (rankSumEvaluator) Compare(a, b poker.HandValue) int {
	switch {
	case a.Score > b.Score:
		return 1
	case a.Score < b.Score:
		return -1
	default:
		return 0
	}
}

func cardRankScore(value string) int {
	order := []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	for i, v := range order {
		if v == value {
			return i
		}
	}
	return 0
}

func testRoomConfig() RoomConfig {
	return RoomConfig{
		SmallBlind: 5, BigBlind: 10, MinBuyIn: 100, MaxBuyIn: 1000, MaxSeats: 6,
		ActionTimeout: 30 * time.Second, DisconnectGrace: 60 * time.Second,
	}
}

func newTestRoom(t *testing.T) (*Room, *session.Manager, *quartz.Mock) {
	mockClock := quartz.NewMock(t)
	sessions := session.NewManager(mockClock, session.Config{
		HeartbeatTimeout: 10 * time.Second, MaxMissedHeartbeats: 3, DisconnectGrace: 30 * time.Second,
	}, session.Callbacks{})
	econ := economy.NewEconomyEngine(economy.RakeConfig{Policy: economy.RakeStandard, Percentage: 5, Cap: 3, NoFlopNoRake: true})
	room := NewRoom("room1", testRoomConfig(), econ, rankSumEvaluator{}, sessions, mockClock, rand.New(rand.NewSource(7)))
	return room, sessions, mockClock
}

// TestHeadsUpHandReachesShowdownWithRakeCap drives a full heads-up
// hand through the authority end to end and checks it reproduces the
// heads-up rake-cap scenario's numbers.
func TestHeadsUpHandReachesShowdownWithRakeCap(t *testing.T) {
	room, sessions, _ := newTestRoom(t)
	table := poker.NewTable("t1", 2)
	room.AddTable(table)

	require.NoError(t, room.Economy.InitializePlayer("hero", 500, 0))
	require.NoError(t, room.Economy.InitializePlayer("villain", 500, 0))

	heroSess, err := sessions.CreateSession("hero", "Hero")
	require.NoError(t, err)
	villainSess, err := sessions.CreateSession("villain", "Villain")
	require.NoError(t, err)

	_, err = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: heroSess.ID, RoomID: "room1"})
	require.NoError(t, err)
	_, err = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: villainSess.ID, RoomID: "room1"})
	require.NoError(t, err)

	_, err = room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentTakeSeat, SessionID: heroSess.ID,
		Table: &protocol.TableContext{TableID: "t1", Sequence: table.Sequence}, SeatIndex: 0, BuyInAmount: 500,
	})
	require.NoError(t, err)
	_, err = room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentTakeSeat, SessionID: villainSess.ID,
		Table: &protocol.TableContext{TableID: "t1", Sequence: table.Sequence}, SeatIndex: 1, BuyInAmount: 500,
	})
	require.NoError(t, err)

	_, err = room.StartHand("t1")
	require.NoError(t, err)
	require.Equal(t, poker.StreetPreflop, table.Street)

	// Force the outcome: hero gets the nut hole cards, villain the worst.
	table.SeatAt(table.SeatOf("hero").Index).HoleCards = []poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Ace),
		poker.NewCardFromSuitValue(poker.Hearts, poker.Ace),
	}
	table.SeatAt(table.SeatOf("villain").Index).HoleCards = []poker.Card{
		poker.NewCardFromSuitValue(poker.Clubs, poker.Two),
		poker.NewCardFromSuitValue(poker.Diamonds, poker.Three),
	}

	sbIdx := table.DealerSeat // heads-up: dealer posts SB
	bbIdx := 1 - sbIdx
	sbPlayer := table.SeatAt(sbIdx).PlayerID
	bbPlayer := table.SeatAt(bbIdx).PlayerID
	sessionOf := func(playerID string) string {
		if playerID == "hero" {
			return heroSess.ID
		}
		return villainSess.ID
	}

	// SB raises to 30 (additional 25 over the 5 already posted).
	_, err = room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentPlayerAction, SessionID: sessionOf(sbPlayer),
		Table:        &protocol.TableContext{TableID: "t1", HandID: table.HandID, Sequence: table.Sequence},
		PlayerAction: protocol.Action{Type: protocol.ActionRaise, Amount: 30},
	})
	require.NoError(t, err)

	// BB calls (additional 20); this closes preflop and deals the flop.
	_, err = room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentPlayerAction, SessionID: sessionOf(bbPlayer),
		Table:        &protocol.TableContext{TableID: "t1", HandID: table.HandID, Sequence: table.Sequence},
		PlayerAction: protocol.Action{Type: protocol.ActionCall},
	})
	require.NoError(t, err)
	require.Equal(t, poker.StreetFlop, table.Street)

	var events []protocol.Event
	for table.Street != poker.StreetComplete {
		active := table.SeatAt(table.ActiveSeat).PlayerID
		events, err = room.ProcessIntent(protocol.Intent{
			Type: protocol.IntentPlayerAction, SessionID: sessionOf(active),
			Table:        &protocol.TableContext{TableID: "t1", HandID: table.HandID, Sequence: table.Sequence},
			PlayerAction: protocol.Action{Type: protocol.ActionCheck},
		})
		require.NoError(t, err)
	}

	var ended *protocol.HandEndedPayload
	for _, ev := range events {
		if ev.Type == protocol.EventHandEnded {
			ended = ev.HandEnded
		}
	}
	require.NotNil(t, ended)
	require.Equal(t, protocol.EndShowdown, ended.EndReason)
	require.Len(t, ended.Winners, 1)
	require.Equal(t, "hero", ended.Winners[0].PlayerID)
	require.Equal(t, int64(57), ended.Winners[0].Amount)

	require.Equal(t, int64(527), room.Economy.GetPlayerStack("t1", "hero"))
	require.Equal(t, int64(470), room.Economy.GetPlayerStack("t1", "villain"))
}

// TestAllFoldedEndsHandImmediately checks the all-folded early-end
// path pays the sole remaining contestant the whole pot without a
// showdown.
func TestAllFoldedEndsHandImmediately(t *testing.T) {
	room, sessions, _ := newTestRoom(t)
	table := poker.NewTable("t1", 2)
	room.AddTable(table)
	require.NoError(t, room.Economy.InitializePlayer("hero", 500, 0))
	require.NoError(t, room.Economy.InitializePlayer("villain", 500, 0))
	heroSess, _ := sessions.CreateSession("hero", "Hero")
	villainSess, _ := sessions.CreateSession("villain", "Villain")
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: heroSess.ID, RoomID: "room1"})
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: villainSess.ID, RoomID: "room1"})
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentTakeSeat, SessionID: heroSess.ID, Table: &protocol.TableContext{TableID: "t1"}, SeatIndex: 0, BuyInAmount: 500})
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentTakeSeat, SessionID: villainSess.ID, Table: &protocol.TableContext{TableID: "t1", Sequence: table.Sequence}, SeatIndex: 1, BuyInAmount: 500})

	_, err := room.StartHand("t1")
	require.NoError(t, err)

	sbIdx := table.DealerSeat
	sbPlayer := table.SeatAt(sbIdx).PlayerID
	bbPlayer := table.SeatAt(1 - sbIdx).PlayerID
	sessionOf := map[string]string{"hero": heroSess.ID, "villain": villainSess.ID}

	events, err := room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentPlayerAction, SessionID: sessionOf[sbPlayer],
		Table:        &protocol.TableContext{TableID: "t1", HandID: table.HandID, Sequence: table.Sequence},
		PlayerAction: protocol.Action{Type: protocol.ActionFold},
	})
	require.NoError(t, err)

	var ended *protocol.HandEndedPayload
	for _, ev := range events {
		if ev.Type == protocol.EventHandEnded {
			ended = ev.HandEnded
		}
	}
	require.NotNil(t, ended)
	require.Equal(t, protocol.EndAllFolded, ended.EndReason)
	require.Len(t, ended.Winners, 1)
	require.Equal(t, bbPlayer, ended.Winners[0].PlayerID)
	require.Equal(t, poker.StreetComplete, table.Street)
}

// TestPlayerActionRejectsOutOfTurn checks the authority enforces seat
// turn order with a typed reject rather than mutating state.
func TestPlayerActionRejectsOutOfTurn(t *testing.T) {
	room, sessions, _ := newTestRoom(t)
	table := poker.NewTable("t1", 2)
	room.AddTable(table)
	require.NoError(t, room.Economy.InitializePlayer("hero", 500, 0))
	require.NoError(t, room.Economy.InitializePlayer("villain", 500, 0))
	heroSess, _ := sessions.CreateSession("hero", "Hero")
	villainSess, _ := sessions.CreateSession("villain", "Villain")
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: heroSess.ID, RoomID: "room1"})
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: villainSess.ID, RoomID: "room1"})
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentTakeSeat, SessionID: heroSess.ID, Table: &protocol.TableContext{TableID: "t1"}, SeatIndex: 0, BuyInAmount: 500})
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentTakeSeat, SessionID: villainSess.ID, Table: &protocol.TableContext{TableID: "t1", Sequence: table.Sequence}, SeatIndex: 1, BuyInAmount: 500})

	_, err := room.StartHand("t1")
	require.NoError(t, err)

	notActive := table.SeatAt(1 - table.ActiveSeat).PlayerID
	sessionOf := map[string]string{"hero": heroSess.ID, "villain": villainSess.ID}

	_, err = room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentPlayerAction, SessionID: sessionOf[notActive],
		Table:        &protocol.TableContext{TableID: "t1", HandID: table.HandID, Sequence: table.Sequence},
		PlayerAction: protocol.Action{Type: protocol.ActionCall},
	})
	require.Error(t, err)
	reject, ok := protocol.AsReject(err)
	require.True(t, ok)
	require.Equal(t, protocol.CodeNotYourTurn, reject.Code)
}

// TestProcessIntentRejectsStaleSequence checks the stale/ahead sequence
// guard spec.md §4.1 requires.
func TestProcessIntentRejectsStaleSequence(t *testing.T) {
	room, sessions, _ := newTestRoom(t)
	table := poker.NewTable("t1", 2)
	room.AddTable(table)
	require.NoError(t, room.Economy.InitializePlayer("hero", 500, 0))
	heroSess, _ := sessions.CreateSession("hero", "Hero")
	_, _ = room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: heroSess.ID, RoomID: "room1"})

	_, err := room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentTakeSeat, SessionID: heroSess.ID,
		Table: &protocol.TableContext{TableID: "t1", Sequence: 5}, SeatIndex: 0, BuyInAmount: 500,
	})
	require.Error(t, err)
	reject, ok := protocol.AsReject(err)
	require.True(t, ok)
	require.Equal(t, protocol.CodeSequenceMismatch, reject.Code)

	_, err = room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentTakeSeat, SessionID: heroSess.ID,
		Table: &protocol.TableContext{TableID: "t1", Sequence: -1}, SeatIndex: 0, BuyInAmount: 500,
	})
	require.Error(t, err)
	reject, ok = protocol.AsReject(err)
	require.True(t, ok)
	require.Equal(t, protocol.CodeStaleIntent, reject.Code)
}
