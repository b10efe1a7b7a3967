package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/decred/slog"

	"github.com/pokerauthority/core/pkg/authority"
	"github.com/pokerauthority/core/pkg/clock"
	"github.com/pokerauthority/core/pkg/economy"
	"github.com/pokerauthority/core/pkg/handeval"
	"github.com/pokerauthority/core/pkg/integrity"
	"github.com/pokerauthority/core/pkg/moderation"
	"github.com/pokerauthority/core/pkg/poker"
	"github.com/pokerauthority/core/pkg/protocol"
	"github.com/pokerauthority/core/pkg/session"
	"github.com/pokerauthority/core/pkg/sync"
)

// DemoCmd wires one room with a single heads-up table, plays a scripted
// hand through the public intent surface to its conclusion, and prints
// the events and the resulting risk report. It is the smoke test a
// reader would run to see every layer (authority, session, economy,
// sync, integrity, moderation) exercised together.
type DemoCmd struct {
	Seed       int64 `kong:"default='1',help='Deterministic RNG seed'"`
	SmallBlind int64 `kong:"default='5',help='Small blind'"`
	BigBlind   int64 `kong:"default='10',help='Big blind'"`
	Debug      bool  `kong:"help='Enable debug-level logging'"`
}

func (c *DemoCmd) Run() error {
	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("ROOMCTL")
	roomLog := backend.Logger("ROOM")
	sessLog := backend.Logger("SESSION")
	if c.Debug {
		log.SetLevel(slog.LevelDebug)
		roomLog.SetLevel(slog.LevelDebug)
		sessLog.SetLevel(slog.LevelDebug)
	} else {
		log.SetLevel(slog.LevelInfo)
		roomLog.SetLevel(slog.LevelInfo)
		sessLog.SetLevel(slog.LevelInfo)
	}

	clk := clock.New()
	rng := rand.New(rand.NewSource(c.Seed))

	econ := economy.NewEconomyEngine(economy.RakeConfig{Policy: economy.RakeStandard, Percentage: 5, Cap: 3})
	sessions := session.NewManager(clk, session.Config{
		HeartbeatTimeout:    30 * time.Second,
		MaxMissedHeartbeats: 3,
		DisconnectGrace:     60 * time.Second,
	}, session.Callbacks{})
	sessions.SetLogger(sessLog)

	room := authority.NewRoom("room1", authority.RoomConfig{
		SmallBlind: c.SmallBlind,
		BigBlind:   c.BigBlind,
		MinBuyIn:   c.BigBlind * 20,
		MaxBuyIn:   c.BigBlind * 200,
		MaxSeats:   6,
	}, econ, handeval.New(), sessions, clk, rng)
	room.SetLogger(roomLog)
	table := poker.NewTable("t1", 6)
	room.AddTable(table)

	syncEngine := sync.NewEngine(sync.DefaultSnapshotInterval)
	collector := integrity.NewCollector()
	modLog := moderation.NewDecisionLogger()
	modSvc := moderation.NewModeratorService(clk, modLog)

	now := clk.Now().UnixMilli()
	if err := econ.InitializePlayer("hero", 2000, now); err != nil {
		return err
	}
	if err := econ.InitializePlayer("villain", 2000, now); err != nil {
		return err
	}

	heroSess, err := sessions.CreateSession("hero", "Hero")
	if err != nil {
		return err
	}
	villainSess, err := sessions.CreateSession("villain", "Villain")
	if err != nil {
		return err
	}

	var allEvents []protocol.Event
	publish := func(events []protocol.Event, err error) error {
		if err != nil {
			log.Errorf("intent rejected: %v", err)
			return err
		}
		allEvents = append(allEvents, events...)
		for _, e := range events {
			log.Infof("event: %s table=%s player=%s", e.Type, e.TableID, e.PlayerID)
		}
		return nil
	}

	if err := publish(room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: heroSess.ID, RoomID: room.ID})); err != nil {
		return err
	}
	if err := publish(room.ProcessIntent(protocol.Intent{Type: protocol.IntentJoinRoom, SessionID: villainSess.ID, RoomID: room.ID})); err != nil {
		return err
	}
	if err := publish(room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentTakeSeat, SessionID: heroSess.ID,
		Table: &protocol.TableContext{TableID: table.ID}, SeatIndex: 0, BuyInAmount: c.BigBlind * 100,
	})); err != nil {
		return err
	}
	if err := publish(room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentTakeSeat, SessionID: villainSess.ID,
		Table: &protocol.TableContext{TableID: table.ID, Sequence: table.Sequence}, SeatIndex: 1, BuyInAmount: c.BigBlind * 100,
	})); err != nil {
		return err
	}

	events, err := room.StartHand(table.ID)
	if err != nil {
		return err
	}
	allEvents = append(allEvents, events...)
	for _, e := range events {
		log.Infof("event: %s table=%s", e.Type, e.TableID)
	}

	syncEngine.StoreSnapshot(room, table.ID, "hero")

	activeSess := heroSess
	if table.ActiveSeat != 0 {
		activeSess = villainSess
	}
	if err := publish(room.ProcessIntent(protocol.Intent{
		Type: protocol.IntentPlayerAction, SessionID: activeSess.ID,
		Table:        &protocol.TableContext{TableID: table.ID, HandID: table.HandID, Sequence: table.Sequence},
		PlayerAction: protocol.Action{Type: protocol.ActionFold},
	})); err != nil {
		return err
	}

	for _, e := range allEvents {
		if e.Type == protocol.EventHandEnded && e.HandEnded != nil && e.HandEnded.EndReason == protocol.EndAllFolded {
			opened := modSvc.OpenCase(table.HandID, table.ID, "integrity-monitor")
			log.Infof("case opened for review: %s", opened.ID)
		}
	}

	annotated := integrity.FromAuthorityEvents(allEvents)
	for _, e := range annotated {
		collector.Record(e)
	}
	result := integrity.Compute(collector.All(), integrity.DefaultTimingThresholds)

	collusion := integrity.NewCollusionDetector(integrity.DefaultCollusionThresholds())
	softplay := integrity.NewSoftPlayDetector(integrity.DefaultSoftPlayThresholds())
	abuse := integrity.NewAuthorityAbuseDetector(integrity.DefaultAuthorityAbuseThresholds(), "")
	riskEngine := integrity.NewRiskReportEngine(collusion, softplay, abuse)

	report, err := riskEngine.Generate(context.Background(), table.ID, result, collector.All())
	if err != nil {
		return err
	}

	totalSignals := len(report.CollusionSignals) + len(report.SoftPlaySignals) + len(report.AbuseSignals)
	fmt.Printf("hand %s settled, risk level=%v score=%.1f signals=%d\n", table.HandID, report.RiskLevel, report.RiskScore, totalSignals)
	return nil
}
