package session

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		HeartbeatTimeout:    5 * time.Second,
		MaxMissedHeartbeats: 2,
		DisconnectGrace:     10 * time.Second,
		SessionTimeout:      0,
	}
}

func TestCreateSessionRejectsDuplicateConnected(t *testing.T) {
	mockClock := quartz.NewMock(t)
	m := NewManager(mockClock, testConfig(), Callbacks{})

	_, err := m.CreateSession("p1", "Alice")
	require.NoError(t, err)

	_, err = m.CreateSession("p1", "Alice")
	require.Error(t, err)
}

func TestHeartbeatLatencyAndReset(t *testing.T) {
	mockClock := quartz.NewMock(t)
	m := NewManager(mockClock, testConfig(), Callbacks{})
	s, err := m.CreateSession("p1", "Alice")
	require.NoError(t, err)

	clientTime := mockClock.Now().Add(-50 * time.Millisecond)
	_, latency, err := m.ProcessHeartbeat(s.ID, clientTime)
	require.NoError(t, err)
	require.GreaterOrEqual(t, latency, int64(50))

	got, _ := m.Get(s.ID)
	require.Equal(t, 0, got.MissedHeartbeats)
}

func TestCheckTimeoutsDisconnectsAndExpires(t *testing.T) {
	mockClock := quartz.NewMock(t)
	var disconnected, expired []*Session
	m := NewManager(mockClock, testConfig(), Callbacks{
		OnDisconnect: func(s *Session) { disconnected = append(disconnected, s) },
		OnExpire:     func(s *Session) { expired = append(expired, s) },
	})
	s, err := m.CreateSession("p1", "Alice")
	require.NoError(t, err)

	ctx := context.Background()
	// First heartbeat gap triggers a missed count, not yet a disconnect.
	mockClock.Advance(6 * time.Second).MustWait(ctx)
	m.CheckTimeouts()
	got, _ := m.Get(s.ID)
	require.Equal(t, StatusConnected, got.Status)
	require.Equal(t, 1, got.MissedHeartbeats)

	// Second consecutive gap crosses MaxMissedHeartbeats.
	mockClock.Advance(6 * time.Second).MustWait(ctx)
	m.CheckTimeouts()
	require.Len(t, disconnected, 1)
	got, _ = m.Get(s.ID)
	require.Equal(t, StatusDisconnected, got.Status)

	mockClock.Advance(11 * time.Second).MustWait(ctx)
	m.CheckTimeouts()
	require.Len(t, expired, 1)
	got, _ = m.Get(s.ID)
	require.Equal(t, StatusExpired, got.Status)
}

func TestReconnectPlayerWithinGraceResumesSession(t *testing.T) {
	mockClock := quartz.NewMock(t)
	m := NewManager(mockClock, testConfig(), Callbacks{})
	s, err := m.CreateSession("p1", "Alice")
	require.NoError(t, err)
	m.SetTableContext(s.ID, "room1", "table1", 2)

	require.NoError(t, m.DisconnectSession(s.ID))

	ctx := context.Background()
	mockClock.Advance(2 * time.Second).MustWait(ctx)

	resumed, reused, err := m.ReconnectPlayer("p1", "Alice")
	require.NoError(t, err)
	require.True(t, reused)
	require.Equal(t, s.ID, resumed.ID)
	require.Equal(t, "table1", resumed.TableID)
	require.Equal(t, 2, resumed.SeatIndex)
}

func TestReconnectPlayerAfterGraceCreatesNewSession(t *testing.T) {
	mockClock := quartz.NewMock(t)
	m := NewManager(mockClock, testConfig(), Callbacks{})
	s, err := m.CreateSession("p1", "Alice")
	require.NoError(t, err)
	require.NoError(t, m.DisconnectSession(s.ID))

	ctx := context.Background()
	mockClock.Advance(20 * time.Second).MustWait(ctx)

	resumed, reused, err := m.ReconnectPlayer("p1", "Alice")
	require.NoError(t, err)
	require.False(t, reused)
	require.NotEqual(t, s.ID, resumed.ID)
}

func TestHeartbeatArrivalOrderInvariant(t *testing.T) {
	mockClock := quartz.NewMock(t)
	m := NewManager(mockClock, testConfig(), Callbacks{})
	sA, _ := m.CreateSession("a", "A")
	sB, _ := m.CreateSession("b", "B")

	orderings := [][2]string{{sA.ID, sB.ID}, {sB.ID, sA.ID}}
	for _, order := range orderings {
		for _, id := range order {
			_, _, err := m.ProcessHeartbeat(id, mockClock.Now())
			require.NoError(t, err)
		}
		gotA, _ := m.Get(sA.ID)
		gotB, _ := m.Get(sB.ID)
		require.Equal(t, StatusConnected, gotA.Status)
		require.Equal(t, StatusConnected, gotB.Status)
	}
}
