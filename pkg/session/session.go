// Package session implements the connection lifecycle manager
// (spec.md §4.2). It is a constructor-injected service — no package
// singleton — and never reads the wall clock directly; the caller
// supplies a clock.Clock and periodically invokes CheckTimeouts.
package session

import (
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/pokerauthority/core/pkg/clock"
	"github.com/pokerauthority/core/pkg/protocol"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
	StatusExpired      Status = "expired"
)

// Session is a player's connection lifecycle record.
type Session struct {
	ID              string
	PlayerID        string
	DisplayName     string
	Status          Status
	RoomID          string
	TableID         string
	SeatIndex       int
	LastHeartbeat   time.Time
	LastActivity    time.Time
	LatencyMs       int64
	MissedHeartbeats int
	DisconnectedAt  time.Time
	ConnectedAt     time.Time
}

// Config bounds the timeout rules CheckTimeouts enforces.
type Config struct {
	HeartbeatTimeout   time.Duration
	MaxMissedHeartbeats int
	DisconnectGrace    time.Duration
	SessionTimeout     time.Duration
}

// Callbacks are fired synchronously from CheckTimeouts' scan.
type Callbacks struct {
	OnDisconnect func(*Session)
	OnReconnect  func(*Session)
	OnExpire     func(*Session)
}

// Manager owns {sessionId -> Session} and the reverse {playerId -> sessionId} index.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	byPlayer  map[string]string
	clock     clock.Clock
	cfg       Config
	callbacks Callbacks
	log       slog.Logger
}

func NewManager(clk clock.Clock, cfg Config, callbacks Callbacks) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		byPlayer:  make(map[string]string),
		clock:     clk,
		cfg:       cfg,
		callbacks: callbacks,
		log:       slog.Disabled,
	}
}

// SetLogger wires a subsystem logger into the manager.
func (m *Manager) SetLogger(log slog.Logger) {
	m.log = log
}

// CreateSession starts a new session for playerID, rejecting if the
// player already has a connected session.
func (m *Manager) CreateSession(playerID, displayName string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existingID, ok := m.byPlayer[playerID]; ok {
		if existing, ok := m.sessions[existingID]; ok && existing.Status == StatusConnected {
			return nil, protocol.NewReject(protocol.CodeAlreadyInRoom, "player already has a connected session", nil)
		}
	}
	now := m.clock.Now()
	s := &Session{
		ID:            uuid.NewString(),
		PlayerID:      playerID,
		DisplayName:   displayName,
		Status:        StatusConnected,
		LastHeartbeat: now,
		LastActivity:  now,
		ConnectedAt:   now,
	}
	m.sessions[s.ID] = s
	m.byPlayer[playerID] = s.ID
	m.log.Infof("CreateSession: player=%s session=%s", playerID, s.ID)
	return s, nil
}

// ValidateSession returns the session for sessionID, rejecting if
// unknown or expired.
func (m *Manager) ValidateSession(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, protocol.NewReject(protocol.CodeInvalidSession, "unknown session", nil)
	}
	if s.Status == StatusExpired {
		return nil, protocol.NewReject(protocol.CodeSessionExpired, "session expired", nil)
	}
	return s, nil
}

// ProcessHeartbeat updates liveness bookkeeping and returns the
// server's ack fields.
func (m *Manager) ProcessHeartbeat(sessionID string, clientTime time.Time) (serverTime time.Time, latencyMs int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return time.Time{}, 0, protocol.NewReject(protocol.CodeInvalidSession, "unknown session", nil)
	}
	now := m.clock.Now()
	latency := now.Sub(clientTime).Milliseconds()
	if latency < 0 {
		latency = 0
	}
	s.LastHeartbeat = now
	s.LastActivity = now
	s.LatencyMs = latency
	s.MissedHeartbeats = 0
	return now, latency, nil
}

// DisconnectSession transitions a session to disconnected and fires OnDisconnect.
func (m *Manager) DisconnectSession(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return protocol.NewReject(protocol.CodeInvalidSession, "unknown session", nil)
	}
	s.Status = StatusDisconnected
	s.DisconnectedAt = m.clock.Now()
	m.mu.Unlock()
	m.log.Infof("DisconnectSession: player=%s session=%s", s.PlayerID, s.ID)
	if m.callbacks.OnDisconnect != nil {
		m.callbacks.OnDisconnect(s)
	}
	return nil
}

// ReconnectPlayer resumes a disconnected session within the grace
// window, preserving room/table/seat; otherwise it creates a new session.
func (m *Manager) ReconnectPlayer(playerID, displayName string) (*Session, bool, error) {
	m.mu.Lock()
	existingID, hasExisting := m.byPlayer[playerID]
	if hasExisting {
		if s, ok := m.sessions[existingID]; ok && s.Status == StatusDisconnected {
			if m.clock.Now().Sub(s.DisconnectedAt) <= m.cfg.DisconnectGrace {
				s.Status = StatusConnected
				s.LastHeartbeat = m.clock.Now()
				s.LastActivity = m.clock.Now()
				s.MissedHeartbeats = 0
				m.mu.Unlock()
				m.log.Infof("ReconnectPlayer: player=%s session=%s resumed within grace window", playerID, s.ID)
				if m.callbacks.OnReconnect != nil {
					m.callbacks.OnReconnect(s)
				}
				return s, true, nil
			}
		}
	}
	m.mu.Unlock()
	s, err := m.CreateSession(playerID, displayName)
	return s, false, err
}

// CheckTimeouts scans every session and applies spec.md §4.2's
// disconnect/expiry rules. The caller invokes this periodically,
// supplying no time argument: the manager's injected clock is the only
// time source.
func (m *Manager) CheckTimeouts() {
	m.mu.Lock()
	now := m.clock.Now()
	var toDisconnect, toExpire []*Session
	for _, s := range m.sessions {
		switch s.Status {
		case StatusConnected, StatusReconnecting:
			missed := now.Sub(s.LastHeartbeat) > m.cfg.HeartbeatTimeout
			if missed {
				s.MissedHeartbeats++
			}
			if s.MissedHeartbeats >= m.cfg.MaxMissedHeartbeats {
				s.Status = StatusDisconnected
				s.DisconnectedAt = now
				toDisconnect = append(toDisconnect, s)
				continue
			}
			if m.cfg.SessionTimeout > 0 && now.Sub(s.ConnectedAt) > m.cfg.SessionTimeout {
				s.Status = StatusExpired
				toExpire = append(toExpire, s)
			}
		case StatusDisconnected:
			if now.Sub(s.DisconnectedAt) > m.cfg.DisconnectGrace {
				s.Status = StatusExpired
				toExpire = append(toExpire, s)
			}
		}
	}
	m.mu.Unlock()

	for _, s := range toDisconnect {
		m.log.Debugf("CheckTimeouts: player=%s session=%s missed heartbeat threshold, disconnecting", s.PlayerID, s.ID)
		if m.callbacks.OnDisconnect != nil {
			m.callbacks.OnDisconnect(s)
		}
	}
	for _, s := range toExpire {
		m.log.Debugf("CheckTimeouts: player=%s session=%s expired", s.PlayerID, s.ID)
		if m.callbacks.OnExpire != nil {
			m.callbacks.OnExpire(s)
		}
	}
}

// Get returns a copy of the session, for read-only callers.
func (m *Manager) Get(sessionID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetTableContext updates a session's current room/table/seat, called
// by the authority after join-room/take-seat/leave-seat intents.
func (m *Manager) SetTableContext(sessionID, roomID, tableID string, seatIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.RoomID = roomID
		s.TableID = tableID
		s.SeatIndex = seatIndex
	}
}
