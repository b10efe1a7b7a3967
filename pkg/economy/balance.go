// Package economy implements balances, escrow, pots, side-pots, rake,
// and the append-only ledger (spec.md §4.4). All amounts are
// non-negative integer chips; fractional chips never appear outside
// explicit split-remainder handling.
package economy

import (
	"fmt"
	"sync"

	"github.com/pokerauthority/core/pkg/protocol"
)

// Balance is a player's off-table chip position.
type Balance struct {
	Available int64
	Locked    int64
	Pending   int64
}

// BalanceManager owns {playerId -> Balance}. All mutation is
// serialized by a single mutex, mirroring the teacher's pattern of
// guarding shared maps with sync.RWMutex rather than per-entry locks —
// balances are small and contention is not a concern at this scale.
type BalanceManager struct {
	mu       sync.RWMutex
	balances map[string]*Balance
}

func NewBalanceManager() *BalanceManager {
	return &BalanceManager{balances: make(map[string]*Balance)}
}

func (m *BalanceManager) CreateBalance(playerID string) *Balance {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[playerID]; ok {
		return b
	}
	b := &Balance{}
	m.balances[playerID] = b
	return b
}

func (m *BalanceManager) Get(playerID string) (Balance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[playerID]
	if !ok {
		return Balance{}, false
	}
	return *b, true
}

func insufficientFunds(playerID string) error {
	return protocol.NewReject(protocol.CodeInsufficientFunds, fmt.Sprintf("insufficient available funds for %s", playerID), nil)
}

// Credit increases available balance.
func (m *BalanceManager) Credit(playerID string, amount int64) error {
	if amount < 0 {
		return protocol.NewReject(protocol.CodeNegativeAmount, "credit amount must be non-negative", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.mustGet(playerID)
	b.Available += amount
	return nil
}

// Debit decreases available balance; fails if it would go negative.
func (m *BalanceManager) Debit(playerID string, amount int64) error {
	if amount < 0 {
		return protocol.NewReject(protocol.CodeNegativeAmount, "debit amount must be non-negative", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.mustGet(playerID)
	if b.Available < amount {
		return insufficientFunds(playerID)
	}
	b.Available -= amount
	return nil
}

// Lock moves amount from available to locked.
func (m *BalanceManager) Lock(playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.mustGet(playerID)
	if b.Available < amount {
		return insufficientFunds(playerID)
	}
	b.Available -= amount
	b.Locked += amount
	return nil
}

// Unlock moves amount from locked back to available.
func (m *BalanceManager) Unlock(playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.mustGet(playerID)
	if b.Locked < amount {
		return protocol.NewReject(protocol.CodeInsufficientFunds, fmt.Sprintf("cannot unlock more than locked for %s", playerID), nil)
	}
	b.Locked -= amount
	b.Available += amount
	return nil
}

// Transfer is an atomic debit-then-credit: if the debit fails no
// credit occurs.
func (m *BalanceManager) Transfer(fromPlayerID, toPlayerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.mustGet(fromPlayerID)
	if from.Available < amount {
		return insufficientFunds(fromPlayerID)
	}
	to := m.mustGet(toPlayerID)
	from.Available -= amount
	to.Available += amount
	return nil
}

// mustGet returns the balance pointer, creating a zero balance if
// absent. Caller must hold m.mu.
func (m *BalanceManager) mustGet(playerID string) *Balance {
	b, ok := m.balances[playerID]
	if !ok {
		b = &Balance{}
		m.balances[playerID] = b
	}
	return b
}
