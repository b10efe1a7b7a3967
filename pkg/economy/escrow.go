package economy

import (
	"fmt"
	"sync"

	"github.com/pokerauthority/core/pkg/protocol"
)

// escrowKey identifies a per-(table, player) sub-account.
type escrowKey struct {
	TableID  string
	PlayerID string
}

// EscrowAccount is a player's chips-in-play position at one table.
type EscrowAccount struct {
	Stack     int64
	Committed int64 // chips moved into the current hand's action, not yet in the pot
}

// EscrowManager owns the per-(table, player) sub-accounts and moves
// chips between a player's off-table Balance and their on-table Stack.
type EscrowManager struct {
	mu       sync.Mutex
	accounts map[escrowKey]*EscrowAccount
	balances *BalanceManager
}

func NewEscrowManager(balances *BalanceManager) *EscrowManager {
	return &EscrowManager{accounts: make(map[escrowKey]*EscrowAccount), balances: balances}
}

func (m *EscrowManager) get(tableID, playerID string) *EscrowAccount {
	key := escrowKey{tableID, playerID}
	a, ok := m.accounts[key]
	if !ok {
		a = &EscrowAccount{}
		m.accounts[key] = a
	}
	return a
}

// Account returns a snapshot of the escrow account.
func (m *EscrowManager) Account(tableID, playerID string) EscrowAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.get(tableID, playerID)
}

// BuyIn locks amount on the player's balance and adds it to their stack.
func (m *EscrowManager) BuyIn(tableID, playerID string, amount int64) error {
	if err := m.balances.Lock(playerID, amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(tableID, playerID)
	a.Stack += amount
	return nil
}

// CashOut reduces stack and unlocks the corresponding amount on the
// balance. Fails if amount exceeds the uncommitted stack.
func (m *EscrowManager) CashOut(tableID, playerID string, amount int64) error {
	m.mu.Lock()
	a := m.get(tableID, playerID)
	if amount > a.Stack-a.Committed {
		m.mu.Unlock()
		return protocol.NewReject(protocol.CodeInsufficientFunds, fmt.Sprintf("cannot cash out %d, only %d uncommitted", amount, a.Stack-a.Committed), nil)
	}
	a.Stack -= amount
	m.mu.Unlock()
	return m.balances.Unlock(playerID, amount)
}

// CommitChips moves stack -> committed, blocking cash-out of that amount.
func (m *EscrowManager) CommitChips(tableID, playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(tableID, playerID)
	if a.Stack-a.Committed < amount {
		return protocol.NewReject(protocol.CodeInsufficientChips, fmt.Sprintf("cannot commit %d, only %d available in stack", amount, a.Stack-a.Committed), nil)
	}
	a.Committed += amount
	return nil
}

// MoveToPot reduces committed chips: they are now conceptually in the pot.
func (m *EscrowManager) MoveToPot(tableID, playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(tableID, playerID)
	if a.Committed < amount {
		return protocol.NewReject(protocol.CodeInsufficientChips, "cannot move more to pot than committed", nil)
	}
	a.Committed -= amount
	a.Stack -= amount
	return nil
}

// AwardPot credits stack from the pot.
func (m *EscrowManager) AwardPot(tableID, playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(tableID, playerID)
	a.Stack += amount
	return nil
}

// ReleaseToBalance returns the full stack to the player's available
// balance and clears the escrow account; used when a room drains its
// mailbox on shutdown (spec.md §5 "cancellation").
func (m *EscrowManager) ReleaseToBalance(tableID, playerID string) error {
	m.mu.Lock()
	a := m.get(tableID, playerID)
	amount := a.Stack
	delete(m.accounts, escrowKey{tableID, playerID})
	m.mu.Unlock()
	if amount == 0 {
		return nil
	}
	if err := m.balances.Unlock(playerID, amount); err != nil {
		return m.balances.Credit(playerID, amount)
	}
	return nil
}
