package economy

import (
	"sync"

	"github.com/pokerauthority/core/pkg/protocol"
)

// WinnerDecision is the caller-supplied outcome for one side-pot: the
// ordered winner list the engine should pay, already chosen by the
// caller's injected hand-ranking function among the pot's eligible set.
type WinnerDecision struct {
	PotIndex int
	Winners  []string
}

// SettleHandInput bundles everything EconomyEngine.SettleHand needs:
// the hand's recorded contributions plus the caller's per-pot winner
// decisions and rake context.
type SettleHandInput struct {
	HandID      string
	TableID     string
	Rake        RakeInput
	Decisions   []WinnerDecision
	Timestamp   int64
}

// SettleHandResult reports what a settlement produced.
type SettleHandResult struct {
	Pots    []SidePot
	Rake    RakeResult
	Payouts []Payout
}

// EconomyEngine is the facade the authority calls: it wires balances,
// escrow, per-hand pot tracking, rake, and the ledger behind the
// hand-level operations spec.md §4.4 names.
type EconomyEngine struct {
	mu      sync.Mutex
	Balances *BalanceManager
	Escrow   *EscrowManager
	Ledger   *LedgerManager
	Rake     *RakeCalculator

	pots    map[string]*HandPotTracker // handID -> tracker
	settled map[string]bool
}

func NewEconomyEngine(rakeCfg RakeConfig) *EconomyEngine {
	balances := NewBalanceManager()
	return &EconomyEngine{
		Balances: balances,
		Escrow:   NewEscrowManager(balances),
		Ledger:   NewLedgerManager(),
		Rake:     NewRakeCalculator(rakeCfg),
		pots:     make(map[string]*HandPotTracker),
		settled:  make(map[string]bool),
	}
}

// InitializePlayer seeds a player's off-table balance and records the
// zeroth ledger entry.
func (e *EconomyEngine) InitializePlayer(playerID string, startingBalance int64, timestamp int64) error {
	e.Balances.CreateBalance(playerID)
	if err := e.Balances.Credit(playerID, startingBalance); err != nil {
		return err
	}
	_, err := e.Ledger.SetInitialBalance(playerID, startingBalance, timestamp)
	return err
}

// BuyIn moves chips from balance to a table stack.
func (e *EconomyEngine) BuyIn(tableID, playerID string, amount int64) error {
	return e.Escrow.BuyIn(tableID, playerID, amount)
}

// StartHand opens a fresh per-hand pot tracker.
func (e *EconomyEngine) StartHand(handID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pots[handID] = NewHandPotTracker()
}

// PostBlinds commits and moves blind amounts into the hand's pot,
// recording a blind-post ledger entry per player.
func (e *EconomyEngine) PostBlinds(handID, tableID string, blinds map[string]int64, timestamp int64) error {
	tracker := e.trackerFor(handID)
	for playerID, amount := range blinds {
		if err := e.commitAndPot(tableID, playerID, amount); err != nil {
			return err
		}
		tracker.AddContribution("preflop", playerID, amount)
		acct := e.Escrow.Account(tableID, playerID)
		if _, err := e.Ledger.Record(LedgerEntry{
			Kind: EntryBlindPost, PlayerID: playerID, Amount: -amount,
			HandID: handID, TableID: tableID, BalanceAfter: acct.Stack, Timestamp: timestamp,
		}); err != nil {
			return err
		}
	}
	return nil
}

// RecordAction commits amount from a player's stack to the pot for a
// bet/call/raise/all-in action on street, recording a bet ledger entry.
func (e *EconomyEngine) RecordAction(handID, tableID, street, playerID string, amount int64, timestamp int64) error {
	tracker := e.trackerFor(handID)
	if amount > 0 {
		if err := e.commitAndPot(tableID, playerID, amount); err != nil {
			return err
		}
	}
	tracker.AddContribution(street, playerID, amount)
	acct := e.Escrow.Account(tableID, playerID)
	if acct.Stack == 0 {
		tracker.MarkAllIn(playerID)
	}
	if amount == 0 {
		return nil
	}
	_, err := e.Ledger.Record(LedgerEntry{
		Kind: EntryBet, PlayerID: playerID, Amount: -amount,
		HandID: handID, TableID: tableID, BalanceAfter: acct.Stack, Timestamp: timestamp,
	})
	return err
}

// PlayerFolded flags a player's contributions as no longer eligible to win.
func (e *EconomyEngine) PlayerFolded(handID, playerID string) {
	e.trackerFor(handID).MarkFolded(playerID)
}

// PreviewPots computes the side-pots a hand would settle into without
// recording anything, so the caller's hand-ranking function can decide
// winners per pot before calling SettleHand.
func (e *EconomyEngine) PreviewPots(handID string) []SidePot {
	tracker := e.trackerFor(handID)
	return CalculateSidePots(tracker.Contributions())
}

func (e *EconomyEngine) commitAndPot(tableID, playerID string, amount int64) error {
	if err := e.Escrow.CommitChips(tableID, playerID, amount); err != nil {
		return err
	}
	return e.Escrow.MoveToPot(tableID, playerID, amount)
}

func (e *EconomyEngine) trackerFor(handID string) *HandPotTracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.pots[handID]
	if !ok {
		t = NewHandPotTracker()
		e.pots[handID] = t
	}
	return t
}

// SettleHand computes side-pots from the hand's tracked contributions,
// applies rake to the main pot, pays out winners per the caller's
// decisions, and records ledger entries. It is idempotent: a second
// call for the same handID fails with ALREADY_SETTLED and leaves
// balances and pots unchanged.
func (e *EconomyEngine) SettleHand(in SettleHandInput) (SettleHandResult, error) {
	e.mu.Lock()
	if e.settled[in.HandID] {
		e.mu.Unlock()
		return SettleHandResult{}, protocol.NewReject(protocol.CodeDuplicateSettlement, "ALREADY_SETTLED", map[string]string{"handId": in.HandID})
	}
	tracker, ok := e.pots[in.HandID]
	e.mu.Unlock()
	if !ok {
		return SettleHandResult{}, protocol.NewReject(protocol.CodeInvalidHandID, "no active pot tracker for hand", nil)
	}

	contributions := tracker.Contributions()
	pots := CalculateSidePots(contributions)

	rakeIn := in.Rake
	rakeIn.Pot = TotalPots(pots)
	rakeResult := e.Rake.Calculate(rakeIn)

	potsAfterRake := deductRakeFromMainPot(pots, rakeResult.RakeAmount)

	winnersByPot := make([][]string, len(potsAfterRake))
	for _, d := range in.Decisions {
		if d.PotIndex >= 0 && d.PotIndex < len(winnersByPot) {
			winnersByPot[d.PotIndex] = d.Winners
		}
	}
	payouts := SettlePots(potsAfterRake, winnersByPot)

	for _, p := range payouts {
		if err := e.Escrow.AwardPot(in.TableID, p.PlayerID, p.Amount); err != nil {
			return SettleHandResult{}, err
		}
		acct := e.Escrow.Account(in.TableID, p.PlayerID)
		if _, err := e.Ledger.Record(LedgerEntry{
			Kind: EntryPotWin, PlayerID: p.PlayerID, Amount: p.Amount,
			HandID: in.HandID, TableID: in.TableID, BalanceAfter: acct.Stack, Timestamp: in.Timestamp,
		}); err != nil {
			return SettleHandResult{}, err
		}
	}

	if rakeResult.RakeAmount > 0 {
		if _, err := e.Ledger.Record(LedgerEntry{
			Kind: EntryRake, Amount: rakeResult.RakeAmount,
			HandID: in.HandID, TableID: in.TableID, Timestamp: in.Timestamp,
		}); err != nil {
			return SettleHandResult{}, err
		}
	}

	if _, err := e.Ledger.Record(LedgerEntry{
		Kind: EntrySettlement, HandID: in.HandID, TableID: in.TableID,
		SettlementID: in.HandID, Timestamp: in.Timestamp,
	}); err != nil {
		return SettleHandResult{}, err
	}

	// Pot conservation is checked live on every settlement, not only in
	// tests: a hand's ledger entries (bets in, pot-wins and rake out)
	// must net to zero, or the violation is an unrecoverable integrity
	// fault the caller must halt the table on (spec.md §6).
	if err := e.Ledger.VerifyHandConservation(in.HandID); err != nil {
		return SettleHandResult{}, err
	}

	e.mu.Lock()
	e.settled[in.HandID] = true
	delete(e.pots, in.HandID)
	e.mu.Unlock()

	return SettleHandResult{Pots: potsAfterRake, Rake: rakeResult, Payouts: payouts}, nil
}

// deductRakeFromMainPot removes rakeAmount from the first (most
// broadly eligible) pot, spilling into subsequent pots only if the
// main pot is smaller than the rake — which never happens for a
// correctly configured rake cap, but is handled defensively rather
// than going negative.
func deductRakeFromMainPot(pots []SidePot, rakeAmount int64) []SidePot {
	if rakeAmount <= 0 || len(pots) == 0 {
		return pots
	}
	out := append([]SidePot{}, pots...)
	remaining := rakeAmount
	for i := range out {
		if remaining <= 0 {
			break
		}
		take := remaining
		if take > out[i].Amount {
			take = out[i].Amount
		}
		out[i].Amount -= take
		remaining -= take
	}
	return out
}

// GetPlayerStack returns a player's current on-table stack.
func (e *EconomyEngine) GetPlayerStack(tableID, playerID string) int64 {
	return e.Escrow.Account(tableID, playerID).Stack
}

// VerifyIntegrity recomputes the ledger hash chain.
func (e *EconomyEngine) VerifyIntegrity() *DivergenceReport {
	return e.Ledger.VerifyIntegrity()
}
