package economy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pokerauthority/core/pkg/protocol"
)

// LedgerEntryKind classifies a ledger entry (spec.md §3).
type LedgerEntryKind string

const (
	EntryBlindPost LedgerEntryKind = "blind-post"
	EntryBet       LedgerEntryKind = "bet"
	EntryPotWin    LedgerEntryKind = "pot-win"
	EntryRake      LedgerEntryKind = "rake"
	EntryTransfer  LedgerEntryKind = "transfer"
	EntryInitial   LedgerEntryKind = "initial-balance"
	EntrySettlement LedgerEntryKind = "settlement"
)

// LedgerEntry is one append-only record in the hash chain.
type LedgerEntry struct {
	ID            string
	Kind          LedgerEntryKind
	Amount        int64 // signed
	PlayerID      string
	HandID        string
	TableID       string
	ClubID        string
	BalanceAfter  int64
	Timestamp     int64
	PreviousHash  string
	Hash          string
	SettlementID  string // non-empty only for EntrySettlement, enforces recordSettlement idempotency
}

// canonicalFields is the subset of LedgerEntry hashed to produce Hash;
// it deliberately excludes Hash itself.
type canonicalFields struct {
	ID           string
	Kind         LedgerEntryKind
	Amount       int64
	PlayerID     string
	HandID       string
	TableID      string
	ClubID       string
	BalanceAfter int64
	Timestamp    int64
	PreviousHash string
	SettlementID string
}

func hashEntry(e LedgerEntry) string {
	cf := canonicalFields{
		ID: e.ID, Kind: e.Kind, Amount: e.Amount, PlayerID: e.PlayerID,
		HandID: e.HandID, TableID: e.TableID, ClubID: e.ClubID,
		BalanceAfter: e.BalanceAfter, Timestamp: e.Timestamp,
		PreviousHash: e.PreviousHash, SettlementID: e.SettlementID,
	}
	b, _ := json.Marshal(cf)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LedgerManager is the append-only, hash-chained financial audit trail.
type LedgerManager struct {
	mu      sync.Mutex
	entries []LedgerEntry
	settled map[string]bool // settlementId -> recorded, for recordSettlement idempotency
}

func NewLedgerManager() *LedgerManager {
	return &LedgerManager{settled: make(map[string]bool)}
}

// SetInitialBalance records the zeroth entry for a subject.
func (l *LedgerManager) SetInitialBalance(playerID string, amount int64, timestamp int64) (LedgerEntry, error) {
	return l.Record(LedgerEntry{
		Kind: EntryInitial, PlayerID: playerID, Amount: amount,
		BalanceAfter: amount, Timestamp: timestamp,
	})
}

// Record appends entry, auto-filling id, previousHash, and hash.
// BalanceAfter must already be computed by the caller; the ledger does
// not track running balances itself, it only guarantees the chain.
func (l *LedgerManager) Record(entry LedgerEntry) (LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Kind == EntrySettlement && entry.SettlementID != "" && l.settled[entry.SettlementID] {
		return LedgerEntry{}, protocol.NewReject(protocol.CodeDuplicateSettlement, fmt.Sprintf("settlement %s already recorded", entry.SettlementID), nil)
	}

	entry.ID = uuid.NewString()
	if len(l.entries) == 0 {
		entry.PreviousHash = ""
	} else {
		entry.PreviousHash = l.entries[len(l.entries)-1].Hash
	}
	entry.Hash = hashEntry(entry)

	l.entries = append(l.entries, entry)
	if entry.Kind == EntrySettlement && entry.SettlementID != "" {
		l.settled[entry.SettlementID] = true
	}
	return entry, nil
}

// Len returns the number of recorded entries.
func (l *LedgerManager) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// QueryFilter selects a subset of entries; zero-value fields match anything.
type QueryFilter struct {
	PlayerID  string
	HandID    string
	TableID   string
	Kind      LedgerEntryKind
	FromTime  int64
	ToTime    int64 // zero means "no upper bound"
}

// Query returns entries matching filter, in append order.
func (l *LedgerManager) Query(filter QueryFilter) []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LedgerEntry
	for _, e := range l.entries {
		if filter.PlayerID != "" && e.PlayerID != filter.PlayerID {
			continue
		}
		if filter.HandID != "" && e.HandID != filter.HandID {
			continue
		}
		if filter.TableID != "" && e.TableID != filter.TableID {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.FromTime != 0 && e.Timestamp < filter.FromTime {
			continue
		}
		if filter.ToTime != 0 && e.Timestamp > filter.ToTime {
			continue
		}
		out = append(out, e)
	}
	return out
}

// DivergenceReport describes the first point where the hash chain breaks.
type DivergenceReport struct {
	Index  int
	Reason string
}

// VerifyIntegrity recomputes every hash in the chain and returns the
// first divergence, or nil if the chain is intact.
func (l *LedgerManager) VerifyIntegrity() *DivergenceReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	var previous string
	for i, e := range l.entries {
		if e.PreviousHash != previous {
			return &DivergenceReport{Index: i, Reason: "previousHash does not match predecessor's hash"}
		}
		if hashEntry(e) != e.Hash {
			return &DivergenceReport{Index: i, Reason: "hash does not match canonical fields"}
		}
		previous = e.Hash
	}
	return nil
}

// VerifyHandConservation checks that entries for handID net to zero
// modulo rake (i.e. pot-ins balance pot-outs plus rake).
func (l *LedgerManager) VerifyHandConservation(handID string) error {
	entries := l.Query(QueryFilter{HandID: handID})
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	if total != 0 {
		return &protocol.IntegrityFault{
			Component: "ledger",
			Reason:    fmt.Sprintf("hand %s entries do not net to zero: %d", handID, total),
		}
	}
	return nil
}

// Export returns a copy of the full entry list, suitable for
// ReplayEntries on another instance (spec.md §6 "persisted / exported state").
func (l *LedgerManager) Export() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ReplayEntries walks exported entries in order, re-derives running
// balances per subject, and asserts the result matches expectedFinalBalances.
func ReplayEntries(exported []LedgerEntry, expectedFinalBalances map[string]int64) error {
	running := make(map[string]int64)
	var previous string
	for i, e := range exported {
		if e.PreviousHash != previous {
			return fmt.Errorf("divergence at entry %d: previousHash mismatch", i)
		}
		if hashEntry(e) != e.Hash {
			return fmt.Errorf("divergence at entry %d: hash mismatch", i)
		}
		if e.PlayerID != "" {
			running[e.PlayerID] += e.Amount
		}
		previous = e.Hash
	}
	for player, expected := range expectedFinalBalances {
		if running[player] != expected {
			return fmt.Errorf("final balance mismatch for %s: replayed %d, expected %d", player, running[player], expected)
		}
	}
	return nil
}
