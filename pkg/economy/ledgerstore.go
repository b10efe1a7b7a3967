package economy

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LedgerStore persists a LedgerManager's hash chain to an on-disk
// LevelDB database, keyed by entry index so an iterator over the
// store's prefix replays entries in append order. It exists for
// operators who need the ledger to survive a process restart or to
// ship an export off-box for out-of-process tamper verification
// (spec.md §4.4/§6's "persisted / exported state"); an in-memory
// LedgerManager alone has neither property.
type LedgerStore struct {
	db *leveldb.DB
}

const ledgerKeyPrefix = "ledger:"

// OpenLedgerStore opens (or creates) a LevelDB database at path.
func OpenLedgerStore(path string) (*LedgerStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger store %q: %w", path, err)
	}
	return &LedgerStore{db: db}, nil
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

func ledgerKey(index int) []byte {
	var buf [len(ledgerKeyPrefix) + 8]byte
	copy(buf[:], ledgerKeyPrefix)
	binary.BigEndian.PutUint64(buf[len(ledgerKeyPrefix):], uint64(index))
	return buf[:]
}

// Persist writes entries[from:] to the store, keyed by their absolute
// index in the chain. Callers typically pass l.Export()[lastWritten:]
// after every settlement to append incrementally.
func (s *LedgerStore) Persist(entries []LedgerEntry, from int) error {
	batch := new(leveldb.Batch)
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal ledger entry %d: %w", from+i, err)
		}
		batch.Put(ledgerKey(from+i), data)
	}
	return s.db.Write(batch, nil)
}

// Load reads every persisted entry back in append order, suitable for
// feeding straight into ReplayEntries.
func (s *LedgerStore) Load() ([]LedgerEntry, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(ledgerKeyPrefix)), nil)
	defer iter.Release()

	var out []LedgerEntry
	for iter.Next() {
		var e LedgerEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("unmarshal ledger entry: %w", err)
		}
		out = append(out, e)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
