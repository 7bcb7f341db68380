package blocklist

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// metaBuiltKey stores the unix time of the last successful rebuild.
var metaBuiltKey = []byte("!meta:built_at")

// Index is a Badger-backed membership set of blocklisted IPs. Lookups are
// point reads on the LSM tree; rebuilds replace the whole set atomically
// under the write lock.
type Index struct {
	mu sync.RWMutex
	db *badger.DB
}

// OpenIndex opens (or creates) the index at path.
func OpenIndex(path string) (*Index, error) {
	opts := badger.DefaultOptions(filepath.Clean(path)).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blocklist index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

// Contains reports whether ip is in the block set.
func (i *Index) Contains(ip string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	found := false
	err := i.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(ip))
		if err == nil {
			found = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("blocklist lookup: %w", err)
	}
	return found, nil
}

// Rebuild replaces the whole set with the given IPs. Readers block for the
// duration of the swap; the set is never observable half-built.
func (i *Index) Rebuild(ips []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.db.DropAll(); err != nil {
		return fmt.Errorf("drop blocklist index: %w", err)
	}

	wb := i.db.NewWriteBatch()
	defer wb.Cancel()

	for _, ip := range ips {
		if err := wb.Set([]byte(ip), nil); err != nil {
			return fmt.Errorf("write blocklist entry: %w", err)
		}
	}
	builtAt := strconv.FormatInt(time.Now().Unix(), 10)
	if err := wb.Set(metaBuiltKey, []byte(builtAt)); err != nil {
		return fmt.Errorf("write blocklist metadata: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush blocklist index: %w", err)
	}
	return nil
}

// Stats describes the index for the status surface.
type Stats struct {
	Entries int64     `json:"entries"`
	BuiltAt time.Time `json:"built_at"`
}

// Stats counts entries and reads the last rebuild time.
func (i *Index) Stats() (Stats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var stats Stats
	err := i.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			stats.Entries++
		}

		item, err := txn.Get(metaBuiltKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		stats.Entries-- // meta key is not a block entry
		return item.Value(func(val []byte) error {
			unix, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return err
			}
			stats.BuiltAt = time.Unix(unix, 0).UTC()
			return nil
		})
	})
	if err != nil {
		return Stats{}, fmt.Errorf("blocklist stats: %w", err)
	}
	return stats, nil
}
