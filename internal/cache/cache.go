// Package cache provides the persistent geocode cache. Once an address has
// been geocoded the result is kept forever, across runs and across years,
// since street addresses do not move. Failed lookups are kept too, so a
// malformed address is never re-billed; correcting the address produces a
// new cache key and geocodes normally.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/peter-mxtoolbox/treeroutes/internal/models"
)

// ErrConflict is returned when a success entry would be overwritten with
// different coordinates for the same key. This indicates a data-integrity
// anomaly and is logged as a warning by callers, never treated as fatal.
var ErrConflict = errors.New("cache entry conflict: success entry already exists with different coordinates")

// coordEpsilon is the tolerance used when comparing stored coordinates.
const coordEpsilon = 1e-7

// Stats holds hit/miss counters for one run.
type Stats struct {
	Hits   int // Lookups served from the cache.
	Misses int // Lookups that required a provider call.
}

// Cache is a durable key-value store of geocode results backed by BadgerDB.
// Writes are synchronous, so every completed lookup survives a crash mid-run
// and re-running resumes without re-billing.
type Cache struct {
	db    *badger.DB
	log   *slog.Logger
	stats Stats
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// Open opens (or creates) the cache at the given directory.
func Open(path string, log *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache at %q: %w", path, err)
	}

	cache := &Cache{db: db, log: log}

	count, err := cache.Len()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Geocode cache opened", "path", path, "entries", count)

	return cache, nil
}

// OpenInMemory opens a cache with no disk persistence. Used in tests.
func OpenInMemory(log *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(&badgerLogger{log: log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory geocode cache: %w", err)
	}

	return &Cache{db: db, log: log}, nil
}

// Close flushes and closes the underlying store.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close geocode cache: %w", err)
	}
	return nil
}

// Lookup returns the cached entry for a normalized address. The second
// return value reports whether the key was present. Lookup has no side
// effects beyond the run's hit/miss counters.
func (c *Cache) Lookup(normalized string) (models.GeocodeEntry, bool, error) {
	var entry models.GeocodeEntry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(normalized))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.stats.Misses++
		return models.GeocodeEntry{}, false, nil
	}
	if err != nil {
		return models.GeocodeEntry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	c.stats.Hits++
	return entry, true, nil
}

// Store inserts or overwrites the entry under its normalized key. It returns
// ErrConflict if an existing success entry would be overwritten with
// different coordinates; the store is left unchanged in that case.
func (c *Cache) Store(entry models.GeocodeEntry) error {
	key := Key(entry.Normalized)

	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			var existing models.GeocodeEntry
			if err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return fmt.Errorf("failed to decode existing entry: %w", err)
			}
			if existing.Resolved() && entry.Resolved() && !sameCoords(existing, entry) {
				return ErrConflict
			}
			// Success entries are permanent; never downgrade one to a failure.
			if existing.Resolved() && !entry.Resolved() {
				return nil
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to read existing entry: %w", err)
		}

		val, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode cache entry: %w", err)
		}
		return txn.Set(key, val)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() (int, error) {
	var count int
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// Stats returns the hit/miss counters accumulated during this run.
func (c *Cache) Stats() Stats {
	return c.stats
}

func sameCoords(a, b models.GeocodeEntry) bool {
	return math.Abs(a.Latitude-b.Latitude) < coordEpsilon &&
		math.Abs(a.Longitude-b.Longitude) < coordEpsilon
}
