package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

// BadgerCache stores resolved media URLs and page snapshots so a
// re-attempted download can skip the scrape round trips. Entries carry
// a TTL; Drive's signed playback URLs expire quickly.
type BadgerCache struct {
	db     *badger.DB
	stopGC chan struct{}
}

// Options contains options for creating a BadgerCache
type Options struct {
	Directory string
	InMemory  bool
}

// New creates a new Badger-backed cache
func New(opts Options) (*BadgerCache, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Directory == "" {
			return nil, fmt.Errorf("cache directory is required")
		}
		if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		badgerOpts = badger.DefaultOptions(opts.Directory)
	}

	// Badger logs to stderr by default, which corrupts progress output.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	c := &BadgerCache{
		db:     db,
		stopGC: make(chan struct{}),
	}

	// Background value-log garbage collection
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = db.RunValueLogGC(0.5)
			case <-c.stopGC:
				return
			}
		}
	}()

	return c, nil
}

// Get retrieves a value from the cache
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}
	return value, nil
}

// Set stores a value in the cache with a TTL
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Has reports whether a key exists in the cache
func (c *BadgerCache) Has(ctx context.Context, key string) bool {
	if ctx.Err() != nil {
		return false
	}

	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	return err == nil
}

// Delete removes a key from the cache
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (c *BadgerCache) Close() error {
	if c.db == nil {
		return nil
	}
	close(c.stopGC)
	return c.db.Close()
}
