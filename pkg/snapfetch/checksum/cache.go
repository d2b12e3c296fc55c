package checksum

import (
	"os"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/fingerprint"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/logging"
)

// Cache is the verification-facing view of the record store. All methods
// are safe on a nil receiver, which is how the engine runs when the store
// could not be opened: every lookup misses and every write is dropped.
type Cache struct {
	store *Store
	log   *logging.Logger
}

// Open opens the cache at path. A store that fails to open is assumed
// corrupt, removed, and recreated once; only a second failure is returned.
func Open(path string) (*Cache, error) {
	logger := logging.Get("cache")

	store, err := OpenStore(path)
	if err != nil {
		logger.Warn("cache store unreadable, recreating", "path", path, "error", err)
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, rmErr
		}
		store, err = OpenStore(path)
		if err != nil {
			return nil, err
		}
	}

	return &Cache{store: store, log: logger}, nil
}

// Lookup returns the cached digest for a part if a record exists and its
// stored fingerprint matches the part's current fingerprint. Any store
// error reads as a miss.
func (c *Cache) Lookup(dir, filename string, fp fingerprint.Fingerprint) (string, bool) {
	if c == nil {
		return "", false
	}

	rec, err := c.store.Get(dir, filename)
	if err != nil {
		if err != ErrNotFound {
			c.log.Warn("cache read failed", "filename", filename, "error", err)
		}
		return "", false
	}

	if !rec.Fingerprint().Equal(fp) {
		c.log.Debug("cache record stale", "filename", filename,
			"cached", rec.Fingerprint().String(), "current", fp.String())
		return "", false
	}

	return rec.Checksum, true
}

// Record stores the digest computed for a part together with the
// fingerprint it was hashed under. Failures are logged and dropped; a
// record that never lands only costs a rehash next pass.
func (c *Cache) Record(dir, filename, sum string, fp fingerprint.Fingerprint) {
	if c == nil {
		return
	}

	rec := &Record{Checksum: sum, ModTime: fp.ModTime, Size: fp.Size}
	if err := c.store.Put(dir, filename, rec); err != nil {
		c.log.Warn("cache write failed", "filename", filename, "error", err)
	}
}

// Forget drops the record for a part. Used when a part is deleted during
// recovery so no stale digest outlives the file it described.
func (c *Cache) Forget(dir, filename string) {
	if c == nil {
		return
	}

	if err := c.store.Delete(dir, filename); err != nil {
		c.log.Warn("cache delete failed", "filename", filename, "error", err)
	}
}

// Clear removes every record under a working directory.
func (c *Cache) Clear(dir string) error {
	if c == nil {
		return nil
	}
	return c.store.DeletePrefix(dir)
}

// Count returns the number of records under a working directory.
func (c *Cache) Count(dir string) int {
	if c == nil {
		return 0
	}
	n, err := c.store.Count(dir)
	if err != nil {
		c.log.Warn("cache count failed", "error", err)
		return 0
	}
	return n
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}
