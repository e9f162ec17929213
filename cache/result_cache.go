// Package cache persists per-file scan results keyed by content hash, so
// repeated scans skip files that have not changed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/smelldet/smelldet/models"
)

const (
	CacheDir  = ".smelldet"
	CacheFile = "cache.db"

	openTimeout = time.Second
	dirMode     = 0o755
	fileMode    = 0o644
)

var (
	bucketResults = []byte("results")
	bucketMeta    = []byte("meta")
	statsKey      = []byte("stats")
)

// Cache is a bbolt-backed store of scan results. Entries are keyed by file
// path and carry the content hash they were computed from; a hash mismatch
// is a miss.
type Cache struct {
	db  *bolt.DB
	dir string
}

// Entry is one cached file's scan result.
type Entry struct {
	Hash      string         `msgpack:"hash"`
	Alerts    []models.Alert `msgpack:"alerts"`
	ScannedAt time.Time      `msgpack:"scanned_at"`
}

// Stats summarizes cache contents and usage.
type Stats struct {
	Files  int `msgpack:"files"`
	Alerts int `msgpack:"alerts"`
	Hits   int `msgpack:"hits"`
	Misses int `msgpack:"misses"`
}

// Open opens (or creates) the cache database under baseDir.
func Open(baseDir string) (*Cache, error) {
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	dir := filepath.Join(baseDir, CacheDir)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, CacheFile), fileMode, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketResults); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache buckets: %w", err)
	}

	return &Cache{db: db, dir: dir}, nil
}

// Get returns the cached alerts for path if the stored content hash still
// matches. Hit/miss counters are updated as a side effect.
func (c *Cache) Get(path, hash string) ([]models.Alert, bool) {
	var alerts []models.Alert
	found := false

	_ = c.db.Update(func(tx *bolt.Tx) error {
		stats := readStats(tx)

		raw := tx.Bucket(bucketResults).Get([]byte(path))
		if raw != nil {
			var entry Entry
			if err := msgpack.Unmarshal(raw, &entry); err == nil && entry.Hash == hash {
				alerts = entry.Alerts
				found = true
			}
		}

		if found {
			stats.Hits++
		} else {
			stats.Misses++
		}
		return writeStats(tx, stats)
	})

	return alerts, found
}

// Put stores the alerts computed for path at the given content hash.
func (c *Cache) Put(path, hash string, alerts []models.Alert) error {
	raw, err := msgpack.Marshal(Entry{
		Hash:      hash,
		Alerts:    alerts,
		ScannedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketResults).Put([]byte(path), raw); err != nil {
			return err
		}
		return recountStats(tx)
	})
}

// Stats returns the current cache statistics.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	err := c.db.View(func(tx *bolt.Tx) error {
		stats = readStats(tx)
		return nil
	})
	return stats, err
}

// Clear drops every cached result and resets the counters.
func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketResults); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(bucketResults); err != nil {
			return err
		}
		return writeStats(tx, Stats{})
	})
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func readStats(tx *bolt.Tx) Stats {
	var stats Stats
	if raw := tx.Bucket(bucketMeta).Get(statsKey); raw != nil {
		_ = msgpack.Unmarshal(raw, &stats)
	}
	return stats
}

func writeStats(tx *bolt.Tx, stats Stats) error {
	raw, err := msgpack.Marshal(stats)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put(statsKey, raw)
}

// recountStats refreshes the files/alerts totals while preserving the
// hit/miss counters.
func recountStats(tx *bolt.Tx) error {
	stats := readStats(tx)
	stats.Files = 0
	stats.Alerts = 0

	err := tx.Bucket(bucketResults).ForEach(func(_, raw []byte) error {
		var entry Entry
		if err := msgpack.Unmarshal(raw, &entry); err != nil {
			return nil
		}
		stats.Files++
		stats.Alerts += len(entry.Alerts)
		return nil
	})
	if err != nil {
		return err
	}

	return writeStats(tx, stats)
}

// FileHash computes the streaming SHA-256 of a file's content.
func FileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
