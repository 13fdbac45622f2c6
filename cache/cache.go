// Package cache stores compiled objects in SQLite, keyed by the listing
// key of the program they were generated from.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chazu/pasc/artifact"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// DefaultPath is used when the manifest does not name a cache file.
const DefaultPath = ".pasc/cache.db"

// Stats summarizes the cache contents and the activity of this Store.
type Stats struct {
	Entries int
	Bytes   int64
	Hits    int
	Misses  int
}

// Store is a build cache backed by a SQLite database. It is safe for
// concurrent use.
type Store struct {
	db  *sql.DB
	log commonlog.Logger

	mu     sync.RWMutex
	hits   int
	misses int
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps writers from
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: commonlog.GetLogger("pasc.cache")}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS objects (
		listing_key TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		program TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Get returns the object stored under key. The boolean reports whether an
// entry was found.
func (s *Store) Get(ctx context.Context, listingKey [32]byte) (*artifact.Object, bool, error) {
	key := hex.EncodeToString(listingKey[:])

	s.mu.RLock()
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE listing_key = ?`, key).Scan(&data)
	s.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		s.count(false)
		s.log.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", key, err)
	}

	obj, err := artifact.Unmarshal(data)
	if err != nil {
		// An entry written by an older format counts as absent.
		s.count(false)
		s.log.Warningf("cache: discarding unreadable entry %s: %v", key, err)
		return nil, false, nil
	}
	s.count(true)
	s.log.Debug("cache hit", "key", key)
	return obj, true, nil
}

// Put stores obj, replacing any entry with the same key.
func (s *Store) Put(ctx context.Context, obj *artifact.Object) error {
	data, err := artifact.Marshal(obj)
	if err != nil {
		return fmt.Errorf("cache: encode object: %w", err)
	}
	key := hex.EncodeToString(obj.Key[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (listing_key, fingerprint, program, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(listing_key) DO UPDATE SET fingerprint = excluded.fingerprint, program = excluded.program, data = excluded.data, created_at = CURRENT_TIMESTAMP
	`, key, hex.EncodeToString(obj.Fingerprint[:]), obj.Program, data)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// Stats reports the number and total size of stored entries together with
// the hit and miss counts seen by this Store.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Hits: s.hits, Misses: s.misses}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM objects`).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: stats: %w", err)
	}
	return st, nil
}

// Purge removes every entry.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects`); err != nil {
		return fmt.Errorf("cache: purge: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) count(hit bool) {
	s.mu.Lock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()
}
