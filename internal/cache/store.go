// Package cache gates re-execution of segment scan/split work behind
// content fingerprints. The persisted store is a single-table SQLite
// database mapping segment id to fingerprint; it is loaded whole at
// process start and written whole at process end.
//
// Cache failures are never fatal: a store that cannot be opened or read
// degrades to an empty in-memory store and the run proceeds.
package cache

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// OptionsKey is the reserved store key holding the fingerprint of the
// global configuration options block. Segment ids are UUIDs and can
// never collide with it.
const OptionsKey = "__options__"

// Store is the incremental cache. Entries live in memory for the whole
// run; the SQLite file is only touched by Open and Save.
type Store struct {
	db      *sql.DB
	entries map[string]Fingerprint
	enabled bool
	path    string
}

// Open loads the persisted store at path. Any failure (missing file is
// fine, corrupt data, unreadable database) degrades to an empty store
// with a warning. When enabled is false the store never reads or
// persists anything and every lookup misses.
func Open(path string, enabled bool) *Store {
	s := &Store{
		entries: make(map[string]Fingerprint),
		enabled: enabled,
		path:    path,
	}
	if !enabled {
		return s
	}

	db, err := sql.Open("sqlite3", path)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		slog.Warn("cache unavailable, starting empty", "path", path, "error", err)
		return s
	}

	// Single writer; the store is only read at start and written once
	// at the end of a successful run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		slog.Warn("cache schema rejected, starting empty", "path", path, "error", err)
		db.Close()
		return s
	}

	s.db = db
	if err := s.loadAll(); err != nil {
		slog.Warn("cache load failed, starting empty", "path", path, "error", err)
		s.entries = make(map[string]Fingerprint)
	}
	return s
}

func (s *Store) loadAll() error {
	rows, err := s.db.Query("SELECT id, fingerprint FROM fingerprints")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return err
		}
		if len(raw) != len(Fingerprint{}) {
			return fmt.Errorf("fingerprint for %s has %d bytes", id, len(raw))
		}
		var f Fingerprint
		copy(f[:], raw)
		s.entries[id] = f
	}
	return rows.Err()
}

// Enabled reports whether caching is active for this run.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Len returns the number of entries, the __options__ entry included.
func (s *Store) Len() int {
	return len(s.entries)
}

// InvalidateOnOptionsChange discards the whole store when the stored
// options fingerprint differs from the current one, keeping only the
// freshly computed options entry. Must run before any per-segment
// lookups. Reports whether the store was discarded.
func (s *Store) InvalidateOnOptionsChange(current Fingerprint) bool {
	if !s.enabled {
		return false
	}
	stored, ok := s.entries[OptionsKey]
	if ok && stored == current {
		return false
	}
	s.entries = map[string]Fingerprint{OptionsKey: current}
	return true
}

// Hit reports whether the stored fingerprint for id equals fp. Always
// false when caching is disabled.
func (s *Store) Hit(id string, fp Fingerprint) bool {
	if !s.enabled {
		return false
	}
	stored, ok := s.entries[id]
	return ok && stored == fp
}

// Update records the new fingerprint for id. The pipeline calls this on
// every split-pass miss before deciding whether the segment has any
// physical output to produce.
func (s *Store) Update(id string, fp Fingerprint) {
	if !s.enabled {
		return
	}
	s.entries[id] = fp
}

// Save persists the store, replacing the table contents in one
// transaction. Best-effort: skipped when caching is disabled or the
// store is empty, and a write failure is reported but not fatal.
func (s *Store) Save() error {
	if !s.enabled || len(s.entries) == 0 {
		return nil
	}

	if s.db == nil {
		// The initial open failed; try once more so a transient problem
		// (e.g. directory created mid-run) still gets a persisted cache.
		db, err := sql.Open("sqlite3", s.path)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			_, err = db.Exec(schemaSQL)
		}
		if err != nil {
			return fmt.Errorf("reopen cache for save: %w", err)
		}
		s.db = db
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM fingerprints"); err != nil {
		return fmt.Errorf("clear cache table: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO fingerprints (id, fingerprint) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	for id, fp := range s.entries {
		if _, err := stmt.Exec(id, fp[:]); err != nil {
			return fmt.Errorf("insert cache entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache save: %w", err)
	}
	return nil
}

// Close releases the underlying database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
