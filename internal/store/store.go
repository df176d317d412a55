// Package store persists groups, hosts and tags in a local sqlite
// database and handles JSON export/import of the whole inventory.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint would break.
	ErrDuplicate = errors.New("already exists")
)

const schemaVersion = 2

var migrations = map[int]string{
	1: `
	CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS hosts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		hostname TEXT NOT NULL,
		port INTEGER,
		user TEXT,
		identity_file TEXT,
		ssh_config_host_alias TEXT,
		notes TEXT,
		FOREIGN KEY(group_id) REFERENCES groups(id) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS hosts_group_hostname_unique
		ON hosts(group_id, hostname);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS host_tags (
		host_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (host_id, tag_id),
		FOREIGN KEY(host_id) REFERENCES hosts(id) ON DELETE CASCADE,
		FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);
	`,
	2: `
	ALTER TABLE hosts ADD COLUMN favorite INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE hosts ADD COLUMN color TEXT;
	`,
}

// Store wraps the sqlite handle. Connection count is pinned to one; the
// application is single-writer and WAL keeps readers happy.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	var current int
	err := s.db.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_meta (version) VALUES (0)"); err != nil {
			return fmt.Errorf("seed schema version: %w", err)
		}
		current = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for version := current + 1; version <= schemaVersion; version++ {
		script, ok := migrations[version]
		if !ok {
			return fmt.Errorf("missing migration for version %d", version)
		}
		if _, err := s.db.Exec(script); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := s.db.Exec("UPDATE schema_meta SET version = ?", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}
