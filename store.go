package action

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

// ErrNotFound is returned by Store.Get for a definition that does not exist.
var ErrNotFound = errors.New("action definition not found")

// Store is a SQLite-backed registry of action definitions keyed by
// (namespace, name). The definition document is stored as JSON, so every
// load re-runs the limit decoders and an out-of-range definition can never
// be materialized from the store. Bundled source is stored
// brotli-compressed alongside the document.
type Store struct {
	db *sql.DB
}

const storeSchema = `CREATE TABLE IF NOT EXISTS action_definitions (
	namespace TEXT NOT NULL,
	name      TEXT NOT NULL,
	doc       TEXT NOT NULL,
	source    BLOB,
	PRIMARY KEY (namespace, name)
)`

// OpenStore opens (or creates) the definition store at
// {dataDir}/actions.sqlite3.
func OpenStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "actions.sqlite3")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening definition store: %w", err)
	}
	// Enable WAL mode for better concurrent access.
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	if _, err := db.Exec(storeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating definition table: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreMemory creates an in-memory store for testing.
func NewStoreMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating definition table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put upserts a definition and its bundled source. The definition is
// validated before anything is written; source may be nil for definitions
// registered ahead of their first deploy.
func (s *Store) Put(def *Definition, source []byte) error {
	if err := def.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding definition %s/%s: %w", def.Namespace, def.Name, err)
	}
	var blob []byte
	if source != nil {
		blob, err = CompressSource(source)
		if err != nil {
			return err
		}
	}
	_, err = s.db.Exec(
		`INSERT INTO action_definitions (namespace, name, doc, source) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, name) DO UPDATE SET doc = excluded.doc, source = excluded.source`,
		def.Namespace, def.Name, string(doc), blob,
	)
	if err != nil {
		return fmt.Errorf("storing definition %s/%s: %w", def.Namespace, def.Name, err)
	}
	return nil
}

// Get loads a definition and its bundled source. The returned source is
// nil when none was stored. Missing definitions fail with ErrNotFound.
func (s *Store) Get(namespace, name string) (*Definition, []byte, error) {
	var doc string
	var blob []byte
	err := s.db.QueryRow(
		`SELECT doc, source FROM action_definitions WHERE namespace = ? AND name = ?`,
		namespace, name,
	).Scan(&doc, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading definition %s/%s: %w", namespace, name, err)
	}
	def, err := ParseDefinition([]byte(doc))
	if err != nil {
		return nil, nil, fmt.Errorf("stored definition %s/%s: %w", namespace, name, err)
	}
	var source []byte
	if len(blob) > 0 {
		source, err = DecompressSource(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("stored source %s/%s: %w", namespace, name, err)
		}
	}
	return def, source, nil
}

// List returns all definitions in a namespace, ordered by name. Source
// blobs are not loaded.
func (s *Store) List(namespace string) ([]*Definition, error) {
	rows, err := s.db.Query(
		`SELECT doc FROM action_definitions WHERE namespace = ? ORDER BY name`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("listing definitions in %s: %w", namespace, err)
	}
	defer func() { _ = rows.Close() }()

	var defs []*Definition
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("listing definitions in %s: %w", namespace, err)
		}
		def, err := ParseDefinition([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("stored definition in %s: %w", namespace, err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing definitions in %s: %w", namespace, err)
	}
	return defs, nil
}

// Delete removes a definition. Deleting a missing definition fails with
// ErrNotFound.
func (s *Store) Delete(namespace, name string) error {
	res, err := s.db.Exec(
		`DELETE FROM action_definitions WHERE namespace = ? AND name = ?`,
		namespace, name,
	)
	if err != nil {
		return fmt.Errorf("deleting definition %s/%s: %w", namespace, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting definition %s/%s: %w", namespace, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, name)
	}
	return nil
}
