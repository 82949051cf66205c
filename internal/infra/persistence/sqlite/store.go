// Package sqlite provides the production persistent store. It layers durable
// SQLite snapshots on top of the in-memory transactional store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"vendcore/internal/infra/persistence/memory"
	"vendcore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction, so every
// committed mutation is durable before RunInTransaction returns.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// bucketCodec binds a durable table name to the snapshot field it serializes.
type bucketCodec struct {
	name   string
	encode func(memory.Snapshot) ([]byte, error)
	decode func(*memory.Snapshot, []byte) error
}

var buckets = []bucketCodec{
	{
		name:   "buildings",
		encode: func(s memory.Snapshot) ([]byte, error) { return json.Marshal(s.Buildings) },
		decode: func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Buildings) },
	},
	{
		name:   "vending_machines",
		encode: func(s memory.Snapshot) ([]byte, error) { return json.Marshal(s.Machines) },
		decode: func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Machines) },
	},
	{
		name:   "products",
		encode: func(s memory.Snapshot) ([]byte, error) { return json.Marshal(s.Products) },
		decode: func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Products) },
	},
	{
		name:   "inventory",
		encode: func(s memory.Snapshot) ([]byte, error) { return json.Marshal(s.Inventory) },
		decode: func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Inventory) },
	},
	{
		name:   "maintenance_records",
		encode: func(s memory.Snapshot) ([]byte, error) { return json.Marshal(s.MaintenanceRecords) },
		decode: func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.MaintenanceRecords) },
	},
}

// NewStore opens (or creates) the database at path, ensures the state table
// exists and hydrates the in-memory store from any previous snapshot.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "vendcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}

	var snapshot memory.Snapshot
	for _, codec := range buckets {
		payload, ok := payloads[codec.name]
		if !ok {
			continue
		}
		if err := codec.decode(&snapshot, payload); err != nil {
			return fmt.Errorf("decode %s: %w", codec.name, err)
		}
	}
	s.ImportState(snapshot)
	return nil
}

const upsertState = `INSERT INTO state(bucket,payload) VALUES(?,?)
	ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, codec := range buckets {
		payload, err := codec.encode(snapshot)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode %s: %w", codec.name, err)
		}
		if _, err := tx.Exec(upsertState, codec.name, payload); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", codec.name, err)
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn within a transaction, then snapshots state to
// SQLite if successful. A failed snapshot write is returned to the caller
// with the in-memory commit left in place: the durability guarantee is voided
// until the next successful write, matching the documented failure mode.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, fmt.Errorf("persist snapshot: %w", pErr)
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
