package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ruteri/reputation-registry/interfaces"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - records table keyed by slot
const currentSchemaVersion = 1

// SQLiteStore persists records in a SQLite database. Every Commit runs in a
// single transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenSQLiteStore creates or opens a SQLite database at path and applies the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// A nil log uses slog.Default.
func OpenSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, log: log}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Load returns the record at key.
func (s *SQLiteStore) Load(ctx context.Context, key interfaces.RecordKey) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE slot = ?`,
		key.Slot().String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return data, nil
}

// List returns all records of a namespace ordered by slot.
func (s *SQLiteStore) List(ctx context.Context, namespace interfaces.Namespace) ([]interfaces.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_key, data FROM records WHERE namespace = ? ORDER BY slot ASC`,
		string(namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	defer rows.Close()

	var result []interfaces.StoredRecord
	for rows.Next() {
		var keyHex string
		var data []byte
		if err := rows.Scan(&keyHex, &data); err != nil {
			return nil, fmt.Errorf("list %s: %w", namespace, err)
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("list %s: corrupt key %q: %w", namespace, keyHex, err)
		}
		result = append(result, interfaces.StoredRecord{
			Key:  interfaces.RecordKey{Namespace: namespace, Key: key},
			Data: data,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	return result, nil
}

// Commit applies writes in one transaction. A CreateOnly write on an
// occupied slot rolls back the whole batch with ErrSlotOccupied.
func (s *SQLiteStore) Commit(ctx context.Context, writes []interfaces.RecordWrite) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error("Failed to roll back commit", "err", rbErr)
			}
		}
	}()

	for _, w := range writes {
		slot := w.Key.Slot().String()
		keyHex := hex.EncodeToString(w.Key.Key)

		switch w.Mode {
		case interfaces.CreateOnly:
			res, execErr := tx.ExecContext(ctx, `
				INSERT INTO records (slot, namespace, record_key, data)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(slot) DO NOTHING
			`, slot, string(w.Key.Namespace), keyHex, w.Data)
			if execErr != nil {
				return fmt.Errorf("create %s: %w", w.Key, execErr)
			}
			n, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("create %s: %w", w.Key, raErr)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", interfaces.ErrSlotOccupied, w.Key)
			}
		default:
			_, execErr := tx.ExecContext(ctx, `
				INSERT INTO records (slot, namespace, record_key, data)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(slot) DO UPDATE SET data = excluded.data, version = records.version + 1
			`, slot, string(w.Key.Namespace), keyHex, w.Data)
			if execErr != nil {
				return fmt.Errorf("write %s: %w", w.Key, execErr)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.log.Debug("Committed records to sqlite",
		slog.String("path", s.path),
		slog.Int("writes", len(writes)))
	return nil
}

// Name returns a unique identifier for this store.
func (s *SQLiteStore) Name() string {
	return fmt.Sprintf("sqlite-%s", s.path)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
