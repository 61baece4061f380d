// Package sqlstore implements storage.Store on a local SQLite file, for
// single-node deployments that need durability without PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS loan_requests (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	status TEXT NOT NULL,
	result TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store is a SQLite-backed request store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)
	s := New(db)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle. Call Init before use.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Init creates the table when missing.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Create inserts a processing record.
func (s *Store) Create(ctx context.Context, id, text string) (*model.RequestRecord, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO loan_requests (id, text, status, result, created_at, updated_at)
		VALUES (?, ?, ?, NULL, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		id, text, string(model.StatusProcessing), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	if n == 0 {
		return nil, storage.ErrDuplicateID
	}
	return &model.RequestRecord{
		ID:         id,
		Text:       text,
		Status:     model.StatusProcessing,
		Timestamp:  now,
		LastUpdate: now,
	}, nil
}

// Update writes result and status in one transaction.
func (s *Store) Update(ctx context.Context, id string, result *model.Decision, status model.RequestStatus) (*model.RequestRecord, error) {
	if err := storage.CheckResult(status, result); err != nil {
		return nil, err
	}
	var payload sql.NullString
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM loan_requests WHERE id = ?`, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select status: %w", err)
	}
	if err := storage.CheckTransition(model.RequestStatus(current), status); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE loan_requests SET status = ?, result = ?, updated_at = ? WHERE id = ?`,
		string(status), payload, formatTime(s.now()), id); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	rec, err := scanRecord(tx.QueryRowContext(ctx, selectByID, id))
	if err != nil {
		return nil, fmt.Errorf("reload request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (*model.RequestRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select request: %w", err)
	}
	return rec, nil
}

const selectByID = `SELECT id, text, status, result, created_at, updated_at FROM loan_requests WHERE id = ?`

func scanRecord(row *sql.Row) (*model.RequestRecord, error) {
	var (
		rec                  model.RequestRecord
		status               string
		result               sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Text, &status, &result, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.RequestStatus(status)
	var err error
	if rec.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.LastUpdate, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if result.Valid {
		var decision model.Decision
		if err := json.Unmarshal([]byte(result.String), &decision); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		rec.Result = &decision
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
