// Package repository implements storage.Store on PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

const uniqueViolation = "23505"

// RequestRepository wraps all SQL touching the loan_requests table.
type RequestRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ storage.Store = (*RequestRepository)(nil)

// NewRequestRepository constructs a repository.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{
		pool: pool,
		// Postgres keeps microseconds; truncating keeps returned values equal
		// to what a later read sees.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Create inserts a processing record.
func (r *RequestRepository) Create(ctx context.Context, id, text string) (*model.RequestRecord, error) {
	now := r.now()
	rec := &model.RequestRecord{
		ID:         id,
		Text:       text,
		Status:     model.StatusProcessing,
		Timestamp:  now,
		LastUpdate: now,
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO loan_requests (id, text, status, result, created_at, updated_at)
		VALUES ($1,$2,$3,NULL,$4,$5)
	`, rec.ID, rec.Text, string(rec.Status), rec.Timestamp, rec.LastUpdate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, storage.ErrDuplicateID
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return rec, nil
}

// Update writes result and status inside a transaction holding the row lock,
// so concurrent writers to the same id serialize instead of losing updates.
func (r *RequestRepository) Update(ctx context.Context, id string, result *model.Decision, status model.RequestStatus) (*model.RequestRecord, error) {
	if err := storage.CheckResult(status, result); err != nil {
		return nil, err
	}
	payload, err := encodeResult(result)
	if err != nil {
		return nil, err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM loan_requests WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	if err := storage.CheckTransition(model.RequestStatus(current), status); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE loan_requests
		SET status=$1, result=$2, updated_at=$3
		WHERE id=$4
		RETURNING id, text, status, result, created_at, updated_at
	`, string(status), payload, r.now(), id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

// Get returns the record for id.
func (r *RequestRepository) Get(ctx context.Context, id string) (*model.RequestRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, text, status, result, created_at, updated_at
		FROM loan_requests WHERE id=$1
	`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select request: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*model.RequestRecord, error) {
	var (
		rec    model.RequestRecord
		status string
		result []byte
	)
	if err := row.Scan(&rec.ID, &rec.Text, &status, &result, &rec.Timestamp, &rec.LastUpdate); err != nil {
		return nil, err
	}
	rec.Status = model.RequestStatus(status)
	decision, err := decodeResult(result)
	if err != nil {
		return nil, err
	}
	rec.Result = decision
	rec.Timestamp = rec.Timestamp.UTC()
	rec.LastUpdate = rec.LastUpdate.UTC()
	return &rec, nil
}

func encodeResult(result *model.Decision) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*model.Decision, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var decision model.Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &decision, nil
}
