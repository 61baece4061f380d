// Package storage defines the request store contract and its in-memory
// implementation. Durable backends live in the repository and sqlstore
// packages and return the same sentinel errors.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("request not found")
	// ErrDuplicateID is returned by Create when the id is already taken.
	ErrDuplicateID = errors.New("request id already exists")
	// ErrInvalidTransition is returned when an update would move a record's
	// status backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMissingResult is returned when a terminal status is written without
	// a result.
	ErrMissingResult = errors.New("terminal status requires a result")
)

// Store persists request records. Implementations must never expose a
// partially written record and must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, id, text string) (*model.RequestRecord, error)
	Update(ctx context.Context, id string, result *model.Decision, status model.RequestStatus) (*model.RequestRecord, error)
	Get(ctx context.Context, id string) (*model.RequestRecord, error)
}

// CheckTransition validates moving from current to next.
func CheckTransition(current, next model.RequestStatus) error {
	if !current.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	return nil
}

// CheckResult rejects a terminal status paired with a nil result.
func CheckResult(status model.RequestStatus, result *model.Decision) error {
	if status.Terminal() && result == nil {
		return fmt.Errorf("%w: %s", ErrMissingResult, status)
	}
	return nil
}
