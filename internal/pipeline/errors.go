package pipeline

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/LoanDesk/internal/stages"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

// FailureKind tags why a submission or fetch failed.
type FailureKind string

const (
	KindValidation   FailureKind = "validation"
	KindCollaborator FailureKind = "collaborator"
	KindNotFound     FailureKind = "not_found"
	KindDuplicateID  FailureKind = "duplicate_id"
	KindStore        FailureKind = "store"
)

// StageStore names failures of the request store in Error.Stage.
const StageStore = "store"

// Error is a tagged pipeline failure. Its message is the cause only, which is
// what callers show to users.
type Error struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or "" if err is not a
// pipeline error.
func KindOf(err error) FailureKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}

func classify(stage string, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	kind := KindCollaborator
	switch {
	case errors.Is(err, stages.ErrValidation):
		kind = KindValidation
	case errors.Is(err, storage.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, storage.ErrDuplicateID):
		kind = KindDuplicateID
	case stage == StageStore:
		kind = KindStore
	case errors.Is(err, stages.ErrCollaborator),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = KindCollaborator
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// missingError keeps the user-facing wording while still matching
// storage.ErrNotFound.
type missingError struct{ id string }

func (e missingError) Error() string { return "No request found for " + e.id }

func (e missingError) Unwrap() error { return storage.ErrNotFound }

func notFound(id string) *Error {
	return &Error{Kind: KindNotFound, Stage: StageStore, Err: missingError{id: id}}
}
