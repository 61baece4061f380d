// Package model contains the struct definitions shared by the pipeline, the
// stores and the HTTP layer.
package model

import (
	"time"
)

// RequestStatus describes the lifecycle of a submitted application. A named
// string type keeps the statuses from mixing with arbitrary strings.
type RequestStatus string

const (
	StatusProcessing RequestStatus = "processing"
	StatusDone       RequestStatus = "done"
	StatusError      RequestStatus = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}

// CanTransition reports whether a record in status s may move to next.
// Statuses only move forward: processing -> done|error, and an error record
// may still be completed by a later error write but never regress.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	if !next.Valid() || next == StatusProcessing {
		return false
	}
	switch s {
	case StatusProcessing:
		return true
	case StatusError:
		return next == StatusError
	default:
		return false
	}
}

// RequestRecord is the persisted lifecycle entry for one application.
type RequestRecord struct {
	ID         string        `json:"request_id"`
	Text       string        `json:"text"`
	Status     RequestStatus `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	LastUpdate time.Time     `json:"last_update"`
	// Result stays nil while the record is processing.
	Result *Decision `json:"result"`
}

// Clone returns a deep copy so callers cannot mutate store internals.
func (r *RequestRecord) Clone() *RequestRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Result = r.Result.Clone()
	return &out
}
