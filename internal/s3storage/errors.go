package s3storage

import "errors"

// ErrNotArchived is returned when no archive object exists for a request.
var ErrNotArchived = errors.New("record not archived")
