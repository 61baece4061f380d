// Package notify tells applicants about the outcome of their request.
// Delivery is best effort: the pipeline logs failures and moves on.
package notify

import (
	"context"
	"errors"
)

// UnknownRecipient is used when the applicant's address was never extracted.
const UnknownRecipient = "unknown"

// ErrDropped is returned when a notification could not even be queued.
var ErrDropped = errors.New("notification dropped")

// Notifier delivers one message about one request.
type Notifier interface {
	Notify(ctx context.Context, requestID, message, recipient string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, string) error { return nil }
