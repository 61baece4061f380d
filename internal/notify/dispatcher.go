package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dharsanguruparan/LoanDesk/internal/processing"
)

// Dispatcher delivers through another Notifier on a background pool, so a slow
// log file or Redis never holds up a submission.
type Dispatcher struct {
	next    Notifier
	pool    *processing.Processor
	timeout time.Duration
}

// NewDispatcher starts workers goroutines that call next. Each delivery gets
// its own timeout, detached from the caller's context.
func NewDispatcher(ctx context.Context, next Notifier, workers int, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pool := processing.New(workers)
	pool.Start(ctx)
	return &Dispatcher{next: next, pool: pool, timeout: timeout}
}

// Notify queues the delivery and returns immediately.
func (d *Dispatcher) Notify(_ context.Context, requestID, message, recipient string) error {
	ok := d.pool.Submit(processing.Job{
		Name: "notify " + requestID,
		Run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			return d.next.Notify(ctx, requestID, message, recipient)
		},
	})
	if !ok {
		return fmt.Errorf("%w: %s", ErrDropped, requestID)
	}
	return nil
}

// Close waits for queued deliveries.
func (d *Dispatcher) Close() {
	d.pool.Close()
}
