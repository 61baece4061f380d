package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/LoanDesk/internal/notify"
	"github.com/dharsanguruparan/LoanDesk/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	notifier notify.Notifier
}

// NewProcessor delivers queued notifications through notifier.
func NewProcessor(notifier notify.Notifier) *Processor {
	return &Processor{notifier: notifier}
}

// Handler registers the notification handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.NotifyTask, p.handleNotify)
	return mux
}

func (p *Processor) handleNotify(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeNotify(task)
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := p.notifier.Notify(ctx, payload.RequestID, payload.Message, payload.Recipient); err != nil {
		log.Printf("[worker] notify %s failed: %v", payload.RequestID, err)
		return err
	}
	log.Printf("[worker] notified %s for %s", payload.Recipient, payload.RequestID)
	return nil
}
