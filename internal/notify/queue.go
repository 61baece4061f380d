package notify

import (
	"context"

	"github.com/dharsanguruparan/LoanDesk/internal/queue"
)

// QueueNotifier hands notifications to the asynq worker.
type QueueNotifier struct {
	client queue.Enqueuer
}

func NewQueueNotifier(client queue.Enqueuer) *QueueNotifier {
	return &QueueNotifier{client: client}
}

func (n *QueueNotifier) Notify(ctx context.Context, requestID, message, recipient string) error {
	if recipient == "" {
		recipient = UnknownRecipient
	}
	return queue.EnqueueNotify(ctx, n.client, queue.NotifyPayload{
		RequestID: requestID,
		Recipient: recipient,
		Message:   message,
	})
}
