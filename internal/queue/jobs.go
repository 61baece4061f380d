package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// NotifyTask is scheduled once per submission outcome.
	NotifyTask = "loan:notify"
)

// NotifyPayload is serialized into the task payload so the worker knows who to
// tell about which request.
type NotifyPayload struct {
	RequestID string `json:"request_id"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Enqueuer is the part of *asynq.Client the producers use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewNotifyTask encodes payload as a notification task.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(NotifyTask, data), nil
}

// EnqueueNotify enqueues a notification. Delivery is retried by the worker a
// few times, then dropped.
func EnqueueNotify(ctx context.Context, client Enqueuer, payload NotifyPayload) error {
	task, err := NewNotifyTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue notify task: %w", err)
	}
	return nil
}

// DecodeNotify reads the payload of a notification task.
func DecodeNotify(task *asynq.Task) (NotifyPayload, error) {
	var payload NotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotifyPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
