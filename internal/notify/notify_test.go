package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/LoanDesk/internal/queue"
)

func TestLogNotifierAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notifications.log")
	n := NewLogNotifier(path)
	n.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	if err := n.Notify(ctx, "REQ_1", "Approved", "jane@example.com"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := n.Notify(ctx, "REQ_2", "Internal error: boom", ""); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"2024-05-01T10:00:00.000000Z | REQ_1 | to=jane@example.com | Approved",
		"2024-05-01T10:00:00.000000Z | REQ_2 | to=unknown | Internal error: boom",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestQueueNotifierEnqueuesPayload(t *testing.T) {
	client := &fakeEnqueuer{}
	if err := NewQueueNotifier(client).Notify(context.Background(), "REQ_9", "Rejected", "bob@example.com"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(client.tasks) != 1 || client.tasks[0].Type() != queue.NotifyTask {
		t.Fatalf("expected one %s task, got %v", queue.NotifyTask, client.tasks)
	}
	payload, err := queue.DecodeNotify(client.tasks[0])
	if err != nil {
		t.Fatalf("DecodeNotify: %v", err)
	}
	want := queue.NotifyPayload{RequestID: "REQ_9", Recipient: "bob@example.com", Message: "Rejected"}
	if payload != want {
		t.Fatalf("payload = %+v, want %+v", payload, want)
	}
}

func TestQueueNotifierSurfacesEnqueueError(t *testing.T) {
	client := &fakeEnqueuer{err: errors.New("redis down")}
	if err := NewQueueNotifier(client).Notify(context.Background(), "REQ_9", "Rejected", "x"); err == nil {
		t.Fatalf("expected enqueue error")
	}
}

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) Notify(_ context.Context, requestID, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, requestID)
	return nil
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(context.Background(), rec, 2, time.Second)
	for _, id := range []string{"a", "b", "c"} {
		if err := d.Notify(context.Background(), id, "Approved", "x@example.com"); err != nil {
			t.Fatalf("Notify(%s): %v", id, err)
		}
	}
	d.Close()
	if len(rec.ids) != 3 {
		t.Fatalf("expected 3 deliveries, got %v", rec.ids)
	}
}

func TestDispatcherReportsDrops(t *testing.T) {
	d := NewDispatcher(context.Background(), Nop{}, 1, time.Second)
	d.Close()
	if err := d.Notify(context.Background(), "late", "Approved", "x"); !errors.Is(err, ErrDropped) {
		t.Fatalf("expected ErrDropped, got %v", err)
	}
}
