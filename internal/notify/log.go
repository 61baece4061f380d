package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogNotifier appends one line per notification to a file:
//
//	2024-05-01T10:00:00.000000Z | REQ_... | to=jane@example.com | Approved
type LogNotifier struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewLogNotifier writes to path, creating parent directories on first use.
func NewLogNotifier(path string) *LogNotifier {
	return &LogNotifier{path: path, now: time.Now}
}

func (n *LogNotifier) Notify(ctx context.Context, requestID, message, recipient string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if recipient == "" {
		recipient = UnknownRecipient
	}
	line := fmt.Sprintf("%s | %s | to=%s | %s\n",
		n.now().UTC().Format("2006-01-02T15:04:05.000000Z"), requestID, recipient, message)

	n.mu.Lock()
	defer n.mu.Unlock()
	if dir := filepath.Dir(n.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create notification dir: %w", err)
		}
	}
	f, err := os.OpenFile(n.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notification log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("write notification: %w", err)
	}
	return f.Close()
}
