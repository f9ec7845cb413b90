package testing

import (
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// NoticeCapture collects server notices for assertions.
// Thread-safe for concurrent use.
type NoticeCapture struct {
	mu       sync.Mutex
	messages []string
	severity []string
}

func NewNoticeCapture() *NoticeCapture {
	return &NoticeCapture{}
}

// Handler returns a callback for db.WithNoticeHandler.
func (nc *NoticeCapture) Handler() func(*pgconn.Notice) {
	return func(n *pgconn.Notice) {
		if n == nil {
			return
		}
		nc.mu.Lock()
		defer nc.mu.Unlock()
		nc.messages = append(nc.messages, n.Message)
		nc.severity = append(nc.severity, n.Severity)
	}
}

// Messages returns a copy of the captured notice messages in arrival order.
func (nc *NoticeCapture) Messages() []string {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return append([]string(nil), nc.messages...)
}

// Severities returns the severity of each captured notice.
func (nc *NoticeCapture) Severities() []string {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return append([]string(nil), nc.severity...)
}

func (nc *NoticeCapture) Count() int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return len(nc.messages)
}

func (nc *NoticeCapture) Reset() {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	nc.messages = nil
	nc.severity = nil
}
