// Package audit appends one structured line per request to the audit sink.
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultPath is used when AUDIT_LOG_PATH is not set.
const DefaultPath = "audit.log"

// Logger writes append-only audit lines of the form
//
//	2026-02-15 10:04:05 | tools/call | user=- | id=3 request_id=...
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func New(path string) *Logger {
	if path == "" {
		path = DefaultPath
	}
	return &Logger{path: path, now: time.Now}
}

// Log appends one audit line. An empty user records as "-".
func (l *Logger) Log(event, user, detail string) error {
	if user == "" {
		user = "-"
	}
	line := fmt.Sprintf("%s | %s | user=%s | %s\n",
		l.now().Format("2006-01-02 15:04:05"), event, user, detail)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line)
	return err
}
