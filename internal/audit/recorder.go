package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"fieldreport/pkg/types"

	"github.com/sirupsen/logrus"
)

// Appender persists audit entries.
type Appender interface {
	Append(ctx context.Context, entry *types.AuditLog) error
}

// Recorder appends audit entries off the request path. A failed append is
// logged and swallowed: audit faults must never break the operation that
// triggered them.
type Recorder struct {
	store   Appender
	logger  *logrus.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func NewRecorder(store Appender, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Record dispatches the entry asynchronously and returns immediately. The
// action is normalized to upper case; role and origin fall back to their
// defaults when empty.
func (r *Recorder) Record(entry types.AuditLog) {
	entry.Action = strings.ToUpper(strings.TrimSpace(entry.Action))
	if entry.Role == "" {
		entry.Role = types.AuditRoleUser
	}
	if entry.IP == "" {
		entry.IP = "Unknown"
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.store.Append(ctx, &entry); err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"action": entry.Action,
				"user":   entry.User,
			}).Warn("failed to append audit entry")
		}
	}()
}

// Flush blocks until all dispatched entries have been attempted. Used on
// shutdown and in tests.
func (r *Recorder) Flush() {
	r.wg.Wait()
}
