package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/metrics"
	"github.com/google/uuid"
)

// Recorder stamps events and hands them to a Sink. Sink failures are logged
// and swallowed: auditing never changes the outcome of the audited operation.
type Recorder struct {
	sink    Sink
	logger  logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecorder(sink Sink, logger logging.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		sink:    sink,
		logger:  logger.With("module", "audit"),
		metrics: m,
		now:     time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, userID, action, details string) {
	meta := RequestMetaFromContext(ctx)
	e := Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Severity:  SeverityOf(action),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: r.now().UTC(),
	}

	if e.Severity == SeveritySecurity {
		r.metrics.SecurityAlert(action)
	}

	if err := r.sink.Emit(ctx, e); err != nil {
		r.logger.Error(ctx, "audit emit failed", "action", action, "event_id", e.ID, "error", err)
	}
}

// Recordf is Record with a formatted details string.
func (r *Recorder) Recordf(ctx context.Context, userID, action, format string, args ...any) {
	r.Record(ctx, userID, action, fmt.Sprintf(format, args...))
}
