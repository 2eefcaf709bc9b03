package audit

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/activities"
)

// RepositorySink writes events to the activity_logs table.
type RepositorySink struct {
	repo activities.Repository
}

func NewRepositorySink(repo activities.Repository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Emit(ctx context.Context, e Event) error {
	return s.repo.Append(ctx, &models.Activity{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		Details:   e.Details,
		Severity:  string(e.Severity),
		IPAddress: e.IP,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	})
}

// LogSink mirrors events into the structured log.
type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "audit")}
}

func (s *LogSink) Emit(ctx context.Context, e Event) error {
	args := []any{
		"event_id", e.ID, "action", e.Action, "user_id", e.UserID,
		"details", e.Details, "ip", e.IP,
	}
	if e.Severity == SeveritySecurity {
		s.logger.Warn(ctx, "security event", args...)
		return nil
	}
	s.logger.Info(ctx, "activity", args...)
	return nil
}

// MultiSink emits to every sink, even after one fails, and joins the errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
