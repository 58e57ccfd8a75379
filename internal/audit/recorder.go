// Package audit records security relevant actions on a best-effort basis.
//
// A failing audit sink never changes the outcome of the operation being
// audited: write errors and panics are contained here and reported to the
// operator log only.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muhtaref/internal/model"
)

// Sink persists audit entries.
type Sink interface {
	Create(ctx context.Context, entry *model.AuditLog) error
}

// Entry describes one audited action.
type Entry struct {
	Action  string
	Level   model.LogLevel
	Message string
	// UserID is the account the action concerns.
	UserID *uuid.UUID
	// ActorID is the administrator who performed the action, if any.
	ActorID *uuid.UUID
}

// Recorder writes entries to a Sink inside its own failure boundary.
type Recorder struct {
	sink   Sink
	logger *zap.Logger
}

// NewRecorder creates a new recorder. A nil logger discards operator output.
func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger.Named("audit")}
}

// Record stores the entry. It never returns an error and never panics.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.sink == nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("audit sink panicked",
				zap.String("action", e.Action),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()

	entry := &model.AuditLog{
		Action:  e.Action,
		Level:   e.Level,
		Message: e.Message,
		UserID:  e.UserID,
		ActorID: e.ActorID,
	}
	if err := r.sink.Create(ctx, entry); err != nil {
		r.logger.Error("audit write failed",
			zap.String("action", e.Action),
			zap.String("level", string(e.Level)),
			zap.Error(err),
		)
	}
}

// Ref returns a pointer to id, for optional Entry fields.
func Ref(id uuid.UUID) *uuid.UUID {
	return &id
}
