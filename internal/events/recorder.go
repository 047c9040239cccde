// Package events records the activity log written after successful mutations.
package events

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"taskline/internal/domain"
)

// Sink persists activity entries. repo.Repo satisfies it.
type Sink interface {
	InsertActivity(ctx context.Context, e domain.ActivityEntry) (int64, error)
}

// Recorder writes activity entries on a best-effort basis: a failing sink is
// logged and never reported to the caller.
type Recorder struct {
	Sink   Sink
	Now    func() time.Time
	Logger *slog.Logger
}

type correlationKey struct{}

// WithCorrelationID attaches an id that Record copies onto entries.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id attached to ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Entity identifies what an action touched.
type Entity struct {
	Kind string
	ID   int64
}

func TaskEntity(id int64) Entity       { return Entity{Kind: "task", ID: id} }
func AttachmentEntity(id int64) Entity { return Entity{Kind: "attachment", ID: id} }

// Record logs action for p. It never fails.
func (r Recorder) Record(ctx context.Context, p domain.Principal, action string, entity Entity) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if r.Sink == nil {
		return
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	entry := domain.ActivityEntry{
		TS:            now().UTC().Format(domain.TimeLayout),
		PrincipalID:   p.ID,
		PrincipalRole: p.Role,
		Action:        action,
		EntityKind:    entity.Kind,
		CorrelationID: CorrelationID(ctx),
	}
	if entity.ID != 0 {
		entry.EntityID = strconv.FormatInt(entity.ID, 10)
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = uuid.NewString()
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("activity sink panicked", slog.Any("panic", rec), slog.String("action", action))
		}
	}()
	if _, err := r.Sink.InsertActivity(ctx, entry); err != nil {
		logger.Warn("activity not recorded", slog.String("action", action), slog.Int64("principal_id", p.ID), slog.Any("err", err))
	}
}
