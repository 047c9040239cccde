package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/events"
	"taskline/internal/migrate"
	"taskline/internal/repo"
)

type failingSink struct{ calls int }

func (s *failingSink) InsertActivity(context.Context, domain.ActivityEntry) (int64, error) {
	s.calls++
	return 0, errors.New("disk full")
}

type panickingSink struct{}

func (panickingSink) InsertActivity(context.Context, domain.ActivityEntry) (int64, error) {
	panic("boom")
}

func TestRecordWritesEntry(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))
	r := repo.Repo{DB: conn}

	rec := events.Recorder{Sink: r, Now: func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }}
	p := domain.Principal{ID: 42, Role: domain.RoleUser}
	rec.Record(events.WithCorrelationID(ctx, "req-1"), p, "Uploaded file: report.pdf for task ID: 7", events.TaskEntity(7))
	rec.Record(ctx, p, "Deleted task ID: 8", events.TaskEntity(8))

	entries, err := r.LatestActivity(ctx, 10, 42)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Deleted task ID: 8", entries[0].Action)
	assert.NotEmpty(t, entries[0].CorrelationID)
	assert.Equal(t, "Uploaded file: report.pdf for task ID: 7", entries[1].Action)
	assert.Equal(t, "2025-03-01T09:30:00.000000Z", entries[1].TS)
	assert.Equal(t, "task", entries[1].EntityKind)
	assert.Equal(t, "7", entries[1].EntityID)
	assert.Equal(t, "req-1", entries[1].CorrelationID)
	assert.Equal(t, domain.RoleUser, entries[1].PrincipalRole)
}

func TestRecordSwallowsSinkFailures(t *testing.T) {
	sink := &failingSink{}
	rec := events.Recorder{Sink: sink}
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), domain.Principal{ID: 1, Role: domain.RoleAdmin}, "Deleted task ID: 1", events.TaskEntity(1))
	})
	assert.Equal(t, 1, sink.calls)

	rec = events.Recorder{Sink: panickingSink{}}
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), domain.Principal{ID: 1, Role: domain.RoleAdmin}, "Deleted task ID: 2", events.TaskEntity(2))
	})

	var nilRec events.Recorder
	assert.NotPanics(t, func() {
		nilRec.Record(context.Background(), domain.Principal{}, "noop", events.Entity{})
	})
}
