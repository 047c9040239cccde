package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/migrate"
	"taskline/internal/repo"
)

func newRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))
	r := repo.Repo{DB: conn}
	_, err = r.InsertUser(ctx, domain.Person{ID: 42, Name: "Amina Otieno", Email: "amina@example.org"})
	require.NoError(t, err)
	return r, ctx
}

func insert(t *testing.T, r repo.Repo, ctx context.Context, title, priority, due, created string) int64 {
	t.Helper()
	id, err := r.InsertTask(ctx, nil, domain.Task{
		OwnerID: 42, Title: title, Description: title, Priority: priority,
		Status: domain.StatusPending, DueDate: due, CreatedAt: created,
	})
	require.NoError(t, err)
	return id
}

func titles(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestListTasksOrdering(t *testing.T) {
	r, ctx := newRepo(t)
	insert(t, r, ctx, "low-same-day", domain.PriorityLow, "2025-03-01T00:00:00Z", "2025-02-01T00:00:00Z")
	insert(t, r, ctx, "high-same-day", domain.PriorityHigh, "2025-03-01T00:00:00Z", "2025-02-03T00:00:00Z")
	insert(t, r, ctx, "earliest", domain.PriorityMedium, "2025-02-25T00:00:00Z", "2025-02-02T00:00:00Z")

	byDue, err := r.ListTasks(ctx, repo.TaskFilters{OwnerID: 42, Order: repo.OrderByDueDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"earliest", "high-same-day", "low-same-day"}, titles(byDue))
	assert.Equal(t, "Amina Otieno", byDue[0].OwnerName)

	newest, err := r.ListTasks(ctx, repo.TaskFilters{Order: repo.OrderByCreatedDesc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"high-same-day", "earliest"}, titles(newest))

	none, err := r.ListTasks(ctx, repo.TaskFilters{OwnerID: 99})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdatesBumpVersion(t *testing.T) {
	r, ctx := newRepo(t)
	id := insert(t, r, ctx, "Audit", domain.PriorityLow, "2025-03-01T00:00:00Z", "2025-02-01T00:00:00Z")

	done := "2025-02-10T09:00:00Z"
	require.NoError(t, r.UpdateTaskStatus(ctx, nil, id, domain.StatusCompleted, &done))
	title := "Audit FY25"
	require.NoError(t, r.UpdateTaskFields(ctx, nil, id, repo.TaskPatch{Title: &title}))

	got, err := r.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, title, got.Title)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, done, *got.CompletedAt)

	err = r.UpdateTaskStatus(ctx, nil, 999, domain.StatusPending, nil)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestDeleteTaskRemovesAttachments(t *testing.T) {
	r, ctx := newRepo(t)
	id := insert(t, r, ctx, "Bills", domain.PriorityLow, "2025-03-01T00:00:00Z", "2025-02-01T00:00:00Z")
	for _, name := range []string{"a.pdf", "b.pdf"} {
		_, err := r.InsertAttachment(ctx, nil, domain.Attachment{TaskID: id, FileName: name, MediaType: "application/pdf", SizeBytes: 1, SHA256: "x", Data: []byte("x"), UploadedAt: "2025-02-02T00:00:00Z"})
		require.NoError(t, err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	removed, err := r.DeleteTaskTx(ctx, tx, id)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(2), removed)

	items, err := r.ListAttachments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = r.GetTask(ctx, id)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestAPIKeys(t *testing.T) {
	r, ctx := newRepo(t)
	require.NoError(t, r.InsertAPIKey(ctx, domain.APIKey{ID: "k1", PrincipalID: 42, Role: domain.RoleUser, KeyHash: repo.HashAPIKey("secret")}))
	assert.Error(t, r.InsertAPIKey(ctx, domain.APIKey{ID: "k2", PrincipalID: 42, Role: "root", KeyHash: "h"}))

	key, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(" secret "))
	require.NoError(t, err)
	assert.Equal(t, int64(42), key.PrincipalID)

	require.NoError(t, r.DeleteAPIKey(ctx, "k1"))
	_, err = r.GetAPIKeyByHash(ctx, repo.HashAPIKey("secret"))
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestCountTasks(t *testing.T) {
	r, ctx := newRepo(t)
	insert(t, r, ctx, "late", domain.PriorityHigh, "2025-02-01T00:00:00Z", "2025-01-01T00:00:00Z")
	insert(t, r, ctx, "future", domain.PriorityLow, "2025-04-01T00:00:00Z", "2025-01-02T00:00:00Z")

	c, err := r.CountTasks(ctx, repo.TaskFilters{OwnerID: 42}, "2025-03-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Total)
	assert.Equal(t, 2, c.Pending)
	assert.Equal(t, 1, c.Overdue)
	assert.Equal(t, 1, c.High)
	assert.Equal(t, 1, c.Low)

	c, err = r.CountTasks(ctx, repo.TaskFilters{CreatedFrom: "2025-01-02T00:00:00Z"}, "2025-03-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 0, c.Overdue)
}
