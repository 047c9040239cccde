package engine_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/catalog"
	"taskline/internal/config"
	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/engine/auth"
	"taskline/internal/migrate"
)

const (
	ownerA  int64 = 42
	ownerB  int64 = 43
	adminID int64 = 1
)

var (
	admin = domain.Principal{ID: adminID, Role: domain.RoleAdmin}
	userA = domain.Principal{ID: ownerA, Role: domain.RoleUser}
	userB = domain.Principal{ID: ownerB, Role: domain.RoleUser}
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	clock  *time.Time
}

func (env testEnv) advance(d time.Duration) {
	*env.clock = env.clock.Add(d)
}

func (env testEnv) at(d time.Duration) string {
	return env.clock.Add(d).UTC().Format(time.RFC3339)
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))

	cfg := config.Default()
	cfg.Timezone = "UTC"
	eng := engine.New(conn, cfg, catalog.Default())
	clock := time.Date(2025, 2, 20, 8, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return clock }

	for _, u := range []domain.Person{
		{ID: ownerA, Name: "Amina Otieno", Email: "amina@example.org"},
		{ID: ownerB, Name: "Brian Kamau", Email: "brian@example.org"},
	} {
		u.CreatedAt = clock.Format(time.RFC3339)
		_, err := eng.Repo.InsertUser(ctx, u)
		require.NoError(t, err)
	}
	_, err = eng.Repo.InsertAdmin(ctx, domain.Person{ID: adminID, Name: "Jane Admin", CreatedAt: clock.Format(time.RFC3339)})
	require.NoError(t, err)
	return testEnv{Engine: eng, Ctx: ctx, clock: &clock}
}

func (env testEnv) create(t *testing.T, opts engine.TaskCreateOptions) domain.Task {
	t.Helper()
	if opts.OwnerID == 0 {
		opts.OwnerID = ownerA
	}
	if opts.Title == "" {
		opts.Title = "Quarterly report"
	}
	if opts.Description == "" {
		opts.Description = "Prepare the quarterly report"
	}
	if opts.DueDate == "" {
		opts.DueDate = env.at(7 * 24 * time.Hour)
	}
	id, err := env.Engine.CreateTask(env.Ctx, opts)
	require.NoError(t, err)
	task, err := env.Engine.GetTask(env.Ctx, id)
	require.NoError(t, err)
	return task
}

func ids(tasks []domain.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *engine.ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	assert.Equal(t, field, ve.Field)
}

func requireNotFound(t *testing.T, err error, entity string) {
	t.Helper()
	var nf *engine.NotFoundError
	require.True(t, errors.As(err, &nf), "expected not found, got %v", err)
	assert.Equal(t, entity, nf.Entity)
}

func requireDenied(t *testing.T, err error) {
	t.Helper()
	var denied *engine.AccessDeniedError
	require.True(t, errors.As(err, &denied), "expected access denied, got %v", err)
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{Title: "  Budget review  "})

	assert.Equal(t, "Budget review", task.Title)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, "2025-02-20T08:00:00.000000Z", task.CreatedAt)
	assert.Equal(t, 1, task.Version)
	assert.Equal(t, "Amina Otieno", task.OwnerName)
	assert.Equal(t, "amina@example.org", task.OwnerEmail)
	assert.False(t, task.Overdue)
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	base := engine.TaskCreateOptions{OwnerID: ownerA, Title: "t", Description: "d", DueDate: "2025-03-01"}

	opts := base
	opts.OwnerID = 0
	_, err := env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "owner_id")

	opts = base
	opts.Title = "   "
	_, err = env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "title")

	opts = base
	opts.Description = ""
	_, err = env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "description")

	opts = base
	opts.DueDate = ""
	_, err = env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "due_date")

	opts = base
	opts.DueDate = "next tuesday"
	_, err = env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "due_date")

	opts = base
	opts.Priority = "urgent"
	_, err = env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "priority")

	opts = base
	opts.OwnerID = 999
	_, err = env.Engine.CreateTask(env.Ctx, opts)
	requireValidation(t, err, "owner_id")

	all, err := env.Engine.ListAll(env.Ctx, engine.ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAssignPredefinedTaskUsesCatalog(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.Engine.AssignPredefinedTask(env.Ctx, engine.PredefinedAssignment{
		Category: "Financial Stewardship and Discipline",
		Title:    "Revenue",
		OwnerID:  ownerA,
		AdminID:  adminID,
		DueDate:  "2025-03-01",
	})
	require.NoError(t, err)
	task, err := env.Engine.GetTask(env.Ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "Monitor and optimize revenue generation activities.", task.Description)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, "2025-03-01T00:00:00.000000Z", task.DueDate)
	assert.Equal(t, "Jane Admin", task.AssignedByName)
	require.NotNil(t, task.AssignedByID)
	assert.Equal(t, adminID, *task.AssignedByID)
}

func TestAssignPredefinedTaskFallsBack(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.Engine.AssignPredefinedTask(env.Ctx, engine.PredefinedAssignment{
		Category: "Unknown Category",
		Title:    "Custom Task",
		OwnerID:  ownerA,
		AdminID:  77,
		DueDate:  "2025-03-01 17:00:00",
		Priority: domain.PriorityHigh,
	})
	require.NoError(t, err)
	task, err := env.Engine.GetTask(env.Ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "Custom Task", task.Description)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, "2025-03-01T17:00:00.000000Z", task.DueDate)
	// unknown admin: generic label and no dangling reference
	assert.Equal(t, "Admin", task.AssignedByName)
	assert.Nil(t, task.AssignedByID)
}

func TestUpdateStatusCompletedAt(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{})

	_, err := env.Engine.UpdateStatus(env.Ctx, task.ID, "overdue", userA)
	requireValidation(t, err, "status")
	_, err = env.Engine.UpdateStatus(env.Ctx, task.ID, "done", admin)
	requireValidation(t, err, "status")
	unchanged, err := env.Engine.GetTask(env.Ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, unchanged)

	env.advance(time.Hour)
	done, err := env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusCompleted, userA)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "2025-02-20T09:00:00.000000Z", *done.CompletedAt)
	assert.GreaterOrEqual(t, *done.CompletedAt, done.CreatedAt)
	assert.Equal(t, 2, done.Version)

	env.advance(time.Minute)
	again, err := env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusCompleted, userA)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, again.Status)
	require.NotNil(t, again.CompletedAt)
	assert.Equal(t, "2025-02-20T09:01:00.000000Z", *again.CompletedAt)

	env.advance(time.Minute)
	reopened, err := env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusPending, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, reopened.Status)
	require.NotNil(t, reopened.CompletedAt)
	assert.Equal(t, "2025-02-20T09:01:00.000000Z", *reopened.CompletedAt)
	assert.Equal(t, 4, reopened.Version)
}

func TestCompletedAtAdvancesWithinOneSecond(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{})

	env.advance(200 * time.Millisecond)
	first, err := env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusCompleted, userA)
	require.NoError(t, err)
	env.advance(300 * time.Millisecond)
	second, err := env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusCompleted, userA)
	require.NoError(t, err)

	require.NotNil(t, first.CompletedAt)
	require.NotNil(t, second.CompletedAt)
	assert.Equal(t, "2025-02-20T08:00:00.200000Z", *first.CompletedAt)
	assert.Equal(t, "2025-02-20T08:00:00.500000Z", *second.CompletedAt)
	assert.Greater(t, *second.CompletedAt, *first.CompletedAt)
	assert.Greater(t, *first.CompletedAt, first.CreatedAt)
}

func TestOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{OwnerID: ownerA})
	attID, err := env.Engine.UploadAttachment(env.Ctx, task.ID, engine.FileMeta{Name: "a.txt", MediaType: "text/plain"}, []byte("hello"), userA)
	require.NoError(t, err)

	_, err = env.Engine.AuthorizedTask(env.Ctx, userB, task.ID, auth.OpRead)
	requireDenied(t, err)
	_, err = env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusInProgress, userB)
	requireDenied(t, err)
	_, err = env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"title": "mine now"}, userB)
	requireDenied(t, err)
	_, err = env.Engine.UploadAttachment(env.Ctx, task.ID, engine.FileMeta{Name: "b.txt"}, []byte("x"), userB)
	requireDenied(t, err)
	_, err = env.Engine.ListAttachments(env.Ctx, task.ID, userB)
	requireDenied(t, err)
	_, err = env.Engine.DownloadAttachment(env.Ctx, attID, task.ID, userB)
	requireDenied(t, err)
	err = env.Engine.DeleteAttachment(env.Ctx, attID, task.ID, userB)
	requireDenied(t, err)
	err = env.Engine.DeleteTask(env.Ctx, task.ID, userB)
	requireDenied(t, err)

	// denial and absence read the same
	_, missingErr := env.Engine.AuthorizedTask(env.Ctx, userB, 9999, auth.OpRead)
	requireNotFound(t, missingErr, "task")
	assert.Equal(t, missingErr.Error(), err.Error())

	stored, err := env.Engine.GetTask(env.Ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, stored.Title)
	assert.Equal(t, domain.StatusPending, stored.Status)

	_, err = env.Engine.AuthorizedTask(env.Ctx, admin, task.ID, auth.OpRead)
	require.NoError(t, err)
	_, err = env.Engine.UpdateStatus(env.Ctx, task.ID, domain.StatusInProgress, admin)
	require.NoError(t, err)
	_, err = env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"title": "Renamed"}, admin)
	require.NoError(t, err)
	_, err = env.Engine.ListAttachments(env.Ctx, task.ID, admin)
	require.NoError(t, err)
	_, err = env.Engine.DownloadAttachment(env.Ctx, attID, task.ID, admin)
	require.NoError(t, err)
	require.NoError(t, env.Engine.DeleteAttachment(env.Ctx, attID, task.ID, admin))
	require.NoError(t, env.Engine.DeleteTask(env.Ctx, task.ID, admin))
}

func TestUpdateFields(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{})

	_, err := env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"owner_id": float64(ownerB), "status": "completed"}, userA)
	var ve *engine.ValidationError
	require.True(t, errors.As(err, &ve))
	stored, err := env.Engine.GetTask(env.Ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)

	updated, err := env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{
		"title":        "Revised title",
		"priority":     "high",
		"due_date":     "2025-04-15",
		"instructions": "Attach receipts",
		"owner_id":     float64(ownerB),
		"status":       "completed",
	}, userA)
	require.NoError(t, err)
	assert.Equal(t, "Revised title", updated.Title)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
	assert.Equal(t, "2025-04-15T00:00:00.000000Z", updated.DueDate)
	assert.Equal(t, "Attach receipts", updated.Instructions)
	assert.Equal(t, ownerA, updated.OwnerID)
	assert.Equal(t, domain.StatusPending, updated.Status)
	assert.Equal(t, task.Description, updated.Description)
	assert.Equal(t, 2, updated.Version)

	_, err = env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"priority": "critical"}, userA)
	requireValidation(t, err, "priority")
	_, err = env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"title": ""}, userA)
	requireValidation(t, err, "title")
	_, err = env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"title": 12}, userA)
	requireValidation(t, err, "title")

	cleared, err := env.Engine.UpdateFields(env.Ctx, task.ID, map[string]any{"instructions": nil}, userA)
	require.NoError(t, err)
	assert.Empty(t, cleared.Instructions)
}

func TestOverdueAndDueSoon(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	overdue := env.create(t, engine.TaskCreateOptions{Title: "late", DueDate: env.at(-day)})
	lateDone := env.create(t, engine.TaskCreateOptions{Title: "late but done", DueDate: env.at(-2 * day)})
	lateWorking := env.create(t, engine.TaskCreateOptions{Title: "late in progress", DueDate: env.at(-day)})
	soon := env.create(t, engine.TaskCreateOptions{Title: "soon", DueDate: env.at(2 * day)})
	edge := env.create(t, engine.TaskCreateOptions{Title: "edge", DueDate: env.at(3 * day)})
	env.create(t, engine.TaskCreateOptions{Title: "later", DueDate: env.at(4 * day)})
	otherOwner := env.create(t, engine.TaskCreateOptions{OwnerID: ownerB, Title: "b late", DueDate: env.at(-3 * day)})

	_, err := env.Engine.UpdateStatus(env.Ctx, lateDone.ID, domain.StatusCompleted, admin)
	require.NoError(t, err)
	_, err = env.Engine.UpdateStatus(env.Ctx, lateWorking.ID, domain.StatusInProgress, admin)
	require.NoError(t, err)

	got, err := env.Engine.GetOverdue(env.Ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []int64{overdue.ID}, ids(got))
	assert.True(t, got[0].Overdue)

	got, err = env.Engine.GetOverdue(env.Ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{otherOwner.ID, overdue.ID}, ids(got))

	got, err = env.Engine.GetDueSoon(env.Ctx, 3, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []int64{soon.ID, edge.ID}, ids(got))

	_, err = env.Engine.GetDueSoon(env.Ctx, -1, ownerA)
	requireValidation(t, err, "days")
}

func TestListForOwnerOrdering(t *testing.T) {
	env := newTestEnv(t)
	due := env.at(48 * time.Hour)
	low := env.create(t, engine.TaskCreateOptions{Title: "low", Priority: "low", DueDate: due})
	high := env.create(t, engine.TaskCreateOptions{Title: "high", Priority: "high", DueDate: due})
	medium := env.create(t, engine.TaskCreateOptions{Title: "medium", DueDate: due})
	early := env.create(t, engine.TaskCreateOptions{Title: "early", Priority: "low", DueDate: env.at(24 * time.Hour)})
	env.create(t, engine.TaskCreateOptions{OwnerID: ownerB, Title: "not mine", DueDate: due})

	got, err := env.Engine.ListForOwner(env.Ctx, ownerA, engine.OwnerFilters{})
	require.NoError(t, err)
	assert.Equal(t, []int64{early.ID, high.ID, medium.ID, low.ID}, ids(got))

	_, err = env.Engine.UpdateStatus(env.Ctx, medium.ID, domain.StatusCompleted, userA)
	require.NoError(t, err)
	_, err = env.Engine.UpdateStatus(env.Ctx, early.ID, domain.StatusCompleted, userA)
	require.NoError(t, err)
	got, err = env.Engine.ListForOwner(env.Ctx, ownerA, engine.OwnerFilters{Status: domain.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []int64{early.ID, medium.ID}, ids(got))
	for _, task := range got {
		assert.Equal(t, domain.StatusCompleted, task.Status)
	}

	got, err = env.Engine.ListForOwner(env.Ctx, ownerA, engine.OwnerFilters{Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, []int64{high.ID}, ids(got))

	_, err = env.Engine.ListForOwner(env.Ctx, ownerA, engine.OwnerFilters{Status: "archived"})
	requireValidation(t, err, "status")
}

func TestListAllCalendarDays(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	first := env.create(t, engine.TaskCreateOptions{Title: "feb 20"})
	env.advance(day + 15*time.Hour) // 2025-02-21 23:00
	second := env.create(t, engine.TaskCreateOptions{Title: "feb 21", OwnerID: ownerB})
	env.advance(2 * time.Hour) // 2025-02-22 01:00
	third := env.create(t, engine.TaskCreateOptions{Title: "feb 22", Priority: "high"})

	got, err := env.Engine.ListAll(env.Ctx, engine.ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, ids(got))

	got, err = env.Engine.ListAll(env.Ctx, engine.ListFilters{DateFrom: "2025-02-21", DateTo: "2025-02-21"})
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID}, ids(got))

	got, err = env.Engine.ListAll(env.Ctx, engine.ListFilters{DateFrom: "2025-02-21"})
	require.NoError(t, err)
	assert.Equal(t, []int64{third.ID, second.ID}, ids(got))

	got, err = env.Engine.ListAll(env.Ctx, engine.ListFilters{DateTo: "2025-02-21", OwnerID: ownerA})
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, ids(got))

	got, err = env.Engine.ListAll(env.Ctx, engine.ListFilters{Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, []int64{third.ID}, ids(got))

	_, err = env.Engine.ListAll(env.Ctx, engine.ListFilters{DateFrom: "21/02/2025"})
	requireValidation(t, err, "date_from")
}

func TestComputeStatistics(t *testing.T) {
	env := newTestEnv(t)
	stats, err := env.Engine.ComputeStatistics(env.Ctx, engine.StatsFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.Statistics{}, stats)

	done := env.create(t, engine.TaskCreateOptions{Priority: "high"})
	env.create(t, engine.TaskCreateOptions{DueDate: env.at(-time.Hour)})
	working := env.create(t, engine.TaskCreateOptions{Priority: "low"})
	env.create(t, engine.TaskCreateOptions{OwnerID: ownerB})
	_, err = env.Engine.UpdateStatus(env.Ctx, done.ID, domain.StatusCompleted, admin)
	require.NoError(t, err)
	_, err = env.Engine.UpdateStatus(env.Ctx, working.ID, domain.StatusInProgress, admin)
	require.NoError(t, err)

	stats, err = env.Engine.ComputeStatistics(env.Ctx, engine.StatsFilters{OwnerID: ownerA})
	require.NoError(t, err)
	assert.Equal(t, domain.Statistics{
		Total:          3,
		Pending:        1,
		InProgress:     1,
		Completed:      1,
		Overdue:        1,
		HighPriority:   1,
		MediumPriority: 1,
		LowPriority:    1,
		CompletionRate: 33.33,
	}, stats)

	stats, err = env.Engine.ComputeStatistics(env.Ctx, engine.StatsFilters{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 25.0, stats.CompletionRate)

	stats, err = env.Engine.ComputeStatistics(env.Ctx, engine.StatsFilters{DateFrom: "2025-02-21"})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.CompletionRate)
}

func TestDeleteTaskRemovesAttachments(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{})
	for _, name := range []string{"one.pdf", "two.pdf"} {
		_, err := env.Engine.UploadAttachment(env.Ctx, task.ID, engine.FileMeta{Name: name, MediaType: "application/pdf"}, []byte(name), userA)
		require.NoError(t, err)
	}
	require.NoError(t, env.Engine.DeleteTask(env.Ctx, task.ID, userA))

	_, err := env.Engine.ListAttachments(env.Ctx, task.ID, admin)
	requireNotFound(t, err, "task")

	var remaining int
	require.NoError(t, env.Engine.DB.QueryRowContext(env.Ctx, `SELECT COUNT(*) FROM task_attachments WHERE task_id=?`, task.ID).Scan(&remaining))
	assert.Zero(t, remaining)

	err = env.Engine.DeleteTask(env.Ctx, task.ID, admin)
	requireNotFound(t, err, "task")
}

func TestAttachmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	task := env.create(t, engine.TaskCreateOptions{})
	other := env.create(t, engine.TaskCreateOptions{})

	payload := []byte("%PDF-1.4 quarterly figures")
	firstID, err := env.Engine.UploadAttachment(env.Ctx, task.ID, engine.FileMeta{Name: "figures.pdf", MediaType: "application/pdf", Size: int64(len(payload))}, payload, userA)
	require.NoError(t, err)
	env.advance(time.Minute)
	secondID, err := env.Engine.UploadAttachment(env.Ctx, task.ID, engine.FileMeta{Name: "notes.bin"}, []byte{0x00, 0x01}, userA)
	require.NoError(t, err)

	items, err := env.Engine.ListAttachments(env.Ctx, task.ID, userA)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, secondID, items[0].ID)
	assert.Equal(t, firstID, items[1].ID)
	assert.Nil(t, items[0].Data)
	assert.Equal(t, "application/octet-stream", items[0].MediaType)
	assert.Equal(t, int64(2), items[0].SizeBytes)

	got, err := env.Engine.DownloadAttachment(env.Ctx, firstID, task.ID, userA)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Data)
	sum := sha256.Sum256(payload)
	assert.Equal(t, hex.EncodeToString(sum[:]), got.SHA256)
	assert.Equal(t, "figures.pdf", got.FileName)

	_, err = env.Engine.DownloadAttachment(env.Ctx, firstID, other.ID, userA)
	requireNotFound(t, err, "attachment")
	err = env.Engine.DeleteAttachment(env.Ctx, firstID, other.ID, userA)
	requireNotFound(t, err, "attachment")

	require.NoError(t, env.Engine.DeleteAttachment(env.Ctx, firstID, task.ID, userA))
	err = env.Engine.DeleteAttachment(env.Ctx, firstID, task.ID, userA)
	requireNotFound(t, err, "attachment")
}

func TestRecentAssignments(t *testing.T) {
	env := newTestEnv(t)
	var created []int64
	for i := 0; i < 4; i++ {
		created = append(created, env.create(t, engine.TaskCreateOptions{}).ID)
		env.advance(time.Minute)
	}
	got, err := env.Engine.GetRecentAssignments(env.Ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{created[3], created[2]}, ids(got))

	got, err = env.Engine.GetRecentAssignments(env.Ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
