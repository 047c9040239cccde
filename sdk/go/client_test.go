package tasklinesdk_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/catalog"
	"taskline/internal/config"
	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/events"
	"taskline/internal/migrate"
	"taskline/internal/server"
	tasklinesdk "taskline/sdk/go"
)

const secret = "sdk-secret"

func newAPI(t *testing.T) string {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))
	cfg := config.Default()
	cfg.Timezone = "UTC"
	e := engine.New(conn, cfg, catalog.Default())
	_, err = e.Repo.InsertUser(ctx, domain.Person{ID: 42, Name: "Amina Otieno"})
	require.NoError(t, err)
	_, err = e.Repo.InsertAdmin(ctx, domain.Person{ID: 1, Name: "Jane Admin"})
	require.NoError(t, err)
	handler, err := server.New(server.Config{
		Engine:   e,
		Recorder: events.Recorder{Sink: e.Repo},
		BasePath: "/v1",
		Auth:     server.AuthConfig{JWTSecret: secret},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func clientFor(t *testing.T, baseURL string, p domain.Principal) *tasklinesdk.Client {
	t.Helper()
	tok, err := server.SignToken(secret, p, time.Hour)
	require.NoError(t, err)
	c := tasklinesdk.New(baseURL)
	c.BearerToken = tok
	return c
}

func TestClientRoundTrip(t *testing.T) {
	baseURL := newAPI(t)
	ctx := context.Background()
	admin := clientFor(t, baseURL, domain.Principal{ID: 1, Role: domain.RoleAdmin})
	owner := clientFor(t, baseURL, domain.Principal{ID: 42, Role: domain.RoleUser})

	created, err := admin.CreateTask(ctx, tasklinesdk.NewTask{OwnerID: 42, Title: "Debt Management", Description: "Track debts", DueDate: "2099-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "medium", created.Priority)

	mine, err := owner.MyTasks(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	updated, err := owner.UpdateStatus(ctx, created.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", updated.Status)
	assert.Greater(t, updated.Version, created.Version)

	att, err := owner.Upload(ctx, created.ID, "ledger.txt", "text/plain", []byte("owed: 0"))
	require.NoError(t, err)
	data, mediaType, err := owner.Download(ctx, created.ID, att.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("owed: 0"), data)
	assert.Equal(t, "text/plain", mediaType)

	stats, err := admin.Statistics(ctx, tasklinesdk.Filters{OwnerID: 42})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.InProgress)

	require.NoError(t, owner.DeleteTask(ctx, created.ID))
	_, err = owner.GetTask(ctx, created.ID)
	var apiErr *tasklinesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestClientSurfacesForbidden(t *testing.T) {
	baseURL := newAPI(t)
	owner := clientFor(t, baseURL, domain.Principal{ID: 42, Role: domain.RoleUser})
	_, err := owner.ListTasks(context.Background(), tasklinesdk.Filters{})
	var apiErr *tasklinesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "forbidden", apiErr.Code)
}
