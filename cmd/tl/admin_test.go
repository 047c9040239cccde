package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/app"
	"taskline/internal/domain"
	"taskline/internal/engine/auth"
	"taskline/internal/repo"
)

func seedKeys(t *testing.T, workspace string) {
	t.Helper()
	rt, err := app.Open(context.Background(), workspace, slog.Default())
	require.NoError(t, err)
	defer rt.Close()
	for _, k := range []domain.APIKey{
		{ID: "k-amina", PrincipalID: 42, Role: domain.RoleUser, Name: "laptop", KeyHash: repo.HashAPIKey("amina")},
		{ID: "k-brian", PrincipalID: 43, Role: domain.RoleUser, KeyHash: repo.HashAPIKey("brian")},
	} {
		require.NoError(t, rt.Engine.Repo.InsertAPIKey(context.Background(), k))
	}
}

func actAs(t *testing.T, workspace string, id int64, role string) {
	t.Helper()
	viper.Set("workspace", workspace)
	viper.Set("as-id", id)
	viper.Set("as-role", role)
	t.Cleanup(viper.Reset)
}

func TestListAPIKeys(t *testing.T) {
	workspace := t.TempDir()
	seedKeys(t, workspace)
	ctx := context.Background()
	rt, err := app.Open(ctx, workspace, slog.Default())
	require.NoError(t, err)
	defer rt.Close()

	admin := domain.Principal{ID: 1, Role: domain.RoleAdmin}
	all, err := listAPIKeys(ctx, rt, admin, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := listAPIKeys(ctx, rt, admin, 42)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "k-amina", mine[0].ID)
	assert.Equal(t, "laptop", mine[0].Name)

	_, err = listAPIKeys(ctx, rt, domain.Principal{ID: 42, Role: domain.RoleUser}, 42)
	var forbidden *auth.ForbiddenError
	assert.True(t, errors.As(err, &forbidden))
}

func TestAPIKeyRevokeCommand(t *testing.T) {
	workspace := t.TempDir()
	seedKeys(t, workspace)

	actAs(t, workspace, 42, domain.RoleUser)
	cmd := apikeyCmd()
	cmd.SetArgs([]string{"revoke", "k-amina"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))

	actAs(t, workspace, 1, domain.RoleAdmin)
	cmd = apikeyCmd()
	cmd.SetArgs([]string{"revoke", "k-amina"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	cmd = apikeyCmd()
	cmd.SetArgs([]string{"revoke", "k-amina"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	cmd = apikeyCmd()
	cmd.SetArgs([]string{"list", "--principal-id", "43"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	rt, err := app.Open(context.Background(), workspace, slog.Default())
	require.NoError(t, err)
	defer rt.Close()
	_, err = rt.Engine.Repo.GetAPIKeyByHash(context.Background(), repo.HashAPIKey("amina"))
	assert.True(t, errors.Is(err, repo.ErrNotFound))
	remaining, err := rt.Engine.Repo.ListAPIKeys(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "k-brian", remaining[0].ID)
}
