// Package app wires a workspace into a ready engine: config, catalog,
// database, migrations and the activity recorder.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"taskline/internal/catalog"
	"taskline/internal/config"
	"taskline/internal/db"
	"taskline/internal/engine"
	"taskline/internal/events"
	"taskline/internal/migrate"
)

// Runtime is an opened workspace. Close releases the database.
type Runtime struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Engine    engine.Engine
	Recorder  events.Recorder
	Logger    *slog.Logger
}

// Open loads taskline.yml (defaults when absent), the task catalog and the
// database of workspace, applying pending migrations.
func Open(ctx context.Context, workspace string, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workspace == "" {
		workspace = "."
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalogPath := cfg.Catalog.Path
	if catalogPath != "" && !filepath.IsAbs(catalogPath) {
		catalogPath = filepath.Join(workspace, catalogPath)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg, cat)
	e.Logger = logger.With(slog.String("component", "engine"))
	logger.Debug("workspace opened", slog.String("db", db.Path(workspace)), slog.String("timezone", cfg.Timezone))
	return &Runtime{
		Workspace: workspace,
		DB:        conn,
		Config:    cfg,
		Engine:    e,
		Recorder: events.Recorder{
			Sink:   e.Repo,
			Logger: logger.With(slog.String("component", "activity")),
		},
		Logger: logger,
	}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
