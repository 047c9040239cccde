package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskline/internal/app"
	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/report"
	"taskline/internal/repo"
	"taskline/internal/server"
	"taskline/internal/upload"
)

func peopleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "people", Short: "Manage users and admins"}
	add := func(use, short string, insert func(repo.Repo, context.Context, domain.Person) (int64, error)) *cobra.Command {
		var person domain.Person
		c := &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
					if err := rt.Engine.Guard.RequireAdmin(p, use); err != nil {
						return err
					}
					if person.Name == "" {
						return fmt.Errorf("--name required")
					}
					person.CreatedAt = time.Now().UTC().Format(domain.TimeLayout)
					id, err := insert(rt.Engine.Repo, ctx, person)
					if err != nil {
						return err
					}
					fmt.Printf("created %d (%s)\n", id, person.Name)
					return nil
				})
			},
		}
		c.Flags().Int64Var(&person.ID, "id", 0, "explicit id (assigned when 0)")
		c.Flags().StringVar(&person.Name, "name", "", "display name")
		c.Flags().StringVar(&person.Email, "email", "", "email")
		return c
	}
	cmd.AddCommand(add("add-user", "Add a user who can own tasks", repo.Repo.InsertUser))
	cmd.AddCommand(add("add-admin", "Add an admin who can assign tasks", repo.Repo.InsertAdmin))
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users and admins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				users, err := rt.Engine.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				admins, err := rt.Engine.Repo.ListAdmins(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string][]domain.Person{"users": users, "admins": admins})
				}
				if err := printPeople("Users", users); err != nil {
					return err
				}
				return printPeople("Admins", admins)
			})
		},
	})
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Predefined task templates"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories and their templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				return printCatalog(rt.Engine.Catalog.ListCategories())
			})
		},
	})
	return cmd
}

func statsCmd() *cobra.Command {
	var f engine.StatsFilters
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Task statistics",
		Long:  "Admins see statistics across owners (optionally one owner). Users see their own.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				f.OwnerID = ownerScope(p, f.OwnerID)
				stats, err := rt.Engine.ComputeStatistics(ctx, f)
				if err != nil {
					return err
				}
				if asCSV {
					return report.WriteStatistics(os.Stdout, stats)
				}
				return printStatistics(stats)
			})
		},
	}
	cmd.Flags().Int64Var(&f.OwnerID, "owner", 0, "owner filter (admin)")
	cmd.Flags().StringVar(&f.DateFrom, "from", "", "created on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.DateTo, "to", "", "created on or before this day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Activity log",
		Long:  "Every task and attachment change, with who made it.",
	}
	var n int
	var principalID int64
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				entries, err := rt.Engine.Repo.LatestActivity(ctx, n, ownerScope(p, principalID))
				if err != nil {
					return err
				}
				return printActivity(entries)
			})
		},
	}
	tail.Flags().IntVarP(&n, "n", "n", 20, "number of entries")
	tail.Flags().Int64Var(&principalID, "principal", 0, "only this principal (admin)")
	log.AddCommand(tail)
	return log
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var key domain.APIKey
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for a principal (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.Guard.RequireAdmin(p, "create api key"); err != nil {
					return err
				}
				buf := make([]byte, 24)
				if _, err := rand.Read(buf); err != nil {
					return err
				}
				secret := "tl_" + hex.EncodeToString(buf)
				key.ID = uuid.NewString()
				key.KeyHash = repo.HashAPIKey(secret)
				if err := rt.Engine.Repo.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "principal_id": key.PrincipalID, "role": key.Role, "key": secret})
				}
				fmt.Printf("id:  %s\nkey: %s\nStore the key now; it is not shown again.\n", key.ID, secret)
				return nil
			})
		},
	}
	create.Flags().Int64Var(&key.PrincipalID, "principal-id", 0, "principal id")
	create.Flags().StringVar(&key.Role, "role", domain.RoleUser, "admin or user")
	create.Flags().StringVar(&key.Name, "name", "", "label")

	var principalID int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				keys, err := listAPIKeys(ctx, rt, p, principalID)
				if err != nil {
					return err
				}
				return printAPIKeys(keys)
			})
		},
	}
	list.Flags().Int64Var(&principalID, "principal-id", 0, "only keys of this principal")

	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := revokeAPIKey(ctx, rt, p, args[0]); err != nil {
					return err
				}
				fmt.Printf("revoked %s\n", args[0])
				return nil
			})
		},
	}
	cmd.AddCommand(create, list, revoke)
	return cmd
}

func listAPIKeys(ctx context.Context, rt *app.Runtime, p domain.Principal, principalID int64) ([]domain.APIKey, error) {
	if err := rt.Engine.Guard.RequireAdmin(p, "list api keys"); err != nil {
		return nil, err
	}
	return rt.Engine.Repo.ListAPIKeys(ctx, principalID)
}

func revokeAPIKey(ctx context.Context, rt *app.Runtime, p domain.Principal, id string) error {
	if err := rt.Engine.Guard.RequireAdmin(p, "revoke api key"); err != nil {
		return err
	}
	err := rt.Engine.Repo.DeleteAPIKey(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("api key %s not found", id)
	}
	return err
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Bearer tokens for local use"}
	var target domain.Principal
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a JWT with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				tok, err := server.SignToken(jwtSecret(rt), target, ttl)
				if err != nil {
					return err
				}
				fmt.Println(tok)
				return nil
			})
		},
	}
	issue.Flags().Int64Var(&target.ID, "principal-id", 0, "principal id")
	issue.Flags().StringVar(&target.Role, "role", domain.RoleUser, "admin or user")
	issue.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.AddCommand(issue)
	return cmd
}

// jwtSecret prefers TASKLINE_JWT_SECRET over the config file.
func jwtSecret(rt *app.Runtime) string {
	if s := viper.GetString("jwt-secret"); s != "" {
		return s
	}
	return rt.Config.Auth.JWTSecret
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, _ domain.Principal) error {
				addr := viper.GetString("addr")
				if addr == "" {
					addr = rt.Config.Server.Addr
				}
				basePath := viper.GetString("base-path")
				if basePath == "" {
					basePath = rt.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{JWTSecret: jwtSecret(rt)}
				if authCfg.JWTSecret == "" {
					slog.Warn("no jwt secret configured; only API keys will authenticate")
				}
				handler, err := server.New(server.Config{
					Engine:   rt.Engine,
					Recorder: rt.Recorder,
					Uploads:  upload.FromConfig(rt.Config),
					BasePath: basePath,
					Auth:     authCfg,
					Logger:   rt.Logger,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Taskline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (config server.addr when empty)")
	cmd.Flags().String("base-path", "", "API base path (config server.base_path when empty)")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("base-path", cmd.Flags().Lookup("base-path"))
	return cmd
}
