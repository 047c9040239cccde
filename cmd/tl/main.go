package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskline/internal/app"
	"taskline/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Taskline CLI",
	Long: `Taskline assigns tasks to people and tracks them to completion.
- Admins create tasks, or assign predefined ones from the catalog, to users.
- Users see and work only on their own tasks; a task they do not own looks missing.
- Tasks move between pending, in_progress and completed. A pending task past its due date shows as overdue.
- Files can be attached to tasks and downloaded again.
- Every change is written to the activity log, view it with 'tl log tail'.
Commands run as the principal given by --as-id and --as-role (admin 1 by default).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log-level"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Int64("as-id", 1, "principal id the command acts as")
	rootCmd.PersistentFlags().String("as-role", domain.RoleAdmin, "principal role (admin or user)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("as-id", rootCmd.PersistentFlags().Lookup("as-id"))
	_ = viper.BindPFlag("as-role", rootCmd.PersistentFlags().Lookup("as-role"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(peopleCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(attachCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// principal is the identity commands run as.
func principal() (domain.Principal, error) {
	p := domain.Principal{ID: viper.GetInt64("as-id"), Role: viper.GetString("as-role")}
	if p.ID <= 0 {
		return p, fmt.Errorf("--as-id must be positive")
	}
	if p.Role != domain.RoleAdmin && p.Role != domain.RoleUser {
		return p, fmt.Errorf("--as-role must be admin or user")
	}
	return p, nil
}

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime, domain.Principal) error) error {
	p, err := principal()
	if err != nil {
		return err
	}
	rt, err := app.Open(ctx, viper.GetString("workspace"), slog.Default())
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt, p)
}

// ownerScope narrows a listing to the caller unless the caller is an admin.
func ownerScope(p domain.Principal, requested int64) int64 {
	if p.IsAdmin() {
		return requested
	}
	return p.ID
}
