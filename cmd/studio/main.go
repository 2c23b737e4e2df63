// Package main is the entrypoint for the studio content type service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-studio/internal/config"
)

// app carries state shared by every subcommand.
type app struct {
	envFile string
	verbose bool

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "studio",
		Short: "Normalize legacy Studio content types",
		Long: `studio reads content type descriptors and form definitions from a legacy
Studio configuration service (or a directory of YAML fixtures) and normalizes
them into the content type model used by the admin UI.

Configuration is read from STUDIO_-prefixed environment variables, optionally
seeded from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(a.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cmd.ErrOrStderr(), cfg.DevMode || a.verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newFetchCmd(a),
		newTokenCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// setupLogging installs a JSON slog handler on w. Logs never go to stdout so
// command output stays machine readable.
func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
