package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/studygroup/groupchat-server/internal/app"
	"github.com/studygroup/groupchat-server/internal/config"
	"github.com/studygroup/groupchat-server/internal/log"
)

type rootOptions struct {
	configPath string
	overrides  config.Config
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "groupchat-server",
		Short:         "Real-time messaging and presence for university study groups",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml (default: ./config.yaml)")
	flags.StringVar(&opts.overrides.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.overrides.DatabasePath, "db", "", "SQLite database path")
	flags.DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	cmd.AddCommand(newTokenCommand(opts))
	return cmd
}

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig(opts *rootOptions) (config.Config, error) {
	bootLogger := log.New("info")
	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(opts.overrides)
	bootLogger.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func runServer(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting groupchat server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
