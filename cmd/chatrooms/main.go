package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrooms/internal/app"
	"github.com/vovakirdan/chatrooms/internal/config"
	"github.com/vovakirdan/chatrooms/internal/log"
)

var version = "dev"

type rootFlags struct {
	configPath string
	overrides  config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "chatrooms",
		Short:         "Chat rooms server and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config.yaml")
	pf.StringVar(&flags.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.overrides.IdentityBackend, "identity-backend", "", "identity store: sqlite, redis or memory")
	pf.StringVar(&flags.overrides.DatabasePath, "db", "", "sqlite database path")
	pf.StringVar(&flags.overrides.RedisAddr, "redis-addr", "", "redis address")

	root.AddCommand(newServeCmd(flags), newConsoleCmd(flags), newVersionCmd())
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, os.Stdout)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), &cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting chatrooms server")
			if err := application.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&flags.overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	cmd.Flags().DurationVar(&flags.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newConsoleCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Chat from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so they do not interleave with the prompt.
			cfg, logger, err := loadConfig(flags, os.Stderr)
			if err != nil {
				return err
			}
			return app.RunConsole(cmd.Context(), &cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func loadConfig(flags *rootFlags, logOut *os.File) (config.Config, *zerolog.Logger, error) {
	bootLogger := log.NewWithWriter("info", logOut)

	cfg, path, err := config.Load(bootLogger, flags.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(flags.overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := log.NewWithWriter(cfg.LogLevel, logOut)
	logger.Debug().Str("config_path", path).Msg("configuration loaded")
	return cfg, logger, nil
}
