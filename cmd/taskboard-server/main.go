package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/existflow/taskboard/internal/config"
	"github.com/existflow/taskboard/internal/db"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/service"
	"github.com/existflow/taskboard/server"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "taskboard-server",
	Short:        "Taskboard REST API server",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		format := logger.FormatText
		if cfg.Log.Format == "json" {
			format = logger.FormatJSON
		}
		logConfig := logger.DefaultConfig()
		logConfig.Level = logger.ParseLevel(cfg.Log.Level)
		logConfig.Format = format
		logConfig.FilePath = cfg.Log.File
		logConfig.Console = cfg.Log.Console
		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	RunE: runServe,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Println("✓ Database is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all data with the demo data set",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()

		seedValue, _ := cmd.Flags().GetInt64("value")
		if !cmd.Flags().Changed("value") {
			seedValue = cfg.Seed.Value
		}

		summary, err := service.NewSeeder(st, seedValue).Seed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Seeded %d users, %d projects, %d tasks (password: %s)\n",
			summary.Users, summary.Projects, summary.Tasks, summary.Password)
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to open database", logger.Err(err))
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Error closing database", logger.Err(err))
		}
	}()

	srv := server.New(cfg, st)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Server failed", logger.Err(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", logger.F("timeout", cfg.Server.ShutdownTimeout.String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", logger.Err(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to server.yaml")
	seedCmd.Flags().Int64("value", 0, "Random seed (defaults to seed.value from the config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
