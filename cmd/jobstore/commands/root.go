package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/jobstore/pkg/client"
	"github.com/marshallshelly/jobstore/pkg/migration"
	"github.com/marshallshelly/jobstore/pkg/runtime"
)

var (
	// Global flags
	dbURL         string
	envFile       string
	migrationsDir string
	verbose       bool
	jsonOutput    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jobstore",
	Short: "Jobstore - admin tool for the jobs board and storefront database",
	Long: `Jobstore manages the PostgreSQL database behind the jobs board and the
storefront.

Features:
  - Migration generation from the registered models
  - Up/down migrations with an advisory lock and an interactive TUI
  - Administrator seeding with bcrypt password hashes
  - Storefront settings with an optional Redis cache
  - Scheduled expiry of job postings and discounts`,
	Version:       "0.4.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "./migrations", "Directory for migration files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every query")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// loadConfig reads the environment and applies the global flags.
func loadConfig() (*runtime.Config, error) {
	if dbURL != "" {
		if err := os.Setenv("DATABASE_URL", dbURL); err != nil {
			return nil, err
		}
	}
	cfg, err := runtime.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("--db flag or DATABASE_URL is required: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
		cfg.LogQueries = true
	}
	return cfg, nil
}

// openClient connects with the loaded configuration. Callers close it.
func openClient(ctx context.Context) (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c, err := client.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return c, nil
}

// openExecutor connects and prepares schema_migrations.
func openExecutor(ctx context.Context) (*client.Client, *migration.Executor, error) {
	c, err := openClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	executor := migration.NewExecutor(c.DB().Pool()).WithLogger(c.Logger())
	if err := executor.Initialize(ctx); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return c, executor, nil
}
