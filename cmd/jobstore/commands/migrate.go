package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/jobstore/cmd/jobstore/output"
	"github.com/marshallshelly/jobstore/cmd/jobstore/tui"
	"github.com/marshallshelly/jobstore/pkg/migration"
)

var (
	// Migrate flags
	dryRun      bool
	all         bool
	upSteps     int
	downSteps   int
	target      string
	interactive bool
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations to keep the database schema in sync with the models.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations
  status  - Show migration status`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations to update the database schema.

Examples:
  jobstore migrate up --all              # Apply all pending migrations
  jobstore migrate up --steps 1          # Apply next migration
  jobstore migrate up --dry-run --all    # Preview migrations without applying`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp(cmd.Context())
	},
}

// migrateDownCmd rolls back migrations
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations to revert database schema changes.

Examples:
  jobstore migrate down --steps 1        # Rollback last migration
  jobstore migrate down --target VERSION # Rollback everything newer than VERSION
  jobstore migrate down --dry-run        # Preview rollback without executing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateDown(cmd.Context())
	},
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show the status of all migrations (pending, applied, failed).

Examples:
  jobstore migrate status                # Show migration status
  jobstore migrate status --json         # Output in JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateUpCmd.Flags().BoolVar(&all, "all", false, "Apply all pending migrations")
	migrateUpCmd.Flags().IntVar(&upSteps, "steps", 0, "Number of migrations to apply")

	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to rollback")
	migrateDownCmd.Flags().StringVar(&target, "target", "", "Rollback every migration newer than this version")
}

func loadMigrations() ([]migration.Migration, error) {
	migrations, err := migration.NewGenerator(migrationsDir).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return migrations, nil
}

func runMigrateUp(ctx context.Context) error {
	if !interactive && !all && upSteps <= 0 {
		return fmt.Errorf("must specify --all or --steps")
	}
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		output.Warning("No migrations found in %s", migrationsDir)
		return nil
	}

	c, executor, err := openExecutor(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if interactive {
		return tui.Run(ctx, tui.ActionUp, executor, migrations)
	}

	toApply := migrations
	if !all {
		status, err := executor.GetStatus(ctx, migrations)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		toApply = nil
		for i, record := range status {
			if record.Status != migration.StatusApplied && len(toApply) < upSteps {
				toApply = append(toApply, migrations[i])
			}
		}
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
	} else {
		output.Section("Applying Migrations")
	}
	applied, err := executor.ApplyAll(ctx, toApply, dryRun)
	for _, m := range applied {
		output.Success("%s %s - %s", verb(dryRun, "Would apply", "Applied"), m.Version, m.Name)
	}
	if err != nil {
		output.Error("%v", err)
		return err
	}
	if len(applied) == 0 {
		output.Info("No pending migrations")
		return nil
	}

	fmt.Fprintln(output.Out)
	output.Success("%s %d migration(s)", verb(dryRun, "Would apply", "Successfully applied"), len(applied))
	return nil
}

func runMigrateDown(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	c, executor, err := openExecutor(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if interactive {
		return tui.Run(ctx, tui.ActionDown, executor, migrations)
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
	} else {
		output.Section("Rolling Back Migrations")
	}

	var rolledBack []migration.Migration
	if target != "" {
		rolledBack, err = executor.RollbackTo(ctx, migrations, target, dryRun)
	} else {
		rolledBack, err = executor.RollbackSteps(ctx, migrations, downSteps, dryRun)
	}
	for _, m := range rolledBack {
		output.Warning("%s %s - %s", verb(dryRun, "Would roll back", "Rolled back"), m.Version, m.Name)
	}
	if err != nil {
		output.Error("%v", err)
		return err
	}
	if len(rolledBack) == 0 {
		output.Info("No migrations to rollback")
		return nil
	}

	fmt.Fprintln(output.Out)
	output.Success("%s %d migration(s)", verb(dryRun, "Would roll back", "Successfully rolled back"), len(rolledBack))
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	c, executor, err := openExecutor(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	status, err := executor.GetStatus(ctx, migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	if jsonOutput {
		return output.JSON(status)
	}
	if len(status) == 0 {
		output.Warning("No migrations found in %s", migrationsDir)
		return nil
	}

	counts := map[migration.MigrationStatus]int{}
	rows := make([][]string, 0, len(status))
	for _, record := range status {
		appliedAt := "N/A"
		if record.AppliedAt != nil {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}
		counts[record.Status]++
		rows = append(rows, []string{
			record.Version,
			record.Name,
			output.StatusIcon(string(record.Status)) + " " + string(record.Status),
			appliedAt,
		})
	}
	output.Table([]string{"VERSION", "NAME", "STATUS", "APPLIED AT"}, rows)

	summary := fmt.Sprintf("\nSummary: %d applied, %d pending", counts[migration.StatusApplied], counts[migration.StatusPending])
	if n := counts[migration.StatusFailed]; n > 0 {
		summary += fmt.Sprintf(", %d failed", n)
	}
	fmt.Fprintln(output.Out, summary)

	if err := executor.Validate(ctx, migrations); err != nil {
		output.Warning("%v", err)
	}
	return nil
}

func verb(dryRun bool, preview, done string) string {
	if dryRun {
		return preview
	}
	return done
}
