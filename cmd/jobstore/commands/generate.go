package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/jobstore/cmd/jobstore/output"
	"github.com/marshallshelly/jobstore/pkg/migration"
	"github.com/marshallshelly/jobstore/pkg/registry"
)

var (
	// Generate flags
	migrationName string
	empty         bool
)

// generateCmd generates migration files
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate migration files",
	Long: `Generate migration files by comparing the registered models with the
database schema.

The command introspects the database, compares it with the models and writes
timestamped up/down SQL files.

Examples:
  jobstore generate --name add_sku_to_products   # Generate from schema diff
  jobstore generate --name backfill_views --empty # Empty pair for hand-written SQL`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&migrationName, "name", "n", "", "Migration name (required)")
	generateCmd.Flags().BoolVar(&empty, "empty", false, "Generate empty migration for manual editing")
	_ = generateCmd.MarkFlagRequired("name")
}

func runGenerate(cmd *cobra.Command) error {
	generator := migration.NewGenerator(migrationsDir)

	if empty {
		file, err := generator.GenerateEmpty(migrationName)
		if err != nil {
			return fmt.Errorf("failed to generate empty migration: %w", err)
		}
		printCreated("Created empty migration", file)
		output.Info("Edit the SQL files manually to add your migration logic.")
		return nil
	}

	ctx := cmd.Context()
	c, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	dbSchema, err := migration.NewIntrospector(c.DB().Pool()).IntrospectSchema(ctx)
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}
	diff := migration.NewDiffer().Compare(migration.TablesByName(registry.All()), dbSchema)

	file, err := generator.Generate(migrationName, diff)
	if errors.Is(err, migration.ErrNoChanges) {
		output.Info("No schema changes detected. Database is in sync with models.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to generate migration: %w", err)
	}

	printDiff(diff)
	printCreated("Created migration", file)
	output.Info("Review the generated SQL files before applying the migration.")
	return nil
}

func printDiff(diff *migration.SchemaDiff) {
	output.Section("Detected Schema Changes")
	if len(diff.TablesAdded) > 0 {
		output.Success("Tables to add: %d", len(diff.TablesAdded))
		for _, table := range diff.TablesAdded {
			output.Muted("    + %s", table.Name)
		}
	}
	if len(diff.TablesDropped) > 0 {
		output.Warning("Tables to drop: %d", len(diff.TablesDropped))
		for _, table := range diff.TablesDropped {
			output.Muted("    - %s", table.Name)
		}
	}
	if len(diff.TablesModified) > 0 {
		output.Info("Tables to modify: %d", len(diff.TablesModified))
		for _, td := range diff.TablesModified {
			output.Muted("    ~ %s (+%d -%d ~%d columns, +%d -%d indexes, +%d -%d foreign keys)",
				td.TableName,
				len(td.ColumnsAdded), len(td.ColumnsDropped), len(td.ColumnsModified),
				len(td.IndexesAdded), len(td.IndexesDropped),
				len(td.ForeignKeysAdded), len(td.ForeignKeysDropped))
		}
	}
}

func printCreated(title string, file *migration.MigrationFile) {
	output.Success("%s: %s", title, file.Version)
	output.Muted("  Up:   %s", file.UpPath)
	output.Muted("  Down: %s", file.DownPath)
}
