package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/jobstore/cmd/jobstore/output"
	"github.com/marshallshelly/jobstore/pkg/migration"
	"github.com/marshallshelly/jobstore/pkg/models"
	"github.com/marshallshelly/jobstore/pkg/registry"
)

var schemaOut string

// schemaCmd prints the DDL of the registered models
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the full schema DDL of the models",
	Long: `Print CREATE TABLE statements for every model in dependency order.
No database connection is needed.

Examples:
  jobstore schema                   # Print to stdout
  jobstore schema --out schema.sql  # Write to a file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := models.RegisterAll(); err != nil {
			return err
		}
		ddl := migration.NewPlanner().GenerateSchema(registry.All())
		if schemaOut == "" {
			_, err := fmt.Fprint(output.Out, ddl)
			return err
		}
		if err := os.WriteFile(schemaOut, []byte(ddl), 0o644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
		output.Success("Wrote schema for %d tables to %s", len(registry.All()), schemaOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaOut, "out", "o", "", "Write the DDL to this file")
}
