package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/marshallshelly/jobstore/cmd/jobstore/output"
	"github.com/marshallshelly/jobstore/pkg/builder"
	"github.com/marshallshelly/jobstore/pkg/client"
	"github.com/marshallshelly/jobstore/pkg/models"
)

var (
	adminUsername string
	adminEmail    string
)

// seedCmd groups data seeding commands
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed initial data",
}

// seedAdminCmd creates or updates an administrator
var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create or update an administrator",
	Long: `Create an administrator, or reset the password of an existing one with
the same username. The password is read from ADMIN_PASSWORD.

Examples:
  ADMIN_PASSWORD=s3cret jobstore seed admin --username root --email root@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			return fmt.Errorf("ADMIN_PASSWORD is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		ctx := cmd.Context()
		c, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		hashed := string(hash)
		admin, err := c.Administrator.Upsert(ctx, client.UpsertArgs[models.Administrator, models.AdministratorUpdate]{
			Where:  []builder.Condition{builder.Eq("username", adminUsername)},
			Create: models.Administrator{Username: adminUsername, Email: adminEmail, PasswordHash: hashed},
			Update: models.AdministratorUpdate{PasswordHash: &hashed},
			Omit:   []string{"password_hash"},
		})
		if err != nil {
			return fmt.Errorf("failed to seed administrator: %w", err)
		}
		output.Success("Administrator %s (%s) is ready", admin.Username, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedAdminCmd)

	seedAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Administrator username (required)")
	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Administrator email (required)")
	_ = seedAdminCmd.MarkFlagRequired("username")
	_ = seedAdminCmd.MarkFlagRequired("email")
}
