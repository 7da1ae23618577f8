package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/jobstore/cmd/jobstore/output"
	"github.com/marshallshelly/jobstore/pkg/settings"
)

// settingsCmd manages storefront settings
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and write storefront settings",
	Long: `Read and write the key/value settings of the storefront. When REDIS_URL
is set, reads go through the cache and writes refresh it.

Examples:
  jobstore settings list
  jobstore settings get currency
  jobstore settings set banner "Summer sale"
  jobstore settings delete banner`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), func(ctx context.Context, store *settings.Store) error {
			value, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(map[string]string{"key": args[0], "value": value})
			}
			fmt.Fprintln(output.Out, value)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Create or replace a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), func(ctx context.Context, store *settings.Store) error {
			if _, err := store.Set(ctx, args[0], args[1]); err != nil {
				return err
			}
			output.Success("Set %s", args[0])
			return nil
		})
	},
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), func(ctx context.Context, store *settings.Store) error {
			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			output.Success("Deleted %s", args[0])
			return nil
		})
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), func(ctx context.Context, store *settings.Store) error {
			all, err := store.All(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(all)
			}
			rows := make([][]string, len(all))
			for i, s := range all {
				rows[i] = []string{s.Key, s.Value}
			}
			output.Table([]string{"KEY", "VALUE"}, rows)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsDeleteCmd, settingsListCmd)
}

// withSettings opens the database and, when configured, the Redis cache.
// An unreachable cache is reported and skipped.
func withSettings(ctx context.Context, fn func(ctx context.Context, store *settings.Store) error) error {
	c, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := c.Config()
	var cache settings.Cache
	if cfg.RedisURL != "" {
		rc, err := settings.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			c.Logger().Warn("settings cache disabled", slog.String("error", err.Error()))
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	return fn(ctx, settings.NewStore(c, cache, cfg.SettingsCacheTTL))
}
