package admin

import (
	"fmt"

	"github.com/cloo-solutions/msassist/internal/config"
	"github.com/cloo-solutions/msassist/internal/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:       "migrate <up|down>",
		Short:     "Apply or roll back database migrations",
		Long:      "Apply all pending migrations (up) or roll every migration back (down)",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if source == "" {
				source = cfg.MigrationsPath
			}

			result, err := database.Migrate(cfg.DatabaseURL, source, database.Direction(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !result.Changed {
				fmt.Fprintf(out, "Database is up to date (version %d)\n", result.Version)
				return nil
			}
			fmt.Fprintf(out, "Migrated %s, now at version %d\n", args[0], result.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Migration source URL (defaults to MSASSIST_MIGRATIONS_PATH)")

	return cmd
}
