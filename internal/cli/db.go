package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/sqlite"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the schema version of the database",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := a.conn.SchemaVersion()
			if err != nil {
				return err
			}
			latest := sqlite.LatestSchemaVersion()
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"db_path": a.cfg.DBPath,
					"schema":  version,
					"latest":  latest,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema v%d (latest v%d)\n", a.cfg.DBPath, version, latest)
			return nil
		},
	})
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and recreate an empty database",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return userError(errors.New("reset deletes every task and worktime record; pass --yes to confirm"))
			}
			if err := a.conn.Reinitialize(); err != nil {
				return fmt.Errorf("reset database: %w", err)
			}
			a.logger.Info("database reset", "db", a.cfg.DBPath)
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"db_path": a.cfg.DBPath, "reset": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database reset:", a.cfg.DBPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
