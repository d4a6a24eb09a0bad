package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/paths"
	"github.com/mesh-intelligence/timecard/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Initialize timecard storage",
		Long:        "Create the configuration file and the database, applying any pending schema migrations.",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a)
		},
	}
}

func runInit(cmd *cobra.Command, a *app) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	// An explicit --db is recorded in a freshly written config.yaml.
	dbPath := ""
	if a.flags.dbPath != "" {
		if dbPath, err = filepath.Abs(a.flags.dbPath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	wrote, err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), dbPath)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if err := a.setup(cmd); err != nil {
		return err
	}
	if err := a.conn.Open(); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	version, err := a.conn.SchemaVersion()
	if err != nil {
		return err
	}

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"config_dir":     a.configDir,
			"config_written": wrote,
			"db_path":        a.cfg.DBPath,
			"schema_version": version,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "timecard initialized")
	fmt.Fprintln(out, "  config:", a.configDir)
	fmt.Fprintln(out, "  db:    ", a.cfg.DBPath)
	fmt.Fprintf(out, "  schema: v%d (latest v%d)\n", version, sqlite.LatestSchemaVersion())
	return nil
}
