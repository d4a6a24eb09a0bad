package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/sqlite"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every task, worktime record, schedule and setting to JSONL files",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			stats, err := sqlite.Export(a.conn, dir)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			a.logger.Info("exported", "dir", dir)
			return a.printStats(cmd, "Exported to "+dir, stats)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load JSONL files written by export, replacing rows with the same id",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return userError(fmt.Errorf("import: %s is not a directory", dir))
			}
			stats, err := sqlite.Import(a.conn, dir)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			a.logger.Info("imported", "dir", dir)
			return a.printStats(cmd, "Imported from "+dir, stats)
		},
	}
}

func (a *app) printStats(cmd *cobra.Command, title string, stats sqlite.ExportStats) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), stats)
	}
	files := make([]string, 0, len(stats))
	for f := range stats {
		files = append(files, f)
	}
	sort.Strings(files)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, title)
	t := newTable(out)
	t.AppendHeader(table.Row{"File", "Records"})
	for _, f := range files {
		t.AppendRow(table.Row{f, stats[f]})
	}
	t.Render()
	return nil
}
