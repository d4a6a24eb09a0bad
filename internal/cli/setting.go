package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/sqlite"
)

func newSettingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "Read and change stored preferences",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [key]",
			Short: "Print one setting, or all of them",
			Args:  usageArgs(cobra.MaximumNArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				settings := sqlite.NewSettings(a.conn)
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					v, err := settings.Get(args[0])
					if err != nil {
						return fmt.Errorf("setting %q: %w", args[0], err)
					}
					if a.flags.jsonMode {
						return printJSON(out, map[string]string{args[0]: v})
					}
					fmt.Fprintln(out, v)
					return nil
				}

				all, err := settings.All()
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					m := make(map[string]string, len(all))
					for _, s := range all {
						m[s.Key] = s.Value
					}
					return printJSON(out, m)
				}
				t := newTable(out)
				t.AppendHeader(table.Row{"Key", "Value"})
				for _, s := range all {
					t.AppendRow(table.Row{s.Key, s.Value})
				}
				t.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a setting",
			Args:  usageArgs(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := sqlite.NewSettings(a.conn).Set(args[0], args[1]); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]string{args[0]: args[1]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			},
		},
	)
	return cmd
}
