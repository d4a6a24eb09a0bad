package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0-dev"

const modulePath = "github.com/mesh-intelligence/timecard"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the timecard version",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "timecard v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
