package cli

import (
	"fmt"

	oboe "github.com/JustHoIt/oboe-vintage"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), oboe.GetVersion())
		},
	}
}
