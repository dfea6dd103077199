// Package cli implements the oboe command.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the oboe command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "oboe",
		Short: "Client tooling for the oboe-vintage API",
		Long: `oboe talks to the oboe-vintage backend configured by OBOE_API_BASE_URL.
Settings come from the environment or a .env file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newHealthCommand(), newVersionCommand())
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
