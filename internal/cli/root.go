package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the splat CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "splat",
		Short: "splat - ROM splitting tool",
		Long:  "Splits a binary memory image into per-segment artifacts described by a YAML configuration, and emits the linker metadata to rebuild it byte-identical.",
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	// Add subcommands
	cmd.AddCommand(NewSplitCommand(opts))

	return cmd
}
