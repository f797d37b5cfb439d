// Package cli wires the wvdsh command surface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the wvdsh CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wvdsh",
		Short: "Wavedash developer tools",
		Long:  "Command-line tools for building, previewing, and shipping Wavedash games.",
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewDevCommand(opts))

	return cmd
}
