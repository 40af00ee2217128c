// Package app wires the hamsd sample daemon's cobra command tree.
package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the hamsd root command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hamsd",
		Short: "hamsd runs a sample HaMS-supervised service",
		Long:  "hamsd embeds HaMS to demonstrate liveness/readiness probes and graceful shutdown over /hams.",
	}

	root.AddCommand(NewServeCommand())
	return root
}
