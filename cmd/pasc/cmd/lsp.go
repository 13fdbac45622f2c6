package cmd

import (
	"github.com/chazu/pasc/server"
	"github.com/spf13/cobra"
)

func newLSPCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Serve the Language Server Protocol over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.NewLSP().Run()
		},
	}
}
