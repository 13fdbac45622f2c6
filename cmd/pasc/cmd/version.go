package cmd

import (
	"fmt"
	"runtime"

	"github.com/chazu/pasc/compiler/hash"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "development"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pasc v%s\n", Version)
			fmt.Fprintf(w, "  Git Commit:   %s\n", GitCommit)
			fmt.Fprintf(w, "  Hash Version: %d\n", hash.HashVersion)
			fmt.Fprintf(w, "  Go Version:   %s\n", runtime.Version())
			fmt.Fprintf(w, "  OS/Arch:      %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
