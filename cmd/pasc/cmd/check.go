package cmd

import (
	"fmt"

	"github.com/chazu/pasc/compiler"
	"github.com/spf13/cobra"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report every problem in a source file without generating code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := readSource(path)
			if err != nil {
				return err
			}

			diags, err := compiler.Check(src)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("OK"), path)
				return nil
			}

			label := errorStyle.Render(errorLabel(compiler.ErrorKind(err)))
			w := cmd.ErrOrStderr()
			for _, d := range diags {
				fmt.Fprintf(w, "%s %s:%d:%d: %s\n", label, path, d.Pos.Line, d.Pos.Column, d.Msg)
			}
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d problem(s)", len(diags))))
			return errReported
		},
	}
}
