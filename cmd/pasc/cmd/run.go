package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pasc/artifact"
	"github.com/chazu/pasc/vm"
	"github.com/spf13/cobra"
)

func newRunCommand(opts *options) *cobra.Command {
	var (
		maxSteps int64
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a source file, a .tac listing or a .pobj object",
		Long: `Execute a program on the three-address interpreter.

Source files are compiled first. Listings (.tac) and objects (.pobj) run as
they are. read and readln take input from stdin; write and writeln print
to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			lines, err := loadListing(cmd, opts, path, !noCache)
			if err != nil {
				return err
			}

			prog, err := vm.Decode(lines)
			if err != nil {
				return err
			}

			machine := vm.New(prog,
				vm.WithInput(cmd.InOrStdin()),
				vm.WithOutput(cmd.OutOrStdout()),
				vm.WithMaxSteps(maxSteps),
				vm.WithLogger(log),
			)
			if err := machine.Run(cmd.Context()); err != nil {
				var rerr *vm.RuntimeError
				if errors.As(err, &rerr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", errorStyle.Render("Runtime Error:"), rerr.Err)
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", mutedStyle.Render(fmt.Sprintf("at listing line %d: %s", rerr.Line, rerr.Text)))
					return errReported
				}
				return err
			}
			log.Debugf("%s: %d steps", path, machine.Steps())
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxSteps, "max-steps", vm.DefaultMaxSteps, "abort after this many instructions")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the compile cache")
	return cmd
}

// loadListing returns the listing lines for path, compiling source files.
func loadListing(cmd *cobra.Command, opts *options, path string, useCache bool) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tac":
		src, err := readSource(path)
		if err != nil {
			return nil, err
		}
		return strings.Split(src, "\n"), nil

	case ".pobj":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		obj, err := artifact.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		return obj.Listing(), nil
	}

	m, err := opts.loadManifest(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	obj, err := build(cmd.Context(), m, path, useCache)
	if err != nil {
		return nil, reportCompileError(cmd.ErrOrStderr(), path, err)
	}
	return obj.Listing(), nil
}
