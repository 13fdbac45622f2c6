package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/pasc/manifest"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// errReported is returned by commands that have already printed their
// failure, so Execute only sets the exit status.
var errReported = errors.New("failure already reported")

// options holds the persistent flags shared by every command.
type options struct {
	configDir string
	verbose   int
}

// NewRootCommand builds the pasc command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pasc",
		Short: "Pascal-subset compiler producing three-address code",
		Long: `pasc compiles a small Pascal subset into three-address intermediate code.

Commands:
  compile  Compile a source file to a listing or a binary object
  check    Report every lexical, syntax and semantic problem
  tokens   Dump the token stream
  run      Execute a program, listing or object
  lsp      Serve the Language Server Protocol over stdio
  serve    Serve the compile API over HTTP
  cache    Inspect or clear the compile cache`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonlog.Configure(opts.verbose, nil)
		},
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config", "", "directory holding pasc.toml or pasc.yaml (default: search upwards)")
	root.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "verbose output (repeat for more)")

	root.AddCommand(
		newCompileCommand(opts),
		newCheckCommand(opts),
		newTokensCommand(opts),
		newRunCommand(opts),
		newLSPCommand(opts),
		newServeCommand(opts),
		newCacheCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return execute(NewRootCommand())
}

func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil && !errors.Is(err, errReported) {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
}

// loadManifest finds the project configuration for files under dir. The
// --config flag names the manifest directory explicitly. Without a
// manifest the defaults apply, except that caching stays off so a bare
// compile leaves nothing behind.
func (o *options) loadManifest(dir string) (*manifest.Manifest, error) {
	if o.configDir != "" {
		return manifest.Load(o.configDir)
	}
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
		m.Build.Cache = false
	}
	return m, nil
}

// readSource reads a source file, reporting a missing file plainly.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("input file '%s' not found", path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
