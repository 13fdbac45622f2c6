package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pasc/artifact"
	"github.com/chazu/pasc/cache"
	"github.com/chazu/pasc/compiler"
	"github.com/chazu/pasc/manifest"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("pasc.cli")

type compileFlags struct {
	output  string
	format  string
	noCache bool
}

func newCompileCommand(opts *options) *cobra.Command {
	flags := &compileFlags{}

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a source file to three-address code",
		Long: `Compile a source file to three-address code.

Without -o the listing is printed, unless the project configures an output
directory. The cbor format always writes a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file")
	cmd.Flags().StringVar(&flags.format, "format", "", "output format: text or cbor (default from pasc.toml, else text)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the compile cache")
	return cmd
}

func runCompile(cmd *cobra.Command, opts *options, flags *compileFlags, path string) error {
	m, err := opts.loadManifest(filepath.Dir(path))
	if err != nil {
		return err
	}
	if flags.format != "" {
		m.Build.Format = flags.format
		if err := m.Validate(); err != nil {
			return err
		}
	}

	obj, err := build(cmd.Context(), m, path, !flags.noCache)
	if err != nil {
		return reportCompileError(cmd.ErrOrStderr(), path, err)
	}

	out := flags.output
	if out == "" && (m.Build.Format == manifest.FormatCBOR || m.Build.OutputDir != "") {
		out = m.OutputFile(path)
	}

	if out == "" {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, successStyle.Render("Compilation successful.")+" Intermediate code:")
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, strings.Join(obj.Listing(), "\n"))
		fmt.Fprintln(w, rule)
		return nil
	}

	data, err := encodeObject(obj, m.Build.Format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Output written to %s\n", successStyle.Render("Compiled successfully."), out)
	return nil
}

// build compiles the file at path, going through the project cache when
// it is enabled. A cache that cannot be opened is skipped with a warning.
func build(ctx context.Context, m *manifest.Manifest, path string, useCache bool) (*artifact.Object, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := readSource(path)
	if err != nil {
		return nil, err
	}

	var store *cache.Store
	if useCache && m.Build.Cache {
		store, err = cache.Open(ctx, m.CacheFile())
		if err != nil {
			log.Warningf("compile cache disabled: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	obj, hit, err := cache.Build(ctx, store, src, log)
	if err != nil {
		return nil, err
	}
	if hit {
		log.Infof("%s: up to date (cached)", path)
	}
	return obj, nil
}

func encodeObject(obj *artifact.Object, format string) ([]byte, error) {
	if format == manifest.FormatCBOR {
		return artifact.Marshal(obj)
	}
	return []byte(strings.Join(obj.Listing(), "\n")), nil
}

// reportCompileError prints a compile failure with its phase. Errors that
// did not come from the compiler are passed back for Execute to print.
func reportCompileError(w io.Writer, path string, err error) error {
	kind := compiler.ErrorKind(err)
	if kind == "" {
		return err
	}

	label := errorStyle.Render(errorLabel(kind))
	for _, d := range compiler.Diagnostics(err) {
		fmt.Fprintf(w, "%s %s:%d:%d: %s\n", label, path, d.Pos.Line, d.Pos.Column, d.Msg)
	}
	return errReported
}

func errorLabel(kind string) string {
	switch kind {
	case compiler.KindLexical:
		return "Lexical Error:"
	case compiler.KindSyntax:
		return "Syntax Error:"
	case compiler.KindSemantic:
		return "Semantic Error:"
	}
	return "Compilation Error:"
}
