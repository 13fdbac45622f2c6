package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/chazu/pasc/compiler"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// tokenRecord is the YAML shape of one token.
type tokenRecord struct {
	Type    string `yaml:"type"`
	Literal string `yaml:"literal,omitempty"`
	Line    int    `yaml:"line"`
	Column  int    `yaml:"column"`
}

func newTokensCommand(opts *options) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Dump the token stream of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			tokens, err := compiler.Tokenize(src)
			if err != nil {
				return reportCompileError(cmd.ErrOrStderr(), args[0], err)
			}

			records := make([]tokenRecord, len(tokens))
			for i, tok := range tokens {
				records[i] = tokenRecord{
					Type:    tok.Type.String(),
					Literal: tok.Literal,
					Line:    tok.Pos.Line,
					Column:  tok.Pos.Column,
				}
			}

			if asYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(records); err != nil {
					return err
				}
				return enc.Close()
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, headerStyle.Render("POS")+"\t"+headerStyle.Render("TYPE")+"\t"+headerStyle.Render("LITERAL"))
			for _, r := range records {
				fmt.Fprintf(tw, "%d:%d\t%s\t%q\n", r.Line, r.Column, r.Type, r.Literal)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "emit YAML")
	return cmd
}
