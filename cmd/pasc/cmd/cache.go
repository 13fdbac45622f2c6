package cmd

import (
	"fmt"
	"os"

	"github.com/chazu/pasc/cache"
	"github.com/spf13/cobra"
)

func newCacheCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the compile cache",
	}

	openStore := func(cmd *cobra.Command) (*cache.Store, string, error) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		m, err := opts.loadManifest(wd)
		if err != nil {
			return nil, "", err
		}
		path := m.CacheFile()
		store, err := cache.Open(cmd.Context(), path)
		return store, path, err
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render("Compile cache"))
			fmt.Fprintf(w, "  Path:    %s\n", path)
			fmt.Fprintf(w, "  Entries: %d\n", st.Entries)
			fmt.Fprintf(w, "  Bytes:   %d\n", st.Bytes)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove every cached object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Purge(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", warningStyle.Render("Purged"), path)
			return nil
		},
	})

	return cmd
}
