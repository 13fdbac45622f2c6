package cmd

import (
	"fmt"
	"os"

	"github.com/chazu/pasc/cache"
	"github.com/chazu/pasc/server"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *options) *cobra.Command {
	var (
		port    int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compile API (Connect over HTTP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			m, err := opts.loadManifest(wd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = m.Server.Port
			}

			serverOpts := []server.ServerOption{server.WithTimeout(m.Timeout())}
			if workers > 0 {
				serverOpts = append(serverOpts, server.WithWorkers(workers))
			}
			if m.Build.Cache {
				store, err := cache.Open(cmd.Context(), m.CacheFile())
				if err != nil {
					return fmt.Errorf("open compile cache: %w", err)
				}
				defer store.Close()
				serverOpts = append(serverOpts, server.WithCache(store))
			}

			srv := server.New(serverOpts...)
			defer srv.Stop()
			return srv.ListenAndServe(fmt.Sprintf(":%d", port))
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from pasc.toml, else 8547)")
	cmd.Flags().IntVar(&workers, "workers", 0, "compile workers (default GOMAXPROCS)")
	return cmd
}
