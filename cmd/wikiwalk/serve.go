package main

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hut8/wikiwalk/internal/bfs"
	"github.com/hut8/wikiwalk/internal/graphbuild"
	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/pathcache"
	"github.com/hut8/wikiwalk/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		dataRoot   string
		addr       string
		cacheSize  int
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the /paths HTTP contract route against the current generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			genDir, err := graphbuild.CurrentGeneration(dataRoot)
			if err != nil {
				return err
			}

			g, err := graphdb.Open(filepath.Join(genDir, "vertex_al"), filepath.Join(genDir, "vertex_al_ix"))
			if err != nil {
				return err
			}
			defer g.Close()

			srv := &server.Server{
				Graph:   g,
				Cache:   pathcache.New(cacheSize),
				Timeout: time.Duration(timeoutSec) * time.Second,
				Logger:  logger,
			}

			logger.Printf("serving generation %s on %s", genDir, addr)
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", envOr("DATA_ROOT", "."), "workspace root holding the `current` generation symlink")
	cmd.Flags().StringVar(&addr, "addr", ":1789", "HTTP listen address")
	cmd.Flags().IntVar(&cacheSize, "cache", pathcache.DefaultCapacity, "path cache entry capacity")
	cmd.Flags().IntVar(&timeoutSec, "timeout", int(bfs.DefaultTimeout.Seconds()), "query wall-clock budget in seconds")
	return cmd
}
