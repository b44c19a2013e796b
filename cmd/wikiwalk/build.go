package main

import (
	"github.com/spf13/cobra"

	"github.com/hut8/wikiwalk/internal/graphbuild"
	"github.com/hut8/wikiwalk/internal/wikilang"
)

func newBuildCmd() *cobra.Command {
	var (
		dataRoot string
		dumpDir  string
		mirror   string
		wikiFlag string
		dumpDate string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full graph build pipeline into $DATA_ROOT/<date>/",
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikilang.Resolve(wikiFlag)
			if err != nil {
				return err
			}

			opts := graphbuild.Options{
				DataRoot: dataRoot,
				DumpDir:  dumpDir,
				Mirror:   mirror,
				Wiki:     wiki,
				DumpDate: dumpDate,
				Quiet:    quiet,
				Logger:   logger,
			}
			result, err := graphbuild.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			logger.Printf("generation %s ready at %s (%d vertices, %d edges, %s)",
				result.DumpDate, result.GenDir, result.VertexCount, result.EdgeCount, result.Elapsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", envOr("DATA_ROOT", "."), "workspace root for generation directories")
	cmd.Flags().StringVar(&dumpDir, "dumps", "dumps", "directory to download dump files into")
	cmd.Flags().StringVar(&mirror, "mirror", "https://dumps.wikimedia.org", "dump mirror base URL")
	cmd.Flags().StringVar(&wikiFlag, "wiki", "en", "wiki to build (name, code, or database name)")
	cmd.Flags().StringVar(&dumpDate, "dump-date", "", "build an explicit YYYYMMDD date instead of the latest")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	return cmd
}
