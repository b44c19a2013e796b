package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hut8/wikiwalk/internal/bfs"
	"github.com/hut8/wikiwalk/internal/graphbuild"
	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

func newQueryCmd() *cobra.Command {
	var dataRoot string
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "query <source_id> <target_id>",
		Short: "Run a BFS once against the current graph and print paths as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceN, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid source_id: %w", err)
			}
			targetN, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid target_id: %w", err)
			}

			genDir, err := graphbuild.CurrentGeneration(dataRoot)
			if err != nil {
				return err
			}

			g, err := graphdb.Open(filepath.Join(genDir, "vertex_al"), filepath.Join(genDir, "vertex_al_ix"))
			if err != nil {
				return err
			}
			defer g.Close()

			timeout := time.Duration(timeoutSec) * time.Second
			result, err := bfs.Search(cmd.Context(), g, wikiid.PageID(sourceN), wikiid.PageID(targetN), timeout)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&dataRoot, "data-root", envOr("DATA_ROOT", "."), "workspace root holding the `current` generation symlink")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 30, "query wall-clock budget in seconds")
	return cmd
}
