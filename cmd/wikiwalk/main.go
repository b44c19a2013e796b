// Command wikiwalk is the CLI surface named in spec §6: find-latest,
// build, query, version, and serve. Grounded on the teacher's main.go
// subcommand dispatch, upgraded from a raw flag.FlagSet switch to
// github.com/spf13/cobra, which is the dominant CLI library across the
// retrieved pack for exactly this "independent subcommands with their
// own flags" shape.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "wikiwalk",
		Short:         "Compute shortest paths between Wikipedia articles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newFindLatestCmd(),
		newBuildCmd(),
		newQueryCmd(),
		newVersionCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wikiwalk:", err)
		os.Exit(1)
	}
}

var logger = log.New(os.Stderr, "", log.LstdFlags)
