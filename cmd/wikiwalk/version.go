package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// buildVersion is set via -ldflags "-X main.buildVersion=..." in release
// builds. When it is empty, the command prints the module version from
// the embedded build info, or its VCS revision with --commit.
var buildVersion = ""

func newVersionCmd() *cobra.Command {
	var showCommit bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print a build identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			if buildVersion != "" {
				fmt.Println(buildVersion)
				return nil
			}

			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Println("unknown")
				return nil
			}
			if !showCommit {
				fmt.Println(info.Main.Version)
				return nil
			}
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					fmt.Println(setting.Value)
					return nil
				}
			}
			fmt.Println("unknown")
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCommit, "commit", false, "print the VCS commit revision instead of the module version")
	return cmd
}
