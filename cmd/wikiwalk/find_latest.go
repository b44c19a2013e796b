package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hut8/wikiwalk/internal/wikidump"
	"github.com/hut8/wikiwalk/internal/wikilang"
)

func newFindLatestCmd() *cobra.Command {
	var (
		wikiFlag    string
		mirrorFlag  string
		printDate   bool
		printURLs   bool
	)

	cmd := &cobra.Command{
		Use:   "find-latest",
		Short: "Print the latest complete dump date or its file URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikilang.Resolve(wikiFlag)
			if err != nil {
				return err
			}
			locator := wikidump.NewLocator(mirrorFlag)
			files, err := locator.FindLatest(wiki)
			if err != nil {
				return err
			}

			if printURLs {
				fmt.Println(files.PageURL)
				fmt.Println(files.RedirectURL)
				fmt.Println(files.PagelinksURL)
				return nil
			}
			fmt.Println(files.Date)
			return nil
		},
	}

	cmd.Flags().StringVar(&wikiFlag, "wiki", "en", "wiki to check (name, code, or database name)")
	cmd.Flags().StringVar(&mirrorFlag, "mirror", "https://dumps.wikimedia.org", "dump mirror base URL")
	cmd.Flags().BoolVar(&printDate, "date", true, "print the dump date (default)")
	cmd.Flags().BoolVar(&printURLs, "urls", false, "print the dump file URLs instead of the date")
	return cmd
}
