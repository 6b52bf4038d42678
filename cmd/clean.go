package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restroom-access/restroom-cli/internal/clean"
)

var (
	cleanDryRun    bool
	cleanSkipHours bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize, enrich, and deduplicate the dataset",
	Long:  "Runs the full maintenance pass: title-casing, state appending, name suffixing, bogus-hours clearing, Overpass opening-hours enrichment, and spatial deduplication.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("clean"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var lookup clean.HoursLookup
		if !cleanSkipHours && !cleanDryRun {
			lookup = initOverpass()
		}

		cleaner := clean.New(st, lookup, clean.Options{
			DryRun:         cleanDryRun,
			SkipHoursFetch: cleanSkipHours,
		})

		sum, err := cleaner.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Println(sum.String())
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Report what would change without writing or fetching")
	cleanCmd.Flags().BoolVar(&cleanSkipHours, "skip-hours", false, "Skip the Overpass opening-hours enrichment stage")
	rootCmd.AddCommand(cleanCmd)
}
