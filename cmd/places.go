package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restroom-access/restroom-cli/internal/query"
)

var (
	placesTop    int
	placesSearch string
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Inspect the place index",
	Long:  "Lists the largest places in the directory, or searches the index by name. The index is built from located records on demand.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("places"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// No geocoder: inspection never resolves unknown slugs.
		engine := query.New(st, nil, query.Config{
			PlaceTTL: cfg.Query.PlaceTTL(),
			MatchCap: cfg.Query.PlaceMatchCap,
		})
		idx := engine.Places()

		var places []query.Place
		if placesSearch != "" {
			places, err = idx.Search(ctx, placesSearch)
		} else {
			places, err = idx.Top(ctx, placesTop)
		}
		if err != nil {
			return err
		}

		if len(places) == 0 {
			fmt.Println("no places")
			return nil
		}

		fmt.Printf("%-28s %-34s %8s\n", "Place", "Slug", "Members")
		for _, p := range places {
			fmt.Printf("%-28s %-34s %8d\n", p.Name, p.Slug, p.Members)
		}
		return nil
	},
}

func init() {
	placesCmd.Flags().IntVar(&placesTop, "top", 10, "how many places to list")
	placesCmd.Flags().StringVar(&placesSearch, "search", "", "search the index by name instead of listing the largest")
	rootCmd.AddCommand(placesCmd)
}
