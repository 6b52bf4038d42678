package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusImports int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset statistics",
	Long:  "Displays record counts for the directory plus the most recent import-log entries.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "status: stats")
		}

		imports, err := st.ListImports(ctx, statusImports)
		if err != nil {
			return eris.Wrap(err, "status: list imports")
		}

		fmt.Println("=== Dataset ===")
		fmt.Printf("Total records:  %d\n", stats.Total)
		fmt.Printf("Located:        %d\n", stats.Located)
		fmt.Printf("With hours:     %d\n", stats.WithHours)
		fmt.Printf("Unknown zip:    %d\n", stats.UnknownZip)

		if len(imports) > 0 {
			fmt.Println()
			fmt.Println("Recent imports:")
			for _, rec := range imports {
				fmt.Printf("  %s  %-9s %6d created %4d errors  %s\n",
					rec.ImportedAt.Format("2006-01-02 15:04"),
					rec.Format, rec.Created, rec.ErrorCount, rec.Source)
			}
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusImports, "imports", 5, "how many recent imports to list")
	rootCmd.AddCommand(statusCmd)
}
