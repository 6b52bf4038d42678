package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restroom-access/restroom-cli/internal/ingest"
)

var importMappingFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a restroom dataset",
	Long:  "Imports restroom records from a CSV file, an XLSX workbook, or a zipped shapefile. Row-level problems are collected and reported; they never abort the run.",
}

var importCSVCmd = &cobra.Command{
	Use:   "csv FILE",
	Short: "Import a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0], func(ctx context.Context, imp *ingest.Importer) (*ingest.Report, error) {
			return imp.ImportCSV(ctx, args[0])
		})
	},
}

var importXLSXCmd = &cobra.Command{
	Use:   "xlsx FILE",
	Short: "Import the first sheet of an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0], func(ctx context.Context, imp *ingest.Importer) (*ingest.Report, error) {
			return imp.ImportXLSX(ctx, args[0])
		})
	},
}

var importShapefileCmd = &cobra.Command{
	Use:   "shapefile ZIP",
	Short: "Import a zipped point shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0], func(ctx context.Context, imp *ingest.Importer) (*ingest.Report, error) {
			return imp.ImportShapefileZip(ctx, args[0])
		})
	},
}

func runImport(ctx context.Context, path string, run func(context.Context, *ingest.Importer) (*ingest.Report, error)) error {
	if err := cfg.Validate("import"); err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	opts, err := importerOptions()
	if err != nil {
		return err
	}

	rep, err := run(ctx, ingest.New(st, opts...))
	if err != nil {
		return err
	}

	printReport(rep)
	return nil
}

// importerOptions assembles importer options from config and flags. The
// mapping flag overrides the configured mapping file.
func importerOptions() ([]ingest.Option, error) {
	opts := []ingest.Option{ingest.WithErrorPreview(cfg.Import.ErrorPreview)}

	if cfg.Import.GeocodeMissing {
		opts = append(opts, ingest.WithGeocoder(initGeocoder()))
	}

	mappingPath := cfg.Import.MappingFile
	if importMappingFile != "" {
		mappingPath = importMappingFile
	}
	if mappingPath != "" {
		m, err := ingest.LoadMapping(mappingPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingest.WithMapping(m))
	}

	return opts, nil
}

func printReport(rep *ingest.Report) {
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Source:     %s\n", rep.Source)
	fmt.Printf("Format:     %s\n", rep.Format)
	if rep.Encoding != "" {
		fmt.Printf("Encoding:   %s\n", rep.Encoding)
	}
	fmt.Printf("Created:    %d\n", rep.Created)
	fmt.Printf("Row errors: %d\n", len(rep.RowErrors))
	for _, line := range rep.Preview(cfg.Import.ErrorPreview) {
		fmt.Printf("  %s\n", line)
	}
}

func init() {
	importCSVCmd.Flags().StringVar(&importMappingFile, "mapping", "", "YAML column-mapping file extending the header synonyms")
	importXLSXCmd.Flags().StringVar(&importMappingFile, "mapping", "", "YAML column-mapping file extending the header synonyms")

	importCmd.AddCommand(importCSVCmd)
	importCmd.AddCommand(importXLSXCmd)
	importCmd.AddCommand(importShapefileCmd)
	rootCmd.AddCommand(importCmd)
}
