// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholarmind/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [report-file]",
	Short: "Render a saved report to PDF, PPTX, or another format",
	Long: `Export reads a report previously written as JSON or YAML (for example by
'generate --format json') and renders it in each requested format. The report
is validated first; a structurally invalid report is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringSlice("format", []string{"pdf", "pptx"}, "export formats: "+formatList())
	exportCmd.Flags().String("output-dir", "output", "directory for exported files")
	exportCmd.Flags().String("font", "", "TrueType font for PDF output; required for non-Latin languages")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}

	formats, _ := cmd.Flags().GetStringSlice("format")
	dir, _ := cmd.Flags().GetString("output-dir")
	font, _ := cmd.Flags().GetString("font")
	if font == "" {
		font = viper.GetString("export.font_file")
	}

	for _, name := range formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		e, err := export.Lookup(f)
		if err != nil {
			return err
		}
		if f == export.FormatPDF && font != "" {
			e = &export.PDFExporter{FontFile: font}
		}
		path, err := export.Write(dir, report, e)
		if err != nil {
			return &exitError{code: 4, err: err}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	}
	return nil
}
