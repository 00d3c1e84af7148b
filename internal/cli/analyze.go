package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"breach-analyzer/internal/analysis"
	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/report"
)

// analyzeResult is the JSON shape of the analyze command.
type analyzeResult struct {
	Run       *analysis.Run    `json:"run"`
	Artifacts report.Artifacts `json:"artifacts"`
	ExportErr string           `json:"export_error,omitempty"`
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var noExport bool

	cmd := &cobra.Command{
		Use:   "analyze <company-id>",
		Short: "Analyze the market impact of a company's breach disclosures",
		Long: `Resolve a window of market data around every breach disclosure of the
company, run the four statistical tests on each window and summarize them.

Disclosure dates without market data are moved to the first later date with
data, up to the configured search bound. Reports are written to the output
directory unless --no-export is given.`,
		Example: `  breach-analyzer analyze 3
  breach-analyzer analyze 3 --output ./reports
  breach-analyzer analyze 3 --json --no-export`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := parseCompanyID(args[0])
			if err != nil {
				return err
			}
			if id == 0 {
				return apperrors.NewValidationError("company_id", args[0], "must be a positive integer")
			}
			defer app.Close()
			return analyzeCompany(cmd.Context(), output, app, id, !noExport)
		},
	}

	cmd.Flags().BoolVar(&noExport, "no-export", false, "skip spreadsheet, chart and PDF export")
	return cmd
}

// parseCompanyID parses a company ID. Zero is returned as is; callers
// treat it as a cancellation.
func parseCompanyID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("company_id", s, "must be an integer")
	}
	if id < 0 {
		return 0, apperrors.NewValidationError("company_id", s, "must be a positive integer")
	}
	return id, nil
}

// analyzeCompany runs the pipeline for one company, prints the results and
// exports the reports. Export failures are reported after the results.
func analyzeCompany(ctx context.Context, output *Output, app *App, companyID int64, export bool) error {
	ds, err := app.OpenStore(ctx)
	if err != nil {
		return err
	}

	analyzer, err := app.Analyzer(ds)
	if err != nil {
		return err
	}

	run, err := analyzer.Run(ctx, companyID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) && !output.IsJSON() {
			output.Warning("No analysis for Company ID %d: %v", companyID, err)
		}
		return err
	}

	var (
		artifacts report.Artifacts
		exportErr error
	)
	if export {
		artifacts, exportErr = app.Exporter().Export(run)
	}

	if output.IsJSON() {
		res := analyzeResult{Run: run, Artifacts: artifacts}
		if exportErr != nil {
			res.ExportErr = exportErr.Error()
		}
		if err := output.JSON(res); err != nil {
			return err
		}
		return exportErr
	}

	printCompanyCard(output, run.Company)
	printDisclosures(output, run.Disclosures)
	printRun(output, run)
	printArtifacts(output, artifacts)
	if exportErr != nil {
		output.Error("Report export failed: %v", exportErr)
	}
	return exportErr
}

func printArtifacts(output *Output, a report.Artifacts) {
	if a.Workbook == "" && a.PDF == "" && len(a.Charts) == 0 {
		return
	}
	output.Println()
	if a.Workbook != "" {
		output.Success("Analysis results exported to %s", a.Workbook)
	}
	if a.PDF != "" {
		output.Success("Analysis report saved to %s", a.PDF)
	}
	if len(a.Charts) > 0 {
		output.Dim("%d significance charts written", len(a.Charts))
	}
}
