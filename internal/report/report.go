// Package report exports analysis runs as spreadsheets, charts and PDF documents.
package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"breach-analyzer/internal/analysis"
	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/logging"
	"breach-analyzer/pkg/utils"
)

// Options selects the artifacts an Exporter writes.
type Options struct {
	Dir         string
	Spreadsheet bool
	PDF         bool
	Charts      bool
}

// Artifacts lists the files written by one export.
type Artifacts struct {
	Workbook string   `json:"workbook,omitempty"`
	PDF      string   `json:"pdf,omitempty"`
	Charts   []string `json:"charts,omitempty"`
}

// Exporter writes report artifacts for completed runs.
type Exporter struct {
	opts   Options
	logger zerolog.Logger
}

// NewExporter creates an exporter writing into opts.Dir.
func NewExporter(opts Options, logger zerolog.Logger) *Exporter {
	if opts.Dir == "" {
		opts.Dir = "output"
	}
	return &Exporter{opts: opts, logger: logging.WithOperation(logger, "export")}
}

// Export writes every enabled artifact. A failing artifact does not stop the
// others; all failures are joined into the returned error.
func (e *Exporter) Export(run *analysis.Run) (Artifacts, error) {
	var (
		out  Artifacts
		errs []error
	)

	if err := os.MkdirAll(e.opts.Dir, 0755); err != nil {
		return out, apperrors.NewExportError("dir", e.opts.Dir, err)
	}

	if e.opts.Spreadsheet {
		path := filepath.Join(e.opts.Dir, WorkbookName(run.Company.ID))
		if err := WriteWorkbook(run, path); err != nil {
			errs = append(errs, apperrors.NewExportError("xlsx", path, err))
		} else {
			out.Workbook = path
		}
	}

	if e.opts.Charts || e.opts.PDF {
		charts, err := RenderSignificanceCharts(run, filepath.Join(e.opts.Dir, "charts"))
		if err != nil {
			errs = append(errs, apperrors.NewExportError("png", e.opts.Dir, err))
		}
		out.Charts = charts
	}

	if e.opts.PDF {
		path := filepath.Join(e.opts.Dir, PDFName(run.Company.ID))
		if err := WritePDF(run, out.Charts, path); err != nil {
			errs = append(errs, apperrors.NewExportError("pdf", path, err))
		} else {
			out.PDF = path
		}
	}

	event := e.logger.Info()
	if len(errs) > 0 {
		event = e.logger.Error().Err(errors.Join(errs...))
	}
	event.Str("run_id", run.ID).
		Str("workbook", out.Workbook).
		Str("pdf", out.PDF).
		Int("charts", len(out.Charts)).
		Msg("Export finished")

	return out, errors.Join(errs...)
}

// WorkbookName returns the spreadsheet file name for a company.
func WorkbookName(companyID int64) string {
	return fmt.Sprintf("analysis_results_company_%d.xlsx", companyID)
}

// PDFName returns the document file name for a company.
func PDFName(companyID int64) string {
	return fmt.Sprintf("analysis_report_company_%d.pdf", companyID)
}

// cell converts a float for export, writing N/A for undefined values.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return v
}

func stat(v float64) string {
	return utils.FormatStat(v)
}
