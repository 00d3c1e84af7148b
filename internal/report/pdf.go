package report

import (
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"

	"breach-analyzer/internal/analysis"
	"breach-analyzer/internal/models"
	"breach-analyzer/pkg/utils"
)

const (
	pageWidth  = 190.0 // A4 width minus default margins, in mm
	lineHeight = 6.0
)

// WritePDF renders the run as a document: title, summary table, one
// narrative block per analyzed disclosure and the given significance charts.
func WritePDF(run *analysis.Run, charts []string, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Breach disclosure analysis: %s", run.Company.Symbol), false)
	pdf.SetAuthor("breach-analyzer", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pageWidth, 10, fmt.Sprintf("Breach Disclosure Analysis - %s (%s)",
		utils.CleanCompanyName(run.Company.Name), run.Company.Symbol), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(pageWidth, 5, fmt.Sprintf("Run %s, generated %s", run.ID, run.FinishedAt.Format("2006-01-02 15:04")),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)

	writeSummaryTable(pdf, run)
	writeNarratives(pdf, run)
	writeSkipped(pdf, run)
	writeCharts(pdf, charts)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.OutputFileAndClose(path)
}

func writeSummaryTable(pdf *fpdf.Fpdf, run *analysis.Run) {
	heading(pdf, "Summary of Analysis Results")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageWidth, lineHeight, fmt.Sprintf("Total disclosures analyzed: %d", run.Summary.TotalDisclosures), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	widths := []float64{60, 60, 70}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Test", "Significant", "Average statistic"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, kind := range models.TestKinds {
		pdf.CellFormat(widths[0], 7, kind.Label(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, utils.FormatRatio(run.Summary.SignificantCounts[kind], run.Summary.TotalDisclosures), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 7, stat(run.Summary.Averages[kind]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func writeNarratives(pdf *fpdf.Fpdf, run *analysis.Run) {
	if len(run.Results) == 0 {
		return
	}
	heading(pdf, "Detailed Interpretations")

	for i, r := range run.Results {
		in := run.Interpretations[i]
		pdf.SetFont("Helvetica", "B", 11)
		title := "Disclosure Date: " + in.DisclosureDate.Format(models.DateLayout)
		if r.Window.Substituted {
			title += fmt.Sprintf(" (analyzed at %s, +%d days)", in.CenterDate.Format(models.DateLayout), r.Window.OffsetDays())
		}
		pdf.CellFormat(pageWidth, lineHeight, title, "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		for _, kind := range models.TestKinds {
			o := r.Outcome(kind)
			line := fmt.Sprintf("%s: %s (statistic %s, p-value %s)", kind.Label(), in.Classification[kind], stat(o.Statistic), stat(o.PValue))
			if kind == models.Pearson {
				line += ", sign " + in.CorrelationSign
			}
			pdf.MultiCell(pageWidth, 5, line, "", "L", false)
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(pageWidth, 5, o.Interpretation, "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.MultiCell(pageWidth, 5, fmt.Sprintf("Volatility: stock %s, index %s. Average volume: stock %s, index %s.",
			stat(r.Insights.StockVolatility), stat(r.Insights.IndexVolatility),
			utils.FormatVolume(r.Insights.AvgStockVolume), utils.FormatVolume(r.Insights.AvgIndexVolume)), "", "L", false)
		pdf.Ln(3)
	}
}

func writeSkipped(pdf *fpdf.Fpdf, run *analysis.Run) {
	if len(run.Skipped) == 0 {
		return
	}
	heading(pdf, "Skipped Disclosures")
	pdf.SetFont("Helvetica", "", 10)
	for _, s := range run.Skipped {
		pdf.MultiCell(pageWidth, 5, s.Date.Format(models.DateLayout)+": "+s.Reason, "", "L", false)
	}
	pdf.Ln(3)
}

func writeCharts(pdf *fpdf.Fpdf, charts []string) {
	if len(charts) == 0 {
		return
	}
	pdf.AddPage()
	heading(pdf, "Significance Over Time")
	for _, path := range charts {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		if pdf.GetY()+95 > 280 {
			pdf.AddPage()
		}
		pdf.ImageOptions(path, 10, pdf.GetY(), pageWidth, 0, true, opts, 0, "")
		pdf.Ln(2)
	}
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(pageWidth, 8, text, "", 1, "L", false, 0, "")
}
