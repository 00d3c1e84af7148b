package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"breach-analyzer/internal/analysis"
	"breach-analyzer/internal/models"
	"breach-analyzer/pkg/utils"
)

const summarySheet = "Summary"

// WriteWorkbook writes a Summary sheet followed by a Data_<date> and a
// Results_<date> sheet per analyzed window. Sheets are named by the window's
// center date.
func WriteWorkbook(run *analysis.Run, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSummarySheet(f, run); err != nil {
		return err
	}

	used := map[string]int{}
	for _, r := range run.Results {
		suffix := r.Window.Center.Format(models.DateLayout)
		if n := used[suffix]; n > 0 {
			suffix = fmt.Sprintf("%s_%d", suffix, n+1)
		}
		used[r.Window.Center.Format(models.DateLayout)]++

		if err := writeDataSheet(f, "Data_"+suffix, r); err != nil {
			return err
		}
		if err := writeResultsSheet(f, "Results_"+suffix, r); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, run *analysis.Run) error {
	rows := [][]interface{}{
		{"Company", utils.CleanCompanyName(run.Company.Name)},
		{"Symbol", run.Company.Symbol},
		{"Run ID", run.ID},
		{"Total disclosures analyzed", run.Summary.TotalDisclosures},
		{},
		{"Test", "Significant", "Average statistic"},
	}
	for _, kind := range models.TestKinds {
		rows = append(rows, []interface{}{
			kind.Label(),
			utils.FormatRatio(run.Summary.SignificantCounts[kind], run.Summary.TotalDisclosures),
			cell(run.Summary.Averages[kind]),
		})
	}

	rows = append(rows, []interface{}{}, []interface{}{
		"Disclosure Date", "Center Date", "T-test", "Wilcoxon", "Correlation", "Correlation Sign", "Mann-Whitney U",
	})
	for _, in := range run.Interpretations {
		rows = append(rows, []interface{}{
			in.DisclosureDate.Format(models.DateLayout),
			in.CenterDate.Format(models.DateLayout),
			in.Classification[models.PairedT],
			in.Classification[models.SignedRank],
			in.Classification[models.Pearson],
			in.CorrelationSign,
			in.Classification[models.RankSum],
		})
	}

	if len(run.Skipped) > 0 {
		rows = append(rows, []interface{}{}, []interface{}{"Skipped Disclosure", "Reason"})
		for _, s := range run.Skipped {
			rows = append(rows, []interface{}{s.Date.Format(models.DateLayout), s.Reason})
		}
	}

	return writeRows(f, summarySheet, rows)
}

func writeDataSheet(f *excelize.File, sheet string, r models.WindowResult) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := make([]interface{}, len(models.MarketColumns))
	for i, c := range models.MarketColumns {
		header[i] = c
	}
	rows := [][]interface{}{header}
	for _, row := range r.Window.Rows {
		values := row.Values()
		line := make([]interface{}, len(values))
		for i, v := range values {
			line[i] = v
		}
		rows = append(rows, line)
	}
	return writeRows(f, sheet, rows)
}

func writeResultsSheet(f *excelize.File, sheet string, r models.WindowResult) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Disclosure Date", r.Window.Event.Date.Format(models.DateLayout)},
		{"Center Date", r.Window.Center.Format(models.DateLayout)},
		{"Observations", r.Insights.Observations},
		{},
		{"Test", "Statistic", "P-value", "Significant", "Interpretation", "Error"},
	}
	for _, kind := range models.TestKinds {
		o := r.Outcome(kind)
		rows = append(rows, []interface{}{
			kind.Label(), cell(o.Statistic), cell(o.PValue), utils.YesNo(o.Significant), o.Interpretation, o.Error,
		})
	}

	rows = append(rows, []interface{}{},
		[]interface{}{"Stock Price Volatility", cell(r.Insights.StockVolatility)},
		[]interface{}{"Index Volatility", cell(r.Insights.IndexVolatility)},
		[]interface{}{"Average Stock Volume", cell(r.Insights.AvgStockVolume)},
		[]interface{}{"Average Index Volume", cell(r.Insights.AvgIndexVolume)},
		[]interface{}{"Stock Price Change Mean", cell(r.Insights.MeanStockChange)},
		[]interface{}{"Index Change Mean", cell(r.Insights.MeanIndexChange)},
	)
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		start, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, start, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
