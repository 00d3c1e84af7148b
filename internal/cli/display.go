package cli

import (
	"fmt"
	"strconv"

	"breach-analyzer/internal/analysis"
	"breach-analyzer/internal/models"
	"breach-analyzer/internal/store"
	"breach-analyzer/pkg/utils"
)

func printCompanies(output *Output, companies []models.Company) {
	if len(companies) == 0 {
		output.Warning("No company information available.")
		return
	}

	output.Heading("Company Information")
	table := NewTable(output, "ID", "Name", "Stock Symbol")
	for _, c := range companies {
		table.AddRow(strconv.FormatInt(c.ID, 10), TruncateString(utils.CleanCompanyName(c.Name), 40), c.Symbol)
	}
	table.Render()
}

func printCompanyCard(output *Output, c models.Company) {
	output.Println()
	output.Box("Company Information", []string{
		fmt.Sprintf("ID:           %d", c.ID),
		fmt.Sprintf("Name:         %s", c.Name),
		fmt.Sprintf("Location:     %s", c.Location),
		fmt.Sprintf("Stock Symbol: %s", c.Symbol),
	})
}

func printDisclosures(output *Output, events []models.DisclosureEvent) {
	output.Heading(fmt.Sprintf("Disclosure Dates: %d", len(events)))
	for i, e := range events {
		output.Println(FormatDisclosureLine(i+1, e.Date))
	}
}

func printAvailability(output *Output, run *analysis.Run) {
	output.Heading("Stock data availability for each date")
	for _, e := range run.Disclosures {
		output.Printf("Date: %s; Stock Data Available: %s\n",
			e.Date.Format(models.DateLayout), output.Availability(run.Availability[store.DateKey(e.Date)]))
	}
}

func printWindow(output *Output, r models.WindowResult) {
	title := "Surrounding Data for " + r.Window.Event.Date.Format(models.DateLayout)
	if r.Window.Substituted {
		title += ", analyzed at " + FormatCenter(r.Window)
	}
	output.Heading(title)

	data := NewTable(output, models.MarketColumns...)
	for _, row := range r.Window.Rows {
		data.AddRow(row.Values()...)
	}
	data.Render()

	for _, kind := range models.TestKinds {
		o := r.Outcome(kind)
		output.Println()
		output.Bold(" %s", testTitle(kind))
		table := NewTable(output, "Metric", "Value")
		table.AddRow(kind.StatisticLabel(), FormatMetric(o.Statistic))
		table.AddRow("P-value", FormatMetric(o.PValue))
		table.AddRow("Significant", output.Significance(o.Significant))
		table.AddRow("Interpretation", o.Interpretation)
		if o.Failed() {
			table.AddRow("Error", output.Red(o.Error))
		}
		table.Render()
	}

	output.Println()
	output.Bold(" Additional Insights")
	insights := NewTable(output, "Metric", "Value")
	insights.AddRow("Observations", strconv.Itoa(r.Insights.Observations))
	insights.AddRow("Stock Price Volatility (Standard Deviation)", FormatMetric(r.Insights.StockVolatility))
	insights.AddRow("Index Volatility (Standard Deviation)", FormatMetric(r.Insights.IndexVolatility))
	insights.AddRow("Average Stock Volume", FormatMetric(r.Insights.AvgStockVolume))
	insights.AddRow("Average Index Volume", FormatMetric(r.Insights.AvgIndexVolume))
	insights.AddRow("Stock Price Change Mean", FormatMetric(r.Insights.MeanStockChange))
	insights.AddRow("Index Change Mean", FormatMetric(r.Insights.MeanIndexChange))
	insights.Render()
}

func testTitle(kind models.TestKind) string {
	switch kind {
	case models.PairedT:
		return "T-test Results"
	case models.SignedRank:
		return "Wilcoxon Signed-Rank Test Results"
	case models.Pearson:
		return "Correlation Analysis"
	case models.RankSum:
		return "Mann-Whitney U Test Results"
	}
	return kind.Label()
}

func printSummary(output *Output, run *analysis.Run) {
	s := run.Summary
	output.Heading("Summary of Analysis Results")
	output.Printf("Total disclosures analyzed: %d\n", s.TotalDisclosures)
	output.Printf("Significant t-tests: %s\n", utils.FormatRatio(s.SignificantCounts[models.PairedT], s.TotalDisclosures))
	output.Printf("Significant Wilcoxon tests: %s\n", utils.FormatRatio(s.SignificantCounts[models.SignedRank], s.TotalDisclosures))
	output.Printf("Significant correlations: %s\n", utils.FormatRatio(s.SignificantCounts[models.Pearson], s.TotalDisclosures))
	output.Printf("Significant Mann-Whitney U tests: %s\n", utils.FormatRatio(s.SignificantCounts[models.RankSum], s.TotalDisclosures))
	output.Printf("Average t-test statistic: %s\n", FormatMetric(s.Averages[models.PairedT]))
	output.Printf("Average Wilcoxon statistic: %s\n", FormatMetric(s.Averages[models.SignedRank]))
	output.Printf("Average correlation coefficient: %s\n", FormatMetric(s.Averages[models.Pearson]))
	output.Printf("Average Mann-Whitney U statistic: %s\n", FormatMetric(s.Averages[models.RankSum]))
}

func printInterpretations(output *Output, run *analysis.Run) {
	if len(run.Interpretations) == 0 {
		return
	}
	output.Heading("Detailed Interpretations")
	for _, in := range run.Interpretations {
		output.Println()
		output.Printf("Disclosure Date: %s\n", in.DisclosureDate.Format(models.DateLayout))
		if !in.CenterDate.Equal(in.DisclosureDate) {
			output.Printf("Center Date: %s\n", in.CenterDate.Format(models.DateLayout))
		}
		output.Printf("T-test: %s\n", in.Classification[models.PairedT])
		output.Printf("Wilcoxon: %s\n", in.Classification[models.SignedRank])
		output.Printf("Correlation: %s (%s)\n", in.Classification[models.Pearson], in.CorrelationSign)
		output.Printf("Mann-Whitney U: %s\n", in.Classification[models.RankSum])
	}
}

func printSkipped(output *Output, skipped []models.SkippedDisclosure) {
	if len(skipped) == 0 {
		return
	}
	output.Println()
	for _, s := range skipped {
		output.Warning("Skipped %s: %s", s.Date.Format(models.DateLayout), s.Reason)
	}
}

// printRun renders a completed run in the order the analysis produced it.
func printRun(output *Output, run *analysis.Run) {
	printAvailability(output, run)
	for _, r := range run.Results {
		printWindow(output, r)
	}
	printSkipped(output, run.Skipped)
	printSummary(output, run)
	printInterpretations(output, run)
	output.Println()
	output.Dim("Run %s finished in %s", run.ID, FormatDuration(run.FinishedAt.Sub(run.StartedAt)))
}
