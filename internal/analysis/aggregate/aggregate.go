// Package aggregate folds per-window test outcomes into a cross-disclosure summary.
package aggregate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"breach-analyzer/internal/analysis/stats"
	"breach-analyzer/internal/models"
)

// Correlation sign labels.
const (
	SignPositive    = "Positive"
	SignNegative    = "Negative"
	SignUnavailable = "N/A"
)

// Summarize computes significance counts and statistic averages over results.
// Failed outcomes count toward TotalDisclosures only: they are never
// significant and are left out of the averages. A test with no computed
// statistic averages to NaN.
func Summarize(results []models.WindowResult) models.AnalysisSummary {
	summary := models.AnalysisSummary{
		TotalDisclosures:  len(results),
		SignificantCounts: make(map[models.TestKind]int, len(models.TestKinds)),
		Averages:          make(map[models.TestKind]float64, len(models.TestKinds)),
	}

	values := make(map[models.TestKind][]float64, len(models.TestKinds))

	for _, r := range results {
		for _, kind := range models.TestKinds {
			o := r.Outcome(kind)
			if o.Failed() {
				continue
			}
			if models.IsSignificant(o.PValue) {
				summary.SignificantCounts[kind]++
			}
			if !math.IsNaN(o.Statistic) && !math.IsInf(o.Statistic, 0) {
				values[kind] = append(values[kind], o.Statistic)
			}
		}
	}

	for _, kind := range models.TestKinds {
		if _, ok := summary.SignificantCounts[kind]; !ok {
			summary.SignificantCounts[kind] = 0
		}
		if len(values[kind]) == 0 {
			summary.Averages[kind] = math.NaN()
			continue
		}
		summary.Averages[kind] = stat.Mean(values[kind], nil)
	}

	return summary
}

// Interpret classifies each window's outcomes in input order.
func Interpret(results []models.WindowResult) []models.Interpretation {
	out := make([]models.Interpretation, 0, len(results))
	for _, r := range results {
		interp := models.Interpretation{
			DisclosureDate: r.Window.Event.Date,
			CenterDate:     r.Window.Center,
			Classification: make(map[models.TestKind]string, len(models.TestKinds)),
		}
		for _, kind := range models.TestKinds {
			interp.Classification[kind] = stats.Classification(r.Outcome(kind))
		}
		interp.CorrelationSign = CorrelationSign(r.Outcome(models.Pearson))
		out = append(out, interp)
	}
	return out
}

// CorrelationSign labels a correlation outcome by the sign of its coefficient.
func CorrelationSign(o models.TestOutcome) string {
	if o.Failed() || math.IsNaN(o.Statistic) {
		return SignUnavailable
	}
	if stats.DirectionOf(o.Statistic) == stats.DirectionPositive {
		return SignPositive
	}
	return SignNegative
}

// Analyze returns the summary and the per-window interpretations together.
func Analyze(results []models.WindowResult) (models.AnalysisSummary, []models.Interpretation) {
	return Summarize(results), Interpret(results)
}
