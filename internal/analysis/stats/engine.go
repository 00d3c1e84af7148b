package stats

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/logging"
	"breach-analyzer/internal/models"
)

// DefaultTests returns the four tests in report order. The rank-sum slot uses method.
func DefaultTests(method RankSumMethod) []Test {
	return []Test{
		PairedTTest{},
		SignedRankTest{},
		PearsonTest{},
		NewMannWhitneyTest(method),
	}
}

// Engine prepares disclosure windows and runs each registered test on them.
type Engine struct {
	tests  []Test
	logger zerolog.Logger
}

// NewEngine creates an engine. With no tests given it uses DefaultTests(RankSumAuto).
func NewEngine(logger zerolog.Logger, tests ...Test) *Engine {
	if len(tests) == 0 {
		tests = DefaultTests(RankSumAuto)
	}
	return &Engine{
		tests:  tests,
		logger: logging.WithOperation(logger, "engine"),
	}
}

// Replace swaps the test registered for the same kind as t, or appends it.
func (e *Engine) Replace(t Test) {
	for i, existing := range e.tests {
		if existing.Kind() == t.Kind() {
			e.tests[i] = t
			return
		}
	}
	e.tests = append(e.tests, t)
}

// Tests returns the registered tests in order.
func (e *Engine) Tests() []Test {
	return e.tests
}

// Analyze prepares a window and runs every test on it. Preparation failures
// return a DataError and no result. A failing test is recorded in its
// outcome's Error field and does not affect the others.
func (e *Engine) Analyze(window models.DisclosureWindow) (models.WindowResult, error) {
	prepared, err := Prepare(window)
	if err != nil {
		return models.WindowResult{}, err
	}

	stock, index := Changes(prepared)
	result := models.WindowResult{
		Window:   window,
		Prepared: prepared,
		Outcomes: make(map[models.TestKind]models.TestOutcome, len(e.tests)),
		Insights: ComputeInsights(prepared),
	}

	for _, t := range e.tests {
		result.Outcomes[t.Kind()] = e.run(t, window, stock, index)
	}

	e.logger.Debug().
		Str("center", window.Center.Format(models.DateLayout)).
		Int("rows", len(window.Rows)).
		Int("prepared", len(prepared)).
		Msg("Window analyzed")

	return result, nil
}

func (e *Engine) run(t Test, window models.DisclosureWindow, stock, index []float64) models.TestOutcome {
	kind := t.Kind()
	res, err := t.Run(stock, index)
	if err == nil && (math.IsNaN(res.Statistic) || math.IsNaN(res.PValue) || math.IsInf(res.PValue, 0)) {
		err = apperrors.NewTestError(kind.Label(), "result is not a finite number")
	}
	if err != nil {
		logging.LogTestFailure(e.logger, kind.Label(), window.Center, err)
		return models.TestOutcome{
			Kind:           kind,
			Statistic:      math.NaN(),
			PValue:         math.NaN(),
			Interpretation: FailureNarrative(kind),
			Error:          err.Error(),
		}
	}

	significant := models.IsSignificant(res.PValue)
	dir := DirectionNone
	if kind == models.Pearson {
		dir = DirectionOf(res.Statistic)
	}
	return models.TestOutcome{
		Kind:           kind,
		Statistic:      res.Statistic,
		PValue:         res.PValue,
		Significant:    significant,
		Interpretation: Narrative(kind, significant, dir),
	}
}

// ComputeInsights returns descriptive metrics of prepared rows. Volatility is
// the sample standard deviation of each change series.
func ComputeInsights(rows []models.PreparedRow) models.Insights {
	stock, index := Changes(rows)
	stockVol := make([]float64, len(rows))
	indexVol := make([]float64, len(rows))
	for i, r := range rows {
		stockVol[i] = r.StockVolume
		indexVol[i] = r.IndexVolume
	}

	return models.Insights{
		Observations:    len(rows),
		StockVolatility: stdDev(stock),
		IndexVolatility: stdDev(index),
		AvgStockVolume:  mean(stockVol),
		AvgIndexVolume:  mean(indexVol),
		MeanStockChange: mean(stock),
		MeanIndexChange: mean(index),
	}
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

func stdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}
