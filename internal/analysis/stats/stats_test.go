package stats

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
)

func TestNormalizeVolume(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.3M", 12300000.0},
		{"1.1B", 1100000000.0},
		{"2500", 2500},
		{" 0.5M ", 500000},
		{"42.75", 42.75},
	}
	for _, tt := range tests {
		got, err := NormalizeVolume(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"12.3K", "abc", "1.2MB", "M"} {
		_, err := NormalizeVolume(bad)
		assert.Error(t, err, bad)
	}
}

func window(rows ...models.MarketRow) models.DisclosureWindow {
	center := time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC)
	return models.DisclosureWindow{
		Event:  models.DisclosureEvent{CompanyID: 1, Date: center},
		Center: center,
		Rows:   rows,
	}
}

func row(day int, so, sc, sv, io, ic, iv string) models.MarketRow {
	return models.MarketRow{
		Date:      time.Date(2020, 3, day, 0, 0, 0, 0, time.UTC),
		StockOpen: so, StockClose: sc, StockVolume: sv,
		IndexOpen: io, IndexClose: ic, IndexVolume: iv,
	}
}

func TestPrepare(t *testing.T) {
	w := window(
		row(9, "10", "11.5", "1.2M", "100", "99", "2B"),
		row(10, "11.5", "", "1.0M", "99", "101", "2B"),
		row(11, "12", "11", "900", "101", "102", "1.5B"),
	)

	rows, err := Prepare(w)
	require.NoError(t, err)
	require.Len(t, rows, 2, "row with missing close is dropped")

	assert.Equal(t, 1.5, rows[0].StockChange)
	assert.Equal(t, -1.0, rows[0].IndexChange)
	assert.Equal(t, 1200000.0, rows[0].StockVolume)
	assert.Equal(t, 2e9, rows[0].IndexVolume)
	assert.Equal(t, -1.0, rows[1].StockChange)
	assert.Equal(t, 900.0, rows[1].StockVolume)
}

func TestPrepare_CoercionFailureIsDataError(t *testing.T) {
	w := window(
		row(9, "10", "11", "1M", "100", "101", "2B"),
		row(10, "ten", "11", "1M", "100", "101", "2B"),
	)
	_, err := Prepare(w)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDataShape))

	var dataErr *apperrors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "Stock Open", dataErr.Column)

	_, err = Prepare(window(row(9, "10", "11", "3K", "100", "101", "2B")))
	assert.True(t, errors.Is(err, apperrors.ErrDataShape))
}

func TestPairedTTest(t *testing.T) {
	res, err := PairedTTest{}.Run([]float64{1, 2, 3, 4, 5}, []float64{0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 4.242640687, res.Statistic, 1e-9)
	assert.InDelta(t, 0.0132356, res.PValue, 1e-6)

	_, err = PairedTTest{}.Run([]float64{1}, []float64{2})
	assert.True(t, errors.Is(err, apperrors.ErrTestComputation))
}

func TestSignedRankTest(t *testing.T) {
	res, err := SignedRankTest{}.Run([]float64{1, 2, 3, 4, 5}, []float64{0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)
	assert.InDelta(t, 0.0625, res.PValue, 1e-12)

	// Ties in |d| force the normal approximation.
	a := []float64{0.5, -1.2, 2.3, 0.1, -0.4, 1.7, -2.2, 0.9}
	b := []float64{0.4, -1.0, 2.0, 0.3, -0.5, 1.5, -2.0, 0.6}
	res, err = SignedRankTest{}.Run(a, b)
	require.NoError(t, err)
	assert.Equal(t, 14.5, res.Statistic)
	assert.InDelta(t, 0.6232117, res.PValue, 1e-6)
}

func TestPearsonTest(t *testing.T) {
	a := []float64{0.5, -1.2, 2.3, 0.1, -0.4, 1.7, -2.2, 0.9}
	b := []float64{0.4, -1.0, 2.0, 0.3, -0.5, 1.5, -2.0, 0.6}
	res, err := PearsonTest{}.Run(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.99544298, res.Statistic, 1e-7)
	assert.InDelta(t, 2.35775e-7, res.PValue, 1e-10)

	res, err = PearsonTest{}.Run([]float64{1, 2}, []float64{3, 5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Statistic, 1e-12)
	assert.Equal(t, 1.0, res.PValue)

	res, err = PearsonTest{}.Run([]float64{1, 2, 3}, []float64{-2, -4, -6})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.Statistic, 1e-12)
	assert.InDelta(t, 0.0, res.PValue, 1e-9)
}

func TestMannWhitneyTest(t *testing.T) {
	res, err := NewMannWhitneyTest(RankSumAuto).Run([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Statistic)
	assert.InDelta(t, 0.1, res.PValue, 1e-12)

	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	y := []float64{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	res, err = NewMannWhitneyTest(RankSumAuto).Run(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 0.00018267, res.PValue, 1e-7)

	a := []float64{0.5, -1.2, 2.3, 0.1, -0.4, 1.7, -2.2, 0.9}
	b := []float64{0.4, -1.0, 2.0, 0.3, -0.5, 1.5, -2.0, 0.6}
	res, err = NewMannWhitneyTest(RankSumAuto).Run(a, b)
	require.NoError(t, err)
	assert.Equal(t, 33.0, res.Statistic)
	assert.InDelta(t, 0.95912976, res.PValue, 1e-7)

	_, err = NewMannWhitneyTest(RankSumAsymptotic).Run([]float64{1, 1}, []float64{1, 1})
	assert.True(t, errors.Is(err, apperrors.ErrTestComputation))

	_, err = NewMannWhitneyTest(RankSumAuto).Run(nil, []float64{1})
	assert.Error(t, err)
}

func TestParseRankSumMethod(t *testing.T) {
	m, err := ParseRankSumMethod("Exact")
	require.NoError(t, err)
	assert.Equal(t, RankSumExact, m)

	m, err = ParseRankSumMethod("")
	require.NoError(t, err)
	assert.Equal(t, RankSumAuto, m)

	_, err = ParseRankSumMethod("permutation")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestSignificanceBoundary(t *testing.T) {
	assert.False(t, models.IsSignificant(0.05))
	assert.True(t, models.IsSignificant(0.0499999))
	assert.False(t, models.IsSignificant(math.NaN()))
}

func TestNarrative(t *testing.T) {
	assert.Equal(t,
		"The t-test result is statistically significant, indicating a significant difference between stock price change and index change.",
		Narrative(models.PairedT, true, DirectionNone))
	assert.Contains(t, Narrative(models.Pearson, true, DirectionNegative), "a negative relationship")
	assert.Contains(t, Narrative(models.Pearson, false, DirectionPositive), "no significant linear relationship")
	assert.Contains(t, Narrative(models.RankSum, false, DirectionNone), "Mann-Whitney U test result is not")
}

func TestEngine_ConstantIdenticalSeries(t *testing.T) {
	var rows []models.MarketRow
	for d := 3; d <= 17; d++ {
		rows = append(rows, row(d, "10", "11", "1M", "100", "101", "2B"))
	}

	engine := NewEngine(zerolog.Nop())
	result, err := engine.Analyze(window(rows...))
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 4)

	for _, kind := range []models.TestKind{models.PairedT, models.SignedRank, models.Pearson} {
		o := result.Outcome(kind)
		assert.True(t, o.Failed(), kind)
		assert.False(t, o.Significant, kind)
		assert.True(t, math.IsNaN(o.PValue), kind)
	}

	// All values tie: the tie-corrected variance is zero.
	assert.True(t, result.Outcome(models.RankSum).Failed())

	assert.Equal(t, 15, result.Insights.Observations)
	assert.Equal(t, 0.0, result.Insights.StockVolatility)
	assert.Equal(t, 1e6, result.Insights.AvgStockVolume)
	assert.Equal(t, 1.0, result.Insights.MeanIndexChange)
}

func TestEngine_StrongPositiveCorrelation(t *testing.T) {
	var rows []models.MarketRow
	changes := []float64{0.5, -1.2, 2.3, 0.1, -0.4, 1.7, -2.2, 0.9}
	index := []float64{0.4, -1.0, 2.0, 0.3, -0.5, 1.5, -2.0, 0.6}
	for i := range changes {
		rows = append(rows, models.MarketRow{
			Date:        time.Date(2020, 3, 6+i, 0, 0, 0, 0, time.UTC),
			StockOpen:   "100",
			StockClose:  formatFloat(100 + changes[i]),
			StockVolume: "1.5M",
			IndexOpen:   "1000",
			IndexClose:  formatFloat(1000 + index[i]),
			IndexVolume: "3B",
		})
	}

	result, err := NewEngine(zerolog.Nop()).Analyze(window(rows...))
	require.NoError(t, err)

	corr := result.Outcome(models.Pearson)
	assert.False(t, corr.Failed())
	assert.Greater(t, corr.Statistic, 0.9)
	assert.True(t, corr.Significant)
	assert.Contains(t, corr.Interpretation, "positive relationship")

	assert.False(t, result.Outcome(models.PairedT).Significant)
	assert.Equal(t, 1.5e6, result.Insights.AvgStockVolume)
}

func TestEngine_ReplaceRankSum(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	engine.Replace(NewMannWhitneyTest(RankSumAsymptotic))

	require.Len(t, engine.Tests(), 4)
	mw, ok := engine.Tests()[3].(*MannWhitneyTest)
	require.True(t, ok)
	assert.Equal(t, RankSumAsymptotic, mw.Method)
}

func TestEngine_DataErrorAbortsWindow(t *testing.T) {
	_, err := NewEngine(zerolog.Nop()).Analyze(window(row(9, "10", "11", "12.3X", "100", "101", "2B")))
	assert.True(t, errors.Is(err, apperrors.ErrDataShape))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func TestPrepare_InfiniteValuesAreMissing(t *testing.T) {
	prepared, err := Prepare(window(
		row(9, "10", "11", "1M", "100", "101", "2B"),
		row(10, "10", "Inf", "1M", "100", "101", "2B"),
		row(11, "10", "12", "1M", "-inf", "101", "2B"),
	))
	require.NoError(t, err)
	require.Len(t, prepared, 1)
	assert.Equal(t, 9, prepared[0].Date.Day())
}

func TestEngine_InfiniteFieldLeavesOutcomesFinite(t *testing.T) {
	changes := []float64{0.5, -1.2, 2.3, 0.1, -0.4, 1.7, -2.2, 0.9}
	var rows []models.MarketRow
	for i, c := range changes {
		rows = append(rows, row(1+i, "100", formatFloat(100+c), "1M", "1000", formatFloat(1000+c/2), "2B"))
	}
	rows = append(rows, row(20, "100", "Inf", "1M", "1000", "1001", "2B"))

	result, err := NewEngine(zerolog.Nop()).Analyze(window(rows...))
	require.NoError(t, err)
	assert.Equal(t, len(changes), result.Insights.Observations)

	for _, kind := range models.TestKinds {
		o := result.Outcome(kind)
		if o.Failed() {
			continue
		}
		assert.False(t, math.IsNaN(o.Statistic), kind)
		assert.False(t, math.IsNaN(o.PValue) || math.IsInf(o.PValue, 0), kind)
	}
	assert.False(t, result.Outcome(models.Pearson).Failed())
}

// nanRankSum stands in for a rank-sum test whose computation degenerates.
type nanRankSum struct{}

func (nanRankSum) Kind() models.TestKind { return models.RankSum }

func (nanRankSum) Run(x, y []float64) (Result, error) {
	return Result{Statistic: math.NaN(), PValue: math.NaN()}, nil
}

func TestEngine_NonFiniteResultIsTestError(t *testing.T) {
	var rows []models.MarketRow
	for d := 3; d <= 10; d++ {
		rows = append(rows, row(d, "10", formatFloat(10+float64(d)/10), "1M", "100", formatFloat(100-float64(d)/7), "2B"))
	}
	engine := NewEngine(zerolog.Nop())
	engine.Replace(nanRankSum{})

	result, err := engine.Analyze(window(rows...))
	require.NoError(t, err)

	o := result.Outcome(models.RankSum)
	assert.True(t, o.Failed())
	assert.False(t, o.Significant)
	assert.Contains(t, o.Error, "not a finite number")
}
