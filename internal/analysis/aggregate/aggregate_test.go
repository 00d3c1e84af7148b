package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breach-analyzer/internal/models"
)

func ok(kind models.TestKind, stat, p float64) models.TestOutcome {
	return models.TestOutcome{Kind: kind, Statistic: stat, PValue: p, Significant: models.IsSignificant(p)}
}

func failed(kind models.TestKind) models.TestOutcome {
	return models.TestOutcome{Kind: kind, Statistic: math.NaN(), PValue: math.NaN(), Error: "error performing test: degenerate"}
}

func result(day int, outcomes ...models.TestOutcome) models.WindowResult {
	d := time.Date(2020, 1, day, 0, 0, 0, 0, time.UTC)
	r := models.WindowResult{
		Window:   models.DisclosureWindow{Event: models.DisclosureEvent{CompanyID: 1, Date: d}, Center: d},
		Outcomes: map[models.TestKind]models.TestOutcome{},
	}
	for _, o := range outcomes {
		r.Outcomes[o.Kind] = o
	}
	return r
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.TotalDisclosures)
	for _, kind := range models.TestKinds {
		assert.Equal(t, 0, summary.SignificantCounts[kind])
		assert.True(t, math.IsNaN(summary.Averages[kind]))
	}
	assert.Empty(t, Interpret(nil))
}

func TestSummarize_FiltersFailedSlots(t *testing.T) {
	results := []models.WindowResult{
		result(1,
			ok(models.PairedT, 2.0, 0.01),
			ok(models.SignedRank, 3, 0.2),
			ok(models.Pearson, 0.95, 0.001),
			ok(models.RankSum, 20, 0.05),
		),
		result(2,
			failed(models.PairedT),
			ok(models.SignedRank, 5, 0.03),
			ok(models.Pearson, -0.5, 0.3),
			failed(models.RankSum),
		),
		result(3,
			ok(models.PairedT, -1.0, 0.4),
			failed(models.SignedRank),
			failed(models.Pearson),
		),
	}

	s := Summarize(results)
	assert.Equal(t, 3, s.TotalDisclosures)

	assert.Equal(t, 1, s.SignificantCounts[models.PairedT])
	assert.Equal(t, 1, s.SignificantCounts[models.SignedRank])
	assert.Equal(t, 1, s.SignificantCounts[models.Pearson])
	assert.Equal(t, 0, s.SignificantCounts[models.RankSum], "p = 0.05 is not significant")

	assert.InDelta(t, 0.5, s.Averages[models.PairedT], 1e-12)
	assert.InDelta(t, 4.0, s.Averages[models.SignedRank], 1e-12)
	assert.InDelta(t, 0.225, s.Averages[models.Pearson], 1e-12)
	assert.InDelta(t, 20.0, s.Averages[models.RankSum], 1e-12)
}

func TestInterpret(t *testing.T) {
	results := []models.WindowResult{
		result(1, ok(models.PairedT, 2.0, 0.01), ok(models.Pearson, 0.95, 0.001)),
		result(2, failed(models.PairedT), ok(models.Pearson, -0.2, 0.6)),
		result(3, failed(models.Pearson)),
	}

	interps := Interpret(results)
	require.Len(t, interps, 3)

	assert.Equal(t, "Statistically significant", interps[0].Classification[models.PairedT])
	assert.Equal(t, "Statistically significant", interps[0].Classification[models.Pearson])
	assert.Equal(t, SignPositive, interps[0].CorrelationSign)

	assert.Equal(t, "Not statistically significant", interps[1].Classification[models.PairedT])
	assert.Equal(t, SignNegative, interps[1].CorrelationSign)

	assert.Equal(t, SignUnavailable, interps[2].CorrelationSign)
	assert.Equal(t, "Not statistically significant", interps[2].Classification[models.RankSum])
	assert.Equal(t, 3, interps[2].DisclosureDate.Day())
}

// Property: counts never exceed the total and averages lie within the range
// of the computed statistics.
func TestProperty_SummaryBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("counts bounded and averages within range", prop.ForAll(
		func(stats []float64, pvals []float64, failMask []bool) bool {
			n := len(stats)
			if len(pvals) < n {
				n = len(pvals)
			}
			if len(failMask) < n {
				n = len(failMask)
			}

			results := make([]models.WindowResult, n)
			lo, hi := math.Inf(1), math.Inf(-1)
			for i := 0; i < n; i++ {
				o := ok(models.PairedT, stats[i], pvals[i])
				if failMask[i] {
					o = failed(models.PairedT)
				} else {
					lo, hi = math.Min(lo, stats[i]), math.Max(hi, stats[i])
				}
				results[i] = result(1+i%28, o)
			}

			s := Summarize(results)
			if s.TotalDisclosures != n {
				return false
			}
			for _, kind := range models.TestKinds {
				if s.SignificantCounts[kind] < 0 || s.SignificantCounts[kind] > n {
					return false
				}
			}
			avg := s.Averages[models.PairedT]
			if math.IsInf(lo, 1) {
				return math.IsNaN(avg)
			}
			return avg >= lo-1e-9 && avg <= hi+1e-9
		},
		gen.SliceOf(gen.Float64Range(-10, 10)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
