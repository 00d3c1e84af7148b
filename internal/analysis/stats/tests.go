package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
)

// Result is a computed test statistic and its two-sided p-value.
type Result struct {
	Statistic float64
	PValue    float64
}

// Test runs one statistical test on the paired stock and index change series.
// A degenerate input yields a TestError; the other tests are unaffected.
type Test interface {
	Kind() models.TestKind
	Run(stock, index []float64) (Result, error)
}

// PairedTTest tests whether the mean of the paired differences is zero.
type PairedTTest struct{}

func (PairedTTest) Kind() models.TestKind { return models.PairedT }

func (PairedTTest) Run(stock, index []float64) (Result, error) {
	if err := checkPaired("t-test", stock, index); err != nil {
		return Result{}, err
	}
	n := len(stock)
	if n < 2 {
		return Result{}, apperrors.NewTestError("t-test", "at least 2 paired observations are required")
	}

	diffs := make([]float64, n)
	for i := range stock {
		diffs[i] = stock[i] - index[i]
	}
	mean, sd := stat.MeanStdDev(diffs, nil)
	if sd == 0 || math.IsNaN(sd) {
		return Result{}, apperrors.NewTestError("t-test", "paired differences have zero variance")
	}

	t := mean / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	return Result{Statistic: t, PValue: twoSided(dist.Survival(math.Abs(t)))}, nil
}

// SignedRankTest is the Wilcoxon signed-rank test. Zero differences are
// discarded before ranking. The exact null distribution is used for up to
// 50 untied differences, the tie-corrected normal approximation otherwise.
type SignedRankTest struct{}

// exactSignedRankLimit is the largest sample for the exact distribution.
const exactSignedRankLimit = 50

func (SignedRankTest) Kind() models.TestKind { return models.SignedRank }

func (SignedRankTest) Run(stock, index []float64) (Result, error) {
	if err := checkPaired("Wilcoxon signed-rank test", stock, index); err != nil {
		return Result{}, err
	}

	var diffs []float64
	for i := range stock {
		if d := stock[i] - index[i]; d != 0 {
			diffs = append(diffs, d)
		}
	}
	n := len(diffs)
	if n == 0 {
		return Result{}, apperrors.NewTestError("Wilcoxon signed-rank test", "all paired differences are zero")
	}

	abs := make([]float64, n)
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	ranks, tieTerm := averageRanks(abs)

	var wPlus, wMinus float64
	for i, d := range diffs {
		if d > 0 {
			wPlus += ranks[i]
		} else {
			wMinus += ranks[i]
		}
	}
	w := math.Min(wPlus, wMinus)

	if n <= exactSignedRankLimit && tieTerm == 0 {
		return Result{Statistic: w, PValue: signedRankExactP(n, w)}, nil
	}

	nf := float64(n)
	mean := nf * (nf + 1) / 4
	variance := nf*(nf+1)*(2*nf+1)/24 - tieTerm/48
	if variance <= 0 {
		return Result{}, apperrors.NewTestError("Wilcoxon signed-rank test", "rank variance is zero")
	}
	z := (w - mean) / math.Sqrt(variance)
	return Result{Statistic: w, PValue: twoSided(distuv.UnitNormal.Survival(math.Abs(z)))}, nil
}

// signedRankExactP returns 2·P(W ≤ w) under the null distribution of the
// signed-rank statistic for n untied differences.
func signedRankExactP(n int, w float64) float64 {
	maxSum := n * (n + 1) / 2
	counts := make([]float64, maxSum+1)
	counts[0] = 1
	for k := 1; k <= n; k++ {
		for s := maxSum; s >= k; s-- {
			counts[s] += counts[s-k]
		}
	}

	total := math.Pow(2, float64(n))
	var cum float64
	for s := 0; s <= int(math.Floor(w)) && s <= maxSum; s++ {
		cum += counts[s]
	}
	return math.Min(1, 2*cum/total)
}

// PearsonTest computes the Pearson correlation coefficient and the p-value
// of the hypothesis that it is zero.
type PearsonTest struct{}

func (PearsonTest) Kind() models.TestKind { return models.Pearson }

func (PearsonTest) Run(stock, index []float64) (Result, error) {
	if err := checkPaired("correlation", stock, index); err != nil {
		return Result{}, err
	}
	n := len(stock)
	if n < 2 {
		return Result{}, apperrors.NewTestError("correlation", "at least 2 paired observations are required")
	}
	if stat.Variance(stock, nil) == 0 || stat.Variance(index, nil) == 0 {
		return Result{}, apperrors.NewTestError("correlation", "an input series is constant")
	}

	r := stat.Correlation(stock, index, nil)
	r = math.Max(-1, math.Min(1, r))

	switch {
	case n == 2:
		return Result{Statistic: r, PValue: 1}, nil
	case math.Abs(r) == 1:
		return Result{Statistic: r, PValue: 0}, nil
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return Result{Statistic: r, PValue: twoSided(dist.Survival(math.Abs(t)))}, nil
}

func checkPaired(name string, stock, index []float64) error {
	if len(stock) != len(index) {
		return apperrors.NewTestError(name, "series must have the same length")
	}
	return nil
}

func twoSided(sf float64) float64 {
	return math.Min(1, 2*sf)
}

// averageRanks ranks values from 1, giving tied values the mean of their
// ranks. It also returns the tie term Σ(t³−t) over tie groups.
func averageRanks(values []float64) ([]float64, float64) {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, n)
	var tieTerm float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		if t := float64(j - i + 1); t > 1 {
			tieTerm += t*t*t - t
		}
		i = j + 1
	}
	return ranks, tieTerm
}
