package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
)

// RankSumMethod selects how the Mann-Whitney U p-value is computed.
type RankSumMethod string

const (
	RankSumAuto       RankSumMethod = "auto"
	RankSumExact      RankSumMethod = "exact"
	RankSumAsymptotic RankSumMethod = "asymptotic"
)

// exactRankSumLimit is the sample size up to which auto uses the exact distribution.
const exactRankSumLimit = 8

// ParseRankSumMethod validates a configured method name.
func ParseRankSumMethod(s string) (RankSumMethod, error) {
	switch m := RankSumMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return RankSumAuto, nil
	case RankSumAuto, RankSumExact, RankSumAsymptotic:
		return m, nil
	}
	return "", apperrors.NewValidationError("rank_sum_method", s, "must be auto, exact or asymptotic")
}

// MannWhitneyTest treats the stock and index changes as two independent
// samples and reports the U statistic of the stock sample with a two-sided
// p-value. The asymptotic p-value is tie-corrected with continuity correction.
type MannWhitneyTest struct {
	Method RankSumMethod
}

// NewMannWhitneyTest creates a rank-sum test using method.
func NewMannWhitneyTest(method RankSumMethod) *MannWhitneyTest {
	if method == "" {
		method = RankSumAuto
	}
	return &MannWhitneyTest{Method: method}
}

func (t *MannWhitneyTest) Kind() models.TestKind { return models.RankSum }

func (t *MannWhitneyTest) Run(x, y []float64) (Result, error) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return Result{}, apperrors.NewTestError("Mann-Whitney U test", "both samples must be non-empty")
	}

	combined := make([]float64, 0, n1+n2)
	combined = append(combined, x...)
	combined = append(combined, y...)
	ranks, tieTerm := averageRanks(combined)

	var r1 float64
	for _, r := range ranks[:n1] {
		r1 += r
	}
	f1, f2 := float64(n1), float64(n2)
	u1 := r1 - f1*(f1+1)/2
	u2 := f1*f2 - u1
	u := math.Max(u1, u2)

	method := t.Method
	if method == RankSumAuto || method == "" {
		method = RankSumExact
		if (n1 > exactRankSumLimit && n2 > exactRankSumLimit) || tieTerm > 0 {
			method = RankSumAsymptotic
		}
	}

	switch method {
	case RankSumExact:
		return Result{Statistic: u1, PValue: math.Min(1, 2*rankSumExactSF(n1, n2, u))}, nil
	case RankSumAsymptotic:
		n := f1 + f2
		sigma := math.Sqrt(f1 * f2 / 12 * ((n + 1) - tieTerm/(n*(n-1))))
		if sigma == 0 || math.IsNaN(sigma) {
			return Result{}, apperrors.NewTestError("Mann-Whitney U test", "rank variance is zero")
		}
		z := (u - f1*f2/2 - 0.5) / sigma
		return Result{Statistic: u1, PValue: twoSided(distuv.UnitNormal.Survival(z))}, nil
	}
	return Result{}, apperrors.NewTestError("Mann-Whitney U test", fmt.Sprintf("unknown method %q", t.Method))
}

// rankSumExactSF returns P(U ≥ u) under the null distribution for sample
// sizes n1 and n2 without ties. The frequencies of U are the coefficients of
// the Gaussian binomial coefficient [n1+n2 choose m]_q with m = min(n1, n2).
func rankSumExactSF(n1, n2 int, u float64) float64 {
	m, n := n1, n2
	if m > n {
		m, n = n, m
	}
	maxU := m * n

	freq := make([]float64, maxU+1)
	freq[0] = 1
	for k := 1; k <= m; k++ {
		// multiply by (1 - q^(n+k)), truncated at degree maxU
		shift := n + k
		for i := maxU - shift; i >= 0; i-- {
			freq[i+shift] -= freq[i]
		}
		// divide by (1 - q^k)
		for i := k; i <= maxU; i++ {
			freq[i] += freq[i-k]
		}
	}

	var total, tail float64
	start := int(math.Floor(u))
	for i, f := range freq {
		total += f
		if i >= start {
			tail += f
		}
	}
	if total == 0 {
		return 1
	}
	return tail / total
}
