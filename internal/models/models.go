// Package models provides domain models for the disclosure analyzer.
package models

import (
	"time"

	"breach-analyzer/pkg/utils"
)

// DateLayout is the calendar-day layout used for keys, queries and reports.
const DateLayout = "2006-01-02"

// Company is reference data for a listed company.
type Company struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Symbol   string `json:"symbol"`
}

// DisclosureEvent marks the day a company disclosed a data breach.
type DisclosureEvent struct {
	CompanyID int64     `json:"company_id"`
	Date      time.Time `json:"date"`
}

// MarketRow holds the joined stock and index values for one company and day,
// exactly as stored. An empty string is a missing value. Volumes may carry an
// M or B magnitude suffix.
type MarketRow struct {
	Date        time.Time `json:"date"`
	StockOpen   string    `json:"stock_open"`
	StockClose  string    `json:"stock_close"`
	StockVolume string    `json:"stock_volume"`
	IndexOpen   string    `json:"index_open"`
	IndexClose  string    `json:"index_close"`
	IndexVolume string    `json:"index_volume"`
}

// MarketColumns names the raw market columns in display order.
var MarketColumns = []string{
	"Date", "Stock Open", "Stock Close", "Stock Volume",
	"Index Open", "Index Close", "Index Volume",
}

// Values returns the row's raw values in MarketColumns order.
func (r MarketRow) Values() []string {
	return []string{
		r.Date.Format(DateLayout),
		r.StockOpen, r.StockClose, r.StockVolume,
		r.IndexOpen, r.IndexClose, r.IndexVolume,
	}
}

// DisclosureWindow is the market data surrounding one disclosure.
// Center is the disclosure date, or the first later date with market data
// when the disclosure date itself has none.
type DisclosureWindow struct {
	Event       DisclosureEvent `json:"event"`
	Center      time.Time       `json:"center"`
	Substituted bool            `json:"substituted"`
	Rows        []MarketRow     `json:"rows"`
}

// OffsetDays returns how many days the center was moved past the disclosure date.
func (w DisclosureWindow) OffsetDays() int {
	return utils.DaysBetween(w.Event.Date, w.Center)
}

// PreparedRow is a cleaned market row with derived daily changes.
type PreparedRow struct {
	Date        time.Time `json:"date"`
	StockOpen   float64   `json:"stock_open"`
	StockClose  float64   `json:"stock_close"`
	StockVolume float64   `json:"stock_volume"`
	IndexOpen   float64   `json:"index_open"`
	IndexClose  float64   `json:"index_close"`
	IndexVolume float64   `json:"index_volume"`
	StockChange float64   `json:"stock_change"`
	IndexChange float64   `json:"index_change"`
}

// TestKind identifies one of the four statistical tests.
type TestKind string

const (
	PairedT    TestKind = "paired-t"
	SignedRank TestKind = "signed-rank"
	Pearson    TestKind = "pearson-correlation"
	RankSum    TestKind = "rank-sum"
)

// TestKinds lists the test kinds in report order.
var TestKinds = []TestKind{PairedT, SignedRank, Pearson, RankSum}

// Label returns the human-readable test name.
func (k TestKind) Label() string {
	switch k {
	case PairedT:
		return "T-test"
	case SignedRank:
		return "Wilcoxon"
	case Pearson:
		return "Correlation"
	case RankSum:
		return "Mann-Whitney U"
	default:
		return string(k)
	}
}

// StatisticLabel returns the name of the test's statistic.
func (k TestKind) StatisticLabel() string {
	switch k {
	case PairedT:
		return "T-statistic"
	case SignedRank:
		return "Wilcoxon statistic"
	case Pearson:
		return "Correlation coefficient"
	case RankSum:
		return "Mann-Whitney U statistic"
	default:
		return "Statistic"
	}
}

// Alpha is the fixed significance threshold.
const Alpha = 0.05

// IsSignificant reports whether p is below Alpha. NaN is never significant.
func IsSignificant(p float64) bool {
	return p < Alpha
}

// TestOutcome is the result of one test on one window. A non-empty Error
// marks a test that could not be computed; Statistic and PValue are NaN then.
type TestOutcome struct {
	Kind           TestKind `json:"kind"`
	Statistic      float64  `json:"statistic"`
	PValue         float64  `json:"p_value"`
	Significant    bool     `json:"significant"`
	Interpretation string   `json:"interpretation"`
	Error          string   `json:"error,omitempty"`
}

// Failed reports whether the test could not be computed.
func (o TestOutcome) Failed() bool {
	return o.Error != ""
}

// Insights are descriptive metrics computed alongside the tests.
type Insights struct {
	Observations    int     `json:"observations"`
	StockVolatility float64 `json:"stock_volatility"`
	IndexVolatility float64 `json:"index_volatility"`
	AvgStockVolume  float64 `json:"avg_stock_volume"`
	AvgIndexVolume  float64 `json:"avg_index_volume"`
	MeanStockChange float64 `json:"mean_stock_change"`
	MeanIndexChange float64 `json:"mean_index_change"`
}

// WindowResult bundles one analyzed window with its test outcomes.
type WindowResult struct {
	Window   DisclosureWindow         `json:"window"`
	Prepared []PreparedRow            `json:"prepared"`
	Outcomes map[TestKind]TestOutcome `json:"outcomes"`
	Insights Insights                 `json:"insights"`
}

// Outcome returns the outcome for kind, or a failed outcome when absent.
func (r WindowResult) Outcome(kind TestKind) TestOutcome {
	if o, ok := r.Outcomes[kind]; ok {
		return o
	}
	return TestOutcome{Kind: kind, Error: "not computed"}
}

// AnalysisSummary aggregates outcomes across all analyzed windows of a company.
// Averages are NaN for a test with no computed statistic.
type AnalysisSummary struct {
	TotalDisclosures  int                  `json:"total_disclosures"`
	SignificantCounts map[TestKind]int     `json:"significant_counts"`
	Averages          map[TestKind]float64 `json:"averages"`
}

// Interpretation classifies one window's outcomes for reporting.
type Interpretation struct {
	DisclosureDate  time.Time           `json:"disclosure_date"`
	CenterDate      time.Time           `json:"center_date"`
	Classification  map[TestKind]string `json:"classification"`
	CorrelationSign string              `json:"correlation_sign"`
}

// SkippedDisclosure records a disclosure that produced no analyzed window.
type SkippedDisclosure struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}
