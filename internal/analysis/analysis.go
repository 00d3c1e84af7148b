// Package analysis runs the disclosure-window pipeline for one company:
// window resolution, statistical testing and aggregation.
package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"breach-analyzer/internal/analysis/aggregate"
	"breach-analyzer/internal/analysis/stats"
	"breach-analyzer/internal/analysis/window"
	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/logging"
	"breach-analyzer/internal/models"
	"breach-analyzer/internal/store"
)

// WindowAnalyzer runs the statistical tests on one window.
type WindowAnalyzer interface {
	Analyze(window models.DisclosureWindow) (models.WindowResult, error)
}

// Options configures an Analyzer. Zero window and search sizes select the
// defaults; NoForwardSearch skips disclosure dates without market data
// instead of searching forward.
type Options struct {
	WindowDays      int
	SearchDays      int
	NoForwardSearch bool
	RankSumMethod   stats.RankSumMethod
}

// DefaultOptions returns the standard ±7 day window with a 7 day forward search.
func DefaultOptions() Options {
	return Options{
		WindowDays:    window.DefaultWindowDays,
		SearchDays:    window.DefaultSearchDays,
		RankSumMethod: stats.RankSumAuto,
	}
}

// Run is the complete result of analyzing one company.
type Run struct {
	ID              string                     `json:"id"`
	Company         models.Company             `json:"company"`
	Disclosures     []models.DisclosureEvent   `json:"disclosures"`
	Availability    map[string]bool            `json:"availability"`
	Results         []models.WindowResult      `json:"results"`
	Skipped         []models.SkippedDisclosure `json:"skipped"`
	Summary         models.AnalysisSummary     `json:"summary"`
	Interpretations []models.Interpretation    `json:"interpretations"`
	StartedAt       time.Time                  `json:"started_at"`
	FinishedAt      time.Time                  `json:"finished_at"`
}

// Analyzer orchestrates a single-company analysis run. Windows are processed
// sequentially; one window is built, tested and released before the next.
type Analyzer struct {
	store    store.DataStore
	resolver *window.Resolver
	engine   WindowAnalyzer
	logger   zerolog.Logger
}

// NewAnalyzer creates an analyzer over ds.
func NewAnalyzer(ds store.DataStore, opts Options, logger zerolog.Logger) *Analyzer {
	resolver := window.NewResolver(ds, window.Options{
		WindowDays:      opts.WindowDays,
		SearchDays:      opts.SearchDays,
		NoForwardSearch: opts.NoForwardSearch,
	}, logger)
	return &Analyzer{
		store:    ds,
		resolver: resolver,
		engine:   stats.NewEngine(logger, stats.DefaultTests(opts.RankSumMethod)...),
		logger:   logger,
	}
}

// WithEngine replaces the window analyzer.
func (a *Analyzer) WithEngine(engine WindowAnalyzer) *Analyzer {
	a.engine = engine
	return a
}

// Run analyzes every disclosure of companyID. An unknown company or one
// without disclosures returns ErrNotFound. Windows that fail preparation
// are skipped; only store connectivity failures and cancellation abort.
func (a *Analyzer) Run(ctx context.Context, companyID int64) (*Run, error) {
	if companyID <= 0 {
		return nil, apperrors.NewValidationError("company_id", companyID, "must be a positive integer")
	}

	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := logging.WithRunID(logging.WithCompany(a.logger, companyID), run.ID)
	logger.Info().Msg("Analysis started")
	ctx = logging.WithLogger(ctx, logger)

	company, err := a.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	run.Company = *company

	events, err := a.store.GetDisclosureDates(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "no disclosure dates for company %d", companyID)
	}
	run.Disclosures = events

	// Each window is tested as soon as it is assembled and released before
	// the next disclosure is resolved.
	resolution, err := a.resolver.Each(ctx, companyID, events, func(w models.DisclosureWindow) error {
		result, err := a.engine.Analyze(w)
		if err != nil {
			logger.Warn().Err(err).Str("center", w.Center.Format(models.DateLayout)).Msg("Skipping window")
			run.Skipped = append(run.Skipped, models.SkippedDisclosure{Date: w.Event.Date, Reason: err.Error()})
			return nil
		}
		run.Results = append(run.Results, result)
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Window resolution failed")
		return nil, err
	}
	run.Availability = resolution.Availability
	run.Skipped = mergeSkipped(run.Skipped, resolution.Skipped)

	run.Summary, run.Interpretations = aggregate.Analyze(run.Results)
	run.FinishedAt = time.Now()

	logger.Info().
		Int("disclosures", len(events)).
		Int("analyzed", len(run.Results)).
		Int("skipped", len(run.Skipped)).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Analysis completed")

	return run, nil
}

// mergeSkipped combines window-level and resolution-level skips in
// disclosure date order.
func mergeSkipped(a, b []models.SkippedDisclosure) []models.SkippedDisclosure {
	out := make([]models.SkippedDisclosure, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
