// Package window resolves disclosure dates into windows of surrounding market data.
package window

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/logging"
	"breach-analyzer/internal/models"
	"breach-analyzer/internal/store"
	"breach-analyzer/pkg/utils"
)

const (
	// DefaultWindowDays is the number of calendar days on each side of the center.
	DefaultWindowDays = 7
	// DefaultSearchDays bounds the forward search for a disclosure date without data.
	DefaultSearchDays = 7
)

// Source is the data access the resolver needs.
type Source interface {
	store.MarketSource
	CheckAvailability(ctx context.Context, companyID int64, dates []time.Time) (map[string]bool, error)
}

// Options configures window and search sizes. Zero values select the
// defaults; NoForwardSearch turns the forward search off.
type Options struct {
	WindowDays      int
	SearchDays      int
	NoForwardSearch bool
}

// Resolution is the outcome of resolving one company's disclosures.
type Resolution struct {
	Windows []models.DisclosureWindow
	Skipped []models.SkippedDisclosure
	// Availability reports, per exact disclosure date, whether it had market data.
	Availability map[string]bool
	CacheHits    int
	CacheMisses  int
}

// Resolver builds one DisclosureWindow per resolvable disclosure date.
type Resolver struct {
	source     Source
	windowDays int
	searchDays int
	logger     zerolog.Logger
}

// NewResolver creates a resolver. Non-positive WindowDays and SearchDays
// fall back to the defaults.
func NewResolver(source Source, opts Options, logger zerolog.Logger) *Resolver {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	switch {
	case opts.NoForwardSearch:
		opts.SearchDays = 0
	case opts.SearchDays <= 0:
		opts.SearchDays = DefaultSearchDays
	}
	return &Resolver{
		source:     source,
		windowDays: opts.WindowDays,
		searchDays: opts.SearchDays,
		logger:     logging.WithOperation(logger, "resolver"),
	}
}

// SearchDays returns the forward search bound in effect.
func (r *Resolver) SearchDays() int {
	return r.searchDays
}

// Resolve produces windows for events in order. A disclosure with no market
// data on its date or within the forward search bound is skipped. Per-day
// lookup failures count as missing data; only store connectivity failures
// and context cancellation abort the resolution.
func (r *Resolver) Resolve(ctx context.Context, companyID int64, events []models.DisclosureEvent) (*Resolution, error) {
	var windows []models.DisclosureWindow
	res, err := r.Each(ctx, companyID, events, func(w models.DisclosureWindow) error {
		windows = append(windows, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Windows = windows
	return res, nil
}

// Each resolves events in order and hands every window to fn as soon as it
// is assembled, so only one window is held at a time. The returned
// Resolution carries skips and availability but no windows. An error from
// fn stops the resolution.
func (r *Resolver) Each(ctx context.Context, companyID int64, events []models.DisclosureEvent, fn func(models.DisclosureWindow) error) (*Resolution, error) {
	cache := store.NewMarketCache(r.source, companyID)
	res := &Resolution{Availability: make(map[string]bool, len(events))}

	dates := make([]time.Time, len(events))
	for i, e := range events {
		dates[i] = utils.Day(e.Date)
	}

	avail, err := r.source.CheckAvailability(ctx, companyID, dates)
	switch {
	case err != nil && apperrors.IsFatal(err):
		return nil, err
	case err != nil:
		r.log(ctx).Warn().Err(err).Msg("Availability check failed; checking dates individually")
	default:
		cache.Prime(avail)
	}

	resolved := 0
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		center, found, err := r.findCenter(ctx, cache, event.Date)
		if err != nil {
			return nil, err
		}
		res.Availability[store.DateKey(event.Date)] = found && center.Equal(utils.Day(event.Date))

		if !found {
			reason := fmt.Sprintf("no market data on %s or within %d days after", event.Date.Format(models.DateLayout), r.searchDays)
			r.log(ctx).Warn().Str("disclosure", event.Date.Format(models.DateLayout)).Msg("Skipping disclosure: " + reason)
			res.Skipped = append(res.Skipped, models.SkippedDisclosure{Date: event.Date, Reason: reason})
			continue
		}

		w, err := r.assemble(ctx, cache, event, center)
		if err != nil {
			return nil, err
		}
		if err := fn(w); err != nil {
			return nil, err
		}
		resolved++
	}

	res.CacheHits, res.CacheMisses = cache.Stats()
	r.log(ctx).Debug().
		Int("windows", resolved).
		Int("skipped", len(res.Skipped)).
		Int("cache_hits", res.CacheHits).
		Int("cache_misses", res.CacheMisses).
		Msg("Disclosures resolved")

	return res, nil
}

// findCenter returns the disclosure date when it has data, otherwise the
// first of the following searchDays days that does.
func (r *Resolver) findCenter(ctx context.Context, cache *store.MarketCache, date time.Time) (time.Time, bool, error) {
	for k := 0; k <= r.searchDays; k++ {
		day := utils.AddDays(date, k)
		row, err := r.lookup(ctx, cache, day)
		if err != nil {
			return time.Time{}, false, err
		}
		if row != nil {
			if k > 0 {
				logging.LogSubstitution(*r.log(ctx), date, day)
			}
			return day, true, nil
		}
	}
	return time.Time{}, false, nil
}

// assemble collects the rows of every day within windowDays of center.
func (r *Resolver) assemble(ctx context.Context, cache *store.MarketCache, event models.DisclosureEvent, center time.Time) (models.DisclosureWindow, error) {
	w := models.DisclosureWindow{
		Event:       event,
		Center:      center,
		Substituted: !center.Equal(utils.Day(event.Date)),
	}

	for _, day := range utils.DayRange(utils.AddDays(center, -r.windowDays), utils.AddDays(center, r.windowDays)) {
		row, err := r.lookup(ctx, cache, day)
		if err != nil {
			return models.DisclosureWindow{}, err
		}
		if row == nil {
			continue
		}
		rowCopy := *row
		rowCopy.Date = day
		w.Rows = append(w.Rows, rowCopy)
	}
	return w, nil
}

// lookup fetches one day through the cache, downgrading non-fatal failures to missing data.
func (r *Resolver) lookup(ctx context.Context, cache *store.MarketCache, day time.Time) (*models.MarketRow, error) {
	row, err := cache.Row(ctx, day)
	if err == nil {
		return row, nil
	}
	if apperrors.IsFatal(err) {
		return nil, err
	}
	r.log(ctx).Warn().Err(err).Str("date", day.Format(models.DateLayout)).Msg("Market data lookup failed; treating day as missing")
	return nil, nil
}

// log returns the run-scoped logger carried by ctx, falling back to the
// resolver's own.
func (r *Resolver) log(ctx context.Context) *zerolog.Logger {
	if l := logging.FromContext(ctx); l.GetLevel() != zerolog.Disabled {
		l = logging.WithOperation(l, "resolver")
		return &l
	}
	return &r.logger
}
