package window

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
	"breach-analyzer/pkg/utils"
)

// fakeSource serves market rows from a day set and counts lookups.
type fakeSource struct {
	days     map[string]bool
	failing  map[string]error
	calls    map[string]int
	availErr error
}

func newFakeSource(days ...time.Time) *fakeSource {
	f := &fakeSource{days: map[string]bool{}, failing: map[string]error{}, calls: map[string]int{}}
	for _, d := range days {
		f.days[key(d)] = true
	}
	return f
}

func (f *fakeSource) GetMarketRow(_ context.Context, _ int64, date time.Time) (*models.MarketRow, error) {
	k := key(date)
	f.calls[k]++
	if err, ok := f.failing[k]; ok {
		return nil, err
	}
	if !f.days[k] {
		return nil, nil
	}
	return &models.MarketRow{Date: date, StockOpen: "1", StockClose: "2", StockVolume: "1M",
		IndexOpen: "10", IndexClose: "11", IndexVolume: "1B"}, nil
}

func (f *fakeSource) CheckAvailability(_ context.Context, _ int64, dates []time.Time) (map[string]bool, error) {
	if f.availErr != nil {
		return nil, f.availErr
	}
	out := make(map[string]bool, len(dates))
	for _, d := range dates {
		out[key(d)] = f.days[key(d)]
	}
	return out, nil
}

func key(t time.Time) string { return t.Format(models.DateLayout) }

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func span(from string, n int) []time.Time {
	start := date(from)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = utils.AddDays(start, i)
	}
	return days
}

func events(dates ...string) []models.DisclosureEvent {
	out := make([]models.DisclosureEvent, len(dates))
	for i, d := range dates {
		out[i] = models.DisclosureEvent{CompanyID: 1, Date: date(d)}
	}
	return out
}

func newResolver(src Source) *Resolver {
	return NewResolver(src, Options{}, zerolog.Nop())
}

func TestResolve_ExactDate(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 40)...)
	res, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)

	w := res.Windows[0]
	assert.False(t, w.Substituted)
	assert.Equal(t, "2020-01-15", key(w.Center))
	require.Len(t, w.Rows, 15)
	assert.Equal(t, "2020-01-08", key(w.Rows[0].Date))
	assert.Equal(t, "2020-01-22", key(w.Rows[14].Date))
	assert.True(t, res.Availability["2020-01-15"])
}

func TestResolve_ForwardSubstitution(t *testing.T) {
	var days []time.Time
	for _, d := range span("2020-01-01", 40) {
		// gap on the disclosure date and the two days after it
		if k := key(d); k == "2020-01-15" || k == "2020-01-16" || k == "2020-01-17" {
			continue
		}
		days = append(days, d)
	}
	src := newFakeSource(days...)

	res, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)

	w := res.Windows[0]
	assert.True(t, w.Substituted)
	assert.Equal(t, "2020-01-18", key(w.Center))
	assert.Equal(t, 3, w.OffsetDays())
	assert.Equal(t, "2020-01-11", key(w.Rows[0].Date))
	assert.Equal(t, "2020-01-25", key(w.Rows[len(w.Rows)-1].Date))
	assert.Len(t, w.Rows, 12)
	assert.False(t, res.Availability["2020-01-15"])
}

func TestResolve_SkipWhenNoDataWithinBound(t *testing.T) {
	// data only 8 days after the first disclosure
	src := newFakeSource(append(span("2020-01-23", 3), span("2020-03-01", 20)...)...)

	res, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15", "2020-03-10"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "2020-01-15", key(res.Skipped[0].Date))
	assert.Equal(t, "2020-03-10", key(res.Windows[0].Center))
}

func TestResolve_PerDayErrorsAreMissingData(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 40)...)
	src.failing["2020-01-12"] = errors.New("malformed row")

	res, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Len(t, res.Windows[0].Rows, 14)
	for _, r := range res.Windows[0].Rows {
		assert.NotEqual(t, "2020-01-12", key(r.Date))
	}
}

func TestResolve_ConnectivityFailureIsFatal(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 40)...)
	src.failing["2020-01-20"] = apperrors.NewStoreError("query market row", errors.New("database is closed"))

	_, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15"))
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))

	src = newFakeSource()
	src.availErr = apperrors.NewStoreError("check availability", errors.New("bad connection"))
	_, err = newResolver(src).Resolve(context.Background(), 1, events("2020-01-15"))
	assert.True(t, apperrors.IsFatal(err))
}

func TestResolve_AvailabilityFailureFallsBack(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 40)...)
	src.availErr = errors.New("too many SQL variables")

	res, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15"))
	require.NoError(t, err)
	assert.Len(t, res.Windows, 1)
}

func TestResolve_NoDayFetchedTwice(t *testing.T) {
	var days []time.Time
	for _, d := range span("2020-01-01", 60) {
		if key(d) != "2020-01-20" {
			days = append(days, d)
		}
	}
	src := newFakeSource(days...)

	// Overlapping windows and a substituted center.
	res, err := newResolver(src).Resolve(context.Background(), 1, events("2020-01-15", "2020-01-20", "2020-01-24"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 3)
	assert.Equal(t, "2020-01-21", key(res.Windows[1].Center))

	for day, n := range src.calls {
		assert.LessOrEqual(t, n, 1, day)
	}
	assert.Positive(t, res.CacheHits)
}

func TestResolve_CustomWindow(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 40)...)
	r := NewResolver(src, Options{WindowDays: 2, SearchDays: 0}, zerolog.Nop())

	res, err := r.Resolve(context.Background(), 1, events("2020-01-15"))
	require.NoError(t, err)
	assert.Len(t, res.Windows[0].Rows, 5)
}

func TestResolve_ZeroOptionsSearchForward(t *testing.T) {
	src := newFakeSource(span("2020-01-18", 20)...)

	r := NewResolver(src, Options{}, zerolog.Nop())
	assert.Equal(t, DefaultSearchDays, r.SearchDays())

	res, err := r.Resolve(context.Background(), 1, events("2020-01-15"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, "2020-01-18", key(res.Windows[0].Center))
}

func TestResolve_NoForwardSearch(t *testing.T) {
	src := newFakeSource(span("2020-01-18", 20)...)

	r := NewResolver(src, Options{SearchDays: 5, NoForwardSearch: true}, zerolog.Nop())
	assert.Zero(t, r.SearchDays())

	res, err := r.Resolve(context.Background(), 1, events("2020-01-15", "2020-01-20"))
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Equal(t, "2020-01-20", key(res.Windows[0].Center))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "2020-01-15", key(res.Skipped[0].Date))
}

func TestEach_HandsOverWindowsInOrder(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 60)...)

	var centers []string
	res, err := newResolver(src).Each(context.Background(), 1, events("2020-01-10", "2020-02-01"),
		func(w models.DisclosureWindow) error {
			centers = append(centers, key(w.Center))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-01-10", "2020-02-01"}, centers)
	assert.Empty(t, res.Windows)
	assert.True(t, res.Availability["2020-02-01"])
}

func TestEach_CallbackErrorStops(t *testing.T) {
	src := newFakeSource(span("2020-01-01", 60)...)
	stop := errors.New("stop")

	calls := 0
	_, err := newResolver(src).Each(context.Background(), 1, events("2020-01-10", "2020-02-01"),
		func(models.DisclosureWindow) error {
			calls++
			return stop
		})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestResolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newResolver(newFakeSource()).Resolve(ctx, 1, events("2020-01-15"))
	assert.ErrorIs(t, err, context.Canceled)
}

// Property: every produced window lies within ±7 days of its center, is
// strictly ascending, and is centered on the first day with data in
// [D, D+7]; disclosures without such a day are skipped.
func TestProperty_WindowBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	base := date("2022-06-01")

	properties.Property("windows are bounded, ordered and correctly centered", prop.ForAll(
		func(offsets []int, disclosure int) bool {
			var days []time.Time
			for _, off := range offsets {
				days = append(days, utils.AddDays(base, off))
			}
			src := newFakeSource(days...)
			d := utils.AddDays(base, disclosure)

			res, err := newResolver(src).Resolve(context.Background(), 1,
				[]models.DisclosureEvent{{CompanyID: 1, Date: d}})
			if err != nil {
				return false
			}

			expectedK := -1
			for k := 0; k <= DefaultSearchDays; k++ {
				if src.days[key(utils.AddDays(d, k))] {
					expectedK = k
					break
				}
			}
			if expectedK < 0 {
				return len(res.Windows) == 0 && len(res.Skipped) == 1
			}
			if len(res.Windows) != 1 {
				return false
			}

			w := res.Windows[0]
			if utils.DaysBetween(d, w.Center) != expectedK || w.Substituted != (expectedK > 0) {
				return false
			}
			lo, hi := utils.AddDays(w.Center, -DefaultWindowDays), utils.AddDays(w.Center, DefaultWindowDays)
			for i, r := range w.Rows {
				if r.Date.Before(lo) || r.Date.After(hi) {
					return false
				}
				if i > 0 && !w.Rows[i-1].Date.Before(r.Date) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(5, 30),
	))

	properties.TestingRun(t)
}
