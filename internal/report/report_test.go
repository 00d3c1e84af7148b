package report

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"breach-analyzer/internal/analysis"
	"breach-analyzer/internal/analysis/aggregate"
	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
)

func sampleRun() *analysis.Run {
	d1 := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2021, 6, 10, 0, 0, 0, 0, time.UTC)
	c2 := d2.AddDate(0, 0, 3)

	mk := func(event, center time.Time, pearson models.TestOutcome) models.WindowResult {
		return models.WindowResult{
			Window: models.DisclosureWindow{
				Event:       models.DisclosureEvent{CompanyID: 1, Date: event},
				Center:      center,
				Substituted: !event.Equal(center),
				Rows: []models.MarketRow{
					{Date: center, StockOpen: "50", StockClose: "51", StockVolume: "1.2M", IndexOpen: "100", IndexClose: "101", IndexVolume: "0.3B"},
				},
			},
			Outcomes: map[models.TestKind]models.TestOutcome{
				models.PairedT:    {Kind: models.PairedT, Statistic: 1.2, PValue: 0.26, Interpretation: "t"},
				models.SignedRank: {Kind: models.SignedRank, Statistic: math.NaN(), PValue: math.NaN(), Error: "error performing Wilcoxon signed-rank test: all paired differences are zero"},
				models.Pearson:    pearson,
				models.RankSum:    {Kind: models.RankSum, Statistic: 100, PValue: 0.7},
			},
			Insights: models.Insights{Observations: 1, StockVolatility: math.NaN(), IndexVolatility: math.NaN(), AvgStockVolume: 1.2e6, AvgIndexVolume: 3e8},
		}
	}

	results := []models.WindowResult{
		mk(d1, d1, models.TestOutcome{Kind: models.Pearson, Statistic: 0.97, PValue: 0.0001, Significant: true}),
		mk(d2, c2, models.TestOutcome{Kind: models.Pearson, Statistic: -0.2, PValue: 0.5}),
	}
	summary, interps := aggregate.Analyze(results)

	return &analysis.Run{
		ID:              "6f1d3c6e-0000-4000-8000-000000000001",
		Company:         models.Company{ID: 1, Name: "Acme, Inc.", Symbol: "ACME"},
		Results:         results,
		Skipped:         []models.SkippedDisclosure{{Date: d1.AddDate(1, 0, 0), Reason: "no market data"}},
		Summary:         summary,
		Interpretations: interps,
		StartedAt:       time.Now(),
		FinishedAt:      time.Now(),
	}
}

func TestExport_AllArtifacts(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(Options{Dir: dir, Spreadsheet: true, PDF: true, Charts: true}, zerolog.Nop())

	arts, err := exp.Export(sampleRun())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "analysis_results_company_1.xlsx"), arts.Workbook)
	assert.FileExists(t, arts.Workbook)
	assert.FileExists(t, arts.PDF)
	require.Len(t, arts.Charts, 4)
	for _, c := range arts.Charts {
		assert.FileExists(t, c)
	}

	f, err := excelize.OpenFile(arts.Workbook)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"Summary",
		"Data_2021-03-15", "Results_2021-03-15",
		"Data_2021-06-13", "Results_2021-06-13",
	}, f.GetSheetList())

	v, err := f.GetCellValue("Results_2021-06-13", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2021-06-10", v)

	v, err = f.GetCellValue("Data_2021-03-15", "D2")
	require.NoError(t, err)
	assert.Equal(t, "1.2M", v)

	v, err = f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	// Wilcoxon failed in every window: no average.
	v, err = f.GetCellValue("Summary", "C8")
	require.NoError(t, err)
	assert.Equal(t, "N/A", v)
}

func TestExport_EmptyRun(t *testing.T) {
	run := &analysis.Run{
		ID:      "empty",
		Company: models.Company{ID: 9, Name: "Nobody", Symbol: "NB"},
	}
	run.Summary, run.Interpretations = aggregate.Analyze(nil)

	arts, err := NewExporter(Options{Dir: t.TempDir(), Spreadsheet: true, PDF: true, Charts: true}, zerolog.Nop()).Export(run)
	require.NoError(t, err)
	assert.FileExists(t, arts.Workbook)
	assert.FileExists(t, arts.PDF)
	assert.Empty(t, arts.Charts)
	assert.Equal(t, 0, run.Summary.TotalDisclosures)
}

func TestExport_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewExporter(Options{Dir: filepath.Join(blocker, "out"), Spreadsheet: true}, zerolog.Nop()).Export(sampleRun())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExportFailed))
}

func TestWorkbook_DuplicateCenters(t *testing.T) {
	run := sampleRun()
	run.Results[1].Window.Center = run.Results[0].Window.Center

	path := filepath.Join(t.TempDir(), "dup.xlsx")
	require.NoError(t, WriteWorkbook(run, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Results_2021-03-15_2")
}
