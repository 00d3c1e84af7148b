package stats

import (
	"math"
	"strings"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
)

// Prepare coerces a window's raw rows to numbers, derives the daily stock and
// index changes and drops rows with any missing value. Empty and infinite
// fields count as missing. A non-empty field that cannot be parsed aborts the window with a
// DataError.
func Prepare(window models.DisclosureWindow) ([]models.PreparedRow, error) {
	prepared := make([]models.PreparedRow, 0, len(window.Rows))

	for _, row := range window.Rows {
		p := models.PreparedRow{Date: row.Date}
		fields := []struct {
			column string
			raw    string
			volume bool
			dst    *float64
		}{
			{"Stock Open", row.StockOpen, false, &p.StockOpen},
			{"Stock Close", row.StockClose, false, &p.StockClose},
			{"Stock Volume", row.StockVolume, true, &p.StockVolume},
			{"Index Open", row.IndexOpen, false, &p.IndexOpen},
			{"Index Close", row.IndexClose, false, &p.IndexClose},
			{"Index Volume", row.IndexVolume, true, &p.IndexVolume},
		}

		for _, f := range fields {
			v, err := coerce(f.raw, f.volume)
			if err != nil {
				return nil, apperrors.NewDataError(f.column, row.Date, "cannot convert "+quote(f.raw)+" to float", err)
			}
			*f.dst = v
		}

		p.StockChange = p.StockClose - p.StockOpen
		p.IndexChange = p.IndexClose - p.IndexOpen

		if hasMissing(p) {
			continue
		}
		prepared = append(prepared, p)
	}

	return prepared, nil
}

func coerce(raw string, volume bool) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return math.NaN(), nil
	}
	if volume {
		return NormalizeVolume(raw)
	}
	return parseFloat(raw)
}

func hasMissing(p models.PreparedRow) bool {
	for _, v := range []float64{
		p.StockOpen, p.StockClose, p.StockVolume,
		p.IndexOpen, p.IndexClose, p.IndexVolume,
		p.StockChange, p.IndexChange,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func quote(s string) string {
	return "'" + s + "'"
}

// Changes splits prepared rows into the paired stock and index change series.
func Changes(rows []models.PreparedRow) (stock, index []float64) {
	stock = make([]float64, len(rows))
	index = make([]float64, len(rows))
	for i, r := range rows {
		stock[i] = r.StockChange
		index[i] = r.IndexChange
	}
	return stock, index
}
