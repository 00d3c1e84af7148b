package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/models"
	"breach-analyzer/pkg/utils"
)

// ImportKind selects the table a CSV file is loaded into.
type ImportKind string

const (
	ImportCompanies   ImportKind = "companies"
	ImportDisclosures ImportKind = "disclosures"
	ImportStock       ImportKind = "stock"
	ImportIndex       ImportKind = "index"
)

// ImportKinds lists the supported import kinds.
var ImportKinds = []ImportKind{ImportCompanies, ImportDisclosures, ImportStock, ImportIndex}

// ParseImportKind validates a user-supplied import kind.
func ParseImportKind(s string) (ImportKind, error) {
	kind := ImportKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range ImportKinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", apperrors.NewValidationError("kind", s, "must be one of companies, disclosures, stock, index")
}

type companyRecord struct {
	ID       int64  `csv:"company_id"`
	Name     string `csv:"company_name"`
	Location string `csv:"location"`
	Symbol   string `csv:"stock_symbol"`
}

type disclosureRecord struct {
	CompanyID int64  `csv:"company_id"`
	Date      string `csv:"disclosure_date"`
}

type stockRecord struct {
	CompanyID int64  `csv:"company_id"`
	Date      string `csv:"date"`
	Open      string `csv:"open"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
}

type indexRecord struct {
	Date   string `csv:"date"`
	Open   string `csv:"open"`
	Close  string `csv:"close"`
	Volume string `csv:"volume"`
}

// ImportCSV loads a headered CSV file of the given kind and returns the
// number of records written. Market values are stored verbatim so magnitude
// volumes such as "12.3M" are normalized only at analysis time.
func (s *SQLiteStore) ImportCSV(ctx context.Context, kind ImportKind, r io.Reader) (int, error) {
	switch kind {
	case ImportCompanies:
		var records []*companyRecord
		if err := gocsv.Unmarshal(r, &records); err != nil {
			return 0, fmt.Errorf("failed to parse companies csv: %w", err)
		}
		for i, rec := range records {
			if rec.ID <= 0 {
				return i, apperrors.NewValidationError("company_id", rec.ID, "must be positive")
			}
			c := models.Company{ID: rec.ID, Name: rec.Name, Location: rec.Location, Symbol: rec.Symbol}
			if err := s.SaveCompany(ctx, c); err != nil {
				return i, err
			}
		}
		return len(records), nil

	case ImportDisclosures:
		var records []*disclosureRecord
		if err := gocsv.Unmarshal(r, &records); err != nil {
			return 0, fmt.Errorf("failed to parse disclosures csv: %w", err)
		}
		for i, rec := range records {
			date, err := utils.ParseDay(rec.Date)
			if err != nil {
				return i, apperrors.NewValidationError("disclosure_date", rec.Date, err.Error())
			}
			if err := s.SaveDisclosure(ctx, models.DisclosureEvent{CompanyID: rec.CompanyID, Date: date}); err != nil {
				return i, err
			}
		}
		return len(records), nil

	case ImportStock:
		var records []*stockRecord
		if err := gocsv.Unmarshal(r, &records); err != nil {
			return 0, fmt.Errorf("failed to parse stock csv: %w", err)
		}
		for i, rec := range records {
			date, err := utils.ParseDay(rec.Date)
			if err != nil {
				return i, apperrors.NewValidationError("date", rec.Date, err.Error())
			}
			if err := s.SaveStockRow(ctx, rec.CompanyID, date, rec.Open, rec.Close, rec.Volume); err != nil {
				return i, err
			}
		}
		return len(records), nil

	case ImportIndex:
		var records []*indexRecord
		if err := gocsv.Unmarshal(r, &records); err != nil {
			return 0, fmt.Errorf("failed to parse index csv: %w", err)
		}
		for i, rec := range records {
			date, err := utils.ParseDay(rec.Date)
			if err != nil {
				return i, apperrors.NewValidationError("date", rec.Date, err.Error())
			}
			if err := s.SaveIndexRow(ctx, date, rec.Open, rec.Close, rec.Volume); err != nil {
				return i, err
			}
		}
		return len(records), nil
	}

	return 0, apperrors.NewValidationError("kind", kind, "unsupported import kind")
}
