// Package store provides data access interfaces and implementations.
package store

import (
	"context"
	"time"

	"breach-analyzer/internal/models"
)

// DataStore defines the read operations the analysis depends on.
type DataStore interface {
	// Companies
	ListCompanies(ctx context.Context) ([]models.Company, error)
	GetCompany(ctx context.Context, id int64) (*models.Company, error)

	// Disclosures, ordered ascending by date
	GetDisclosureDates(ctx context.Context, companyID int64) ([]models.DisclosureEvent, error)

	// Market data. GetMarketRow returns nil, nil when the day has no row.
	GetMarketRow(ctx context.Context, companyID int64, date time.Time) (*models.MarketRow, error)
	CheckAvailability(ctx context.Context, companyID int64, dates []time.Time) (map[string]bool, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// MarketSource is the subset of DataStore used to resolve windows.
type MarketSource interface {
	GetMarketRow(ctx context.Context, companyID int64, date time.Time) (*models.MarketRow, error)
}

// DateKey formats a date as the availability map key.
func DateKey(t time.Time) string {
	return t.Format(models.DateLayout)
}
