package store

import (
	"context"
	"time"

	"breach-analyzer/internal/models"
)

// MarketCache memoizes joined market rows for a single company run so that
// availability checks, forward searches and window assembly never fetch the
// same day twice. Absent days are cached as nil. Failed lookups are not cached.
//
// A MarketCache is not safe for concurrent use.
type MarketCache struct {
	source    MarketSource
	companyID int64
	rows      map[string]*models.MarketRow
	hits      int
	misses    int
}

// NewMarketCache creates an empty cache in front of source for one company.
func NewMarketCache(source MarketSource, companyID int64) *MarketCache {
	return &MarketCache{
		source:    source,
		companyID: companyID,
		rows:      make(map[string]*models.MarketRow),
	}
}

// Row returns the market row for date, or nil when the day has no data.
func (c *MarketCache) Row(ctx context.Context, date time.Time) (*models.MarketRow, error) {
	key := DateKey(date)
	if row, ok := c.rows[key]; ok {
		c.hits++
		return row, nil
	}

	c.misses++
	row, err := c.source.GetMarketRow(ctx, c.companyID, date)
	if err != nil {
		return nil, err
	}
	c.rows[key] = row
	return row, nil
}

// Prime records days a batched availability check reported as absent.
// Days reported present are fetched lazily on first use.
func (c *MarketCache) Prime(availability map[string]bool) {
	for key, ok := range availability {
		if ok {
			continue
		}
		if _, cached := c.rows[key]; !cached {
			c.rows[key] = nil
		}
	}
}

// Stats returns cache hit and miss counts.
func (c *MarketCache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
