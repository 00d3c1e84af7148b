package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "breach-analyzer/internal/errors"
	"breach-analyzer/internal/logging"
	"breach-analyzer/internal/models"
	"breach-analyzer/pkg/utils"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, apperrors.NewStoreError("open", err)
	}

	// The analysis is a sequential batch job; one connection is shared by all queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		logger: logging.WithOperation(logger, "store"),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, classify("init schema", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Reference data for listed companies
	CREATE TABLE IF NOT EXISTS company_info (
		company_id INTEGER PRIMARY KEY,
		company_name TEXT NOT NULL,
		location TEXT,
		stock_symbol TEXT NOT NULL
	);

	-- Breach disclosure dates
	CREATE TABLE IF NOT EXISTS data_breach_disclosures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		disclosure_date TEXT NOT NULL,
		UNIQUE(company_id, disclosure_date),
		FOREIGN KEY (company_id) REFERENCES company_info(company_id)
	);

	-- Daily stock values; TEXT keeps magnitude-suffixed volumes intact
	CREATE TABLE IF NOT EXISTS stock_data (
		company_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		open TEXT,
		close TEXT,
		volume TEXT,
		PRIMARY KEY (company_id, date)
	);

	-- Daily market index values
	CREATE TABLE IF NOT EXISTS index_data (
		date TEXT PRIMARY KEY,
		open TEXT,
		close TEXT,
		volume TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_disclosures_company ON data_breach_disclosures(company_id, disclosure_date);
	CREATE INDEX IF NOT EXISTS idx_stock_date ON stock_data(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewStoreError("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// classify wraps transport-level failures as StoreError so they abort the run.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectivityError(err) {
		return apperrors.NewStoreError(op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isConnectivityError(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrIoErr, sqlite3.ErrCorrupt:
			return true
		}
	}
	return strings.Contains(err.Error(), "database is closed")
}

// ============================================================================
// Companies
// ============================================================================

// ListCompanies returns all companies ordered by ID.
func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]models.Company, error) {
	const query = `
		SELECT company_id, company_name, COALESCE(location, ''), stock_symbol
		FROM company_info
		ORDER BY company_id
	`
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		logging.LogQuery(s.logger, "list companies", time.Since(start), 0, err)
		return nil, classify("query companies", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.Symbol); err != nil {
			return nil, classify("scan company", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate companies", err)
	}

	logging.LogQuery(s.logger, "list companies", time.Since(start), len(companies), nil)
	return companies, nil
}

// GetCompany returns one company, or ErrNotFound.
func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	var c models.Company
	err := s.db.QueryRowContext(ctx, `
		SELECT company_id, company_name, COALESCE(location, ''), stock_symbol
		FROM company_info
		WHERE company_id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Location, &c.Symbol)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "company %d", id)
	}
	if err != nil {
		return nil, classify("query company", err)
	}
	return &c, nil
}

// ============================================================================
// Disclosures
// ============================================================================

// GetDisclosureDates returns a company's disclosures ordered by date.
func (s *SQLiteStore) GetDisclosureDates(ctx context.Context, companyID int64) ([]models.DisclosureEvent, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT disclosure_date
		FROM data_breach_disclosures
		WHERE company_id = ?
		ORDER BY disclosure_date ASC
	`, companyID)
	if err != nil {
		return nil, classify("query disclosures", err)
	}
	defer rows.Close()

	var events []models.DisclosureEvent
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, classify("scan disclosure", err)
		}
		date, err := utils.ParseDay(raw)
		if err != nil {
			s.logger.Warn().Str("value", raw).Err(err).Msg("Skipping malformed disclosure date")
			continue
		}
		events = append(events, models.DisclosureEvent{CompanyID: companyID, Date: date})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate disclosures", err)
	}

	logging.LogQuery(s.logger, "disclosure dates", time.Since(start), len(events), nil)
	return events, nil
}

// ============================================================================
// Market data
// ============================================================================

// GetMarketRow returns the joined stock and index row for one day.
// It returns nil, nil when either side has no row for that day.
func (s *SQLiteStore) GetMarketRow(ctx context.Context, companyID int64, date time.Time) (*models.MarketRow, error) {
	day := DateKey(date)
	start := time.Now()

	var (
		raw                                    string
		sOpen, sClose, sVol, iOpen, iClose, iVol sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT x.date, x.open, x.close, x.volume, y.open, y.close, y.volume
		FROM stock_data x
		JOIN index_data y ON y.date = x.date
		WHERE x.company_id = ? AND x.date = ?
	`, companyID, day).Scan(&raw, &sOpen, &sClose, &sVol, &iOpen, &iClose, &iVol)
	if err == sql.ErrNoRows {
		logging.LogQuery(s.logger, "market row "+day, time.Since(start), 0, nil)
		return nil, nil
	}
	if err != nil {
		logging.LogQuery(s.logger, "market row "+day, time.Since(start), 0, err)
		return nil, classify("query market row", err)
	}

	parsed, err := utils.ParseDay(raw)
	if err != nil {
		parsed = utils.Day(date)
	}

	logging.LogQuery(s.logger, "market row "+day, time.Since(start), 1, nil)
	return &models.MarketRow{
		Date:        parsed,
		StockOpen:   sOpen.String,
		StockClose:  sClose.String,
		StockVolume: sVol.String,
		IndexOpen:   iOpen.String,
		IndexClose:  iClose.String,
		IndexVolume: iVol.String,
	}, nil
}

// CheckAvailability reports, per date, whether a joined market row exists.
// Every requested date is present in the result.
func (s *SQLiteStore) CheckAvailability(ctx context.Context, companyID int64, dates []time.Time) (map[string]bool, error) {
	result := make(map[string]bool, len(dates))
	if len(dates) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(dates))
	args := make([]interface{}, 0, len(dates)+1)
	args = append(args, companyID)
	for i, d := range dates {
		key := DateKey(d)
		result[key] = false
		placeholders[i] = "?"
		args = append(args, key)
	}

	query := `
		SELECT x.date
		FROM stock_data x
		JOIN index_data y ON y.date = x.date
		WHERE x.company_id = ? AND x.date IN (` + strings.Join(placeholders, ", ") + `)`

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("check availability", err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, classify("scan availability", err)
		}
		result[key] = true
		found++
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate availability", err)
	}

	logging.LogQuery(s.logger, "availability", time.Since(start), found, nil)
	return result, nil
}

// ============================================================================
// Write helpers (seeding and import only)
// ============================================================================

// SaveCompany inserts or replaces a company.
func (s *SQLiteStore) SaveCompany(ctx context.Context, c models.Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO company_info (company_id, company_name, location, stock_symbol)
		VALUES (?, ?, ?, ?)
	`, c.ID, c.Name, c.Location, c.Symbol)
	if err != nil {
		return classify("save company", err)
	}
	return nil
}

// SaveDisclosure records a disclosure date; duplicates are ignored.
func (s *SQLiteStore) SaveDisclosure(ctx context.Context, e models.DisclosureEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO data_breach_disclosures (company_id, disclosure_date)
		VALUES (?, ?)
	`, e.CompanyID, DateKey(e.Date))
	if err != nil {
		return classify("save disclosure", err)
	}
	return nil
}

// SaveStockRow inserts or replaces one day of stock values.
func (s *SQLiteStore) SaveStockRow(ctx context.Context, companyID int64, date time.Time, open, close, volume string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO stock_data (company_id, date, open, close, volume)
		VALUES (?, ?, ?, ?, ?)
	`, companyID, DateKey(date), nullable(open), nullable(close), nullable(volume))
	if err != nil {
		return classify("save stock row", err)
	}
	return nil
}

// SaveIndexRow inserts or replaces one day of index values.
func (s *SQLiteStore) SaveIndexRow(ctx context.Context, date time.Time, open, close, volume string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO index_data (date, open, close, volume)
		VALUES (?, ?, ?, ?)
	`, DateKey(date), nullable(open), nullable(close), nullable(volume))
	if err != nil {
		return classify("save index row", err)
	}
	return nil
}

func nullable(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}
