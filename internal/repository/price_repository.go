package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// ErrNoCachedPrice is returned when the cache holds nothing for a ticker.
var ErrNoCachedPrice = errors.New("no cached price")

// PriceRepository provides data access to the price_history and symbol
// tables of the market-data cache.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// SavePrices upserts closes for one ticker in a single transaction.
func (r *PriceRepository) SavePrices(ctx context.Context, ticker string, points []model.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history (ticker, date, close, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO UPDATE SET close = excluded.close, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(time.RFC3339)
	for _, p := range points {
		if p.Close <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, ticker, p.Date.UTC().Format("2006-01-02"), p.Close, fetchedAt); err != nil {
			return fmt.Errorf("failed to insert price for %s on %s: %w", ticker, p.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}
	return nil
}

// GetPrices returns cached closes for ticker between startDate and endDate
// inclusive, oldest first. An empty result is not an error.
func (r *PriceRepository) GetPrices(ctx context.Context, ticker string, startDate, endDate time.Time) ([]model.PricePoint, error) {
	if startDate.After(endDate) {
		return nil, fmt.Errorf("startDate (%s) must be before or equal to endDate (%s)",
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT date, close
		FROM price_history
		WHERE ticker = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`, ticker, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query price_history table: %w", err)
	}
	defer rows.Close()

	points := []model.PricePoint{}
	for rows.Next() {
		var dateStr string
		var p model.PricePoint
		if err := rows.Scan(&dateStr, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price_history results: %w", err)
		}
		p.Date, err = ParseTime(dateStr)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_history table: %w", err)
	}
	return points, nil
}

// GetLatestPrice returns the most recent cached close for ticker.
func (r *PriceRepository) GetLatestPrice(ctx context.Context, ticker string) (model.PricePoint, error) {
	var dateStr string
	var p model.PricePoint

	err := r.db.QueryRowContext(ctx, `
		SELECT date, close
		FROM price_history
		WHERE ticker = ?
		ORDER BY date DESC
		LIMIT 1
	`, ticker).Scan(&dateStr, &p.Close)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PricePoint{}, fmt.Errorf("%w: %s", ErrNoCachedPrice, ticker)
	}
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("failed to query latest price: %w", err)
	}

	p.Date, err = ParseTime(dateStr)
	if err != nil {
		return model.PricePoint{}, err
	}
	return p, nil
}

// SaveSymbol upserts symbol metadata.
func (r *PriceRepository) SaveSymbol(ctx context.Context, ticker, name, exchange, currency string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO symbol (ticker, name, exchange, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), symbol.name),
			exchange = COALESCE(NULLIF(excluded.exchange, ''), symbol.exchange),
			currency = COALESCE(NULLIF(excluded.currency, ''), symbol.currency),
			updated_at = excluded.updated_at
	`, ticker, name, exchange, currency, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save symbol %s: %w", ticker, err)
	}
	return nil
}

// GetSymbolCurrency returns the cached currency of ticker, or "" when unknown.
func (r *PriceRepository) GetSymbolCurrency(ctx context.Context, ticker string) (string, error) {
	var currency sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT currency FROM symbol WHERE ticker = ?`, ticker).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query symbol: %w", err)
	}
	return currency.String, nil
}

// CountPrices returns the number of cached closes across all tickers.
func (r *PriceRepository) CountPrices(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return n, nil
}
