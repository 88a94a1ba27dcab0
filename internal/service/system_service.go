package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/portfolio-tracker/internal/database"
	"github.com/ndewijer/portfolio-tracker/internal/repository"
	"github.com/ndewijer/portfolio-tracker/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db     *sql.DB
	prices *repository.PriceRepository
}

// NewSystemService creates a new SystemService. db is the price cache and
// may be nil when caching is disabled.
func NewSystemService(db *sql.DB) *SystemService {
	s := &SystemService{db: db}
	if db != nil {
		s.prices = repository.NewPriceRepository(db)
	}
	return s
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	if s.db == nil {
		return nil
	}
	return database.HealthCheck(s.db)
}

func (s *SystemService) CheckVersion() string {
	return version.Version
}

// CacheEnabled reports whether a price cache is configured.
func (s *SystemService) CacheEnabled() bool {
	return s.db != nil
}

// CachedPrices returns the number of closes held in the price cache, 0 when
// caching is disabled.
func (s *SystemService) CachedPrices(ctx context.Context) (int, error) {
	if s.prices == nil {
		return 0, nil
	}
	return s.prices.CountPrices(ctx)
}
