package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// CatalogService resolves ticker ids for display. It never writes.
type CatalogService struct {
	store db.TickerStore
}

func NewCatalogService(store db.TickerStore) *CatalogService {
	return &CatalogService{store: store}
}

// FindByID returns the ticker with the given id.
func (s *CatalogService) FindByID(ctx context.Context, tickerID string) (*models.Ticker, error) {
	if !models.ValidID(tickerID) {
		return nil, ErrInvalidIdentifier
	}
	t, err := s.store.FindTickerByID(ctx, tickerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTickerNotFound
		}
		return nil, storeError(err)
	}
	return t, nil
}

// Search matches term against symbols and trading names. An empty term
// returns no results.
func (s *CatalogService) Search(ctx context.Context, term string, limit int) ([]models.Ticker, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Ticker{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	found, err := s.store.SearchTickers(ctx, term, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return found, nil
}
