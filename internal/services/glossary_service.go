package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

type GlossaryService struct {
	store db.GlossaryStore
}

func NewGlossaryService(store db.GlossaryStore) *GlossaryService {
	return &GlossaryService{store: store}
}

func (s *GlossaryService) List(ctx context.Context) ([]models.GlossaryTerm, error) {
	terms, err := s.store.ListTerms(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return terms, nil
}

func (s *GlossaryService) Get(ctx context.Context, termID string) (*models.GlossaryTerm, error) {
	if !models.ValidID(termID) {
		return nil, ErrInvalidIdentifier
	}
	term, err := s.store.GetTerm(ctx, termID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTermNotFound
		}
		return nil, storeError(err)
	}
	return term, nil
}
