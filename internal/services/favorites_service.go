package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

// Notifier receives events after a change has been persisted.
type Notifier interface {
	Broadcast(msg models.Message)
}

// AddResult describes the list after a successful insert.
type AddResult struct {
	ListName string `json:"listName"`
	Count    int    `json:"count"`
}

// FavoritesService maintains the favourite ticker lists of users.
type FavoritesService struct {
	store    db.UserStore
	notifier Notifier
	metrics  Recorder
	log      logrus.FieldLogger
}

func NewFavoritesService(store db.UserStore, notifier Notifier, metrics Recorder, log logrus.FieldLogger) *FavoritesService {
	return &FavoritesService{store: store, notifier: notifier, metrics: metrics, log: log}
}

// AddTickerToList inserts tickerID into the user's list named listName.
//
// The checks run in a fixed order and each failure has its own error:
// ErrInvalidIdentifier, ErrUserNotFound, ErrListNotFound, ErrDuplicateMember.
// The insert itself is a single conditional store update, so a request that
// loses a race against an identical one still gets ErrDuplicateMember.
func (s *FavoritesService) AddTickerToList(ctx context.Context, userID, listName, tickerID string) (*AddResult, error) {
	res, err := s.addTickerToList(ctx, userID, listName, tickerID)
	s.metrics.RecordFavoriteAdd(outcome(err))
	return res, err
}

func (s *FavoritesService) addTickerToList(ctx context.Context, userID, listName, tickerID string) (*AddResult, error) {
	if !models.ValidID(tickerID) {
		return nil, ErrInvalidIdentifier
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := user.FindList(listName)
	if list == nil {
		return nil, ErrListNotFound
	}
	if list.Contains(tickerID) {
		return nil, ErrDuplicateMember
	}

	added, err := s.store.ConditionalAddTicker(ctx, userID, listName, tickerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Removed between the read and the update.
			return nil, ErrListNotFound
		}
		return nil, storeError(err)
	}
	if !added.Applied {
		return nil, ErrDuplicateMember
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"list_name": listName,
		"ticker_id": tickerID,
	}).Info("Ticker added to favourites")
	s.notifier.Broadcast(models.Message{
		Type:    models.EventTickerAdded,
		Content: models.FavoriteEvent{UserID: userID, ListName: listName, TickerID: tickerID, Count: added.Count},
	})
	return &AddResult{ListName: listName, Count: added.Count}, nil
}

// RemoveTicker deletes tickerID from the user's list.
func (s *FavoritesService) RemoveTicker(ctx context.Context, userID, listName, tickerID string) error {
	if !models.ValidID(tickerID) {
		return ErrInvalidIdentifier
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	removed, err := s.store.RemoveTicker(ctx, userID, listName, tickerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrListNotFound
		}
		return storeError(err)
	}
	if !removed {
		return ErrTickerNotInList
	}

	s.notifier.Broadcast(models.Message{
		Type:    models.EventTickerRemoved,
		Content: models.FavoriteEvent{UserID: userID, ListName: listName, TickerID: tickerID},
	})
	return nil
}

// CreateList appends an empty list to the user's lists. Names are trimmed
// and must be 1 to 64 bytes without a slash.
func (s *FavoritesService) CreateList(ctx context.Context, userID, listName string) (*models.FavoriteList, error) {
	name := strings.TrimSpace(listName)
	// A "/" would make the list unreachable through /lists/{listName}.
	if name == "" || len(name) > 64 || strings.Contains(name, "/") {
		return nil, ErrInvalidListName
	}

	if err := s.store.AddList(ctx, userID, name); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, db.ErrConflict):
			return nil, ErrDuplicateList
		}
		return nil, storeError(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "list_name": name}).Info("Favourite list created")
	s.notifier.Broadcast(models.Message{
		Type:    models.EventListCreated,
		Content: models.FavoriteEvent{UserID: userID, ListName: name},
	})
	return &models.FavoriteList{ListName: name, Tickers: []string{}}, nil
}

// DeleteList removes the user's list and its members.
func (s *FavoritesService) DeleteList(ctx context.Context, userID, listName string) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	matched, err := s.store.RemoveList(ctx, userID, listName)
	if err != nil {
		return storeError(err)
	}
	if !matched {
		return ErrListNotFound
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "list_name": listName}).Info("Favourite list deleted")
	s.notifier.Broadcast(models.Message{
		Type:    models.EventListDeleted,
		Content: models.FavoriteEvent{UserID: userID, ListName: listName},
	})
	return nil
}

// DefaultList picks the list an add action should target for tickerID.
func (s *FavoritesService) DefaultList(ctx context.Context, userID, tickerID, previous string) (Selection, error) {
	if !models.ValidID(tickerID) {
		return Selection{}, ErrInvalidIdentifier
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return Selection{}, err
	}
	return SelectDefaultList(user.FavoriteLists, tickerID, previous), nil
}

func (s *FavoritesService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(err)
	}
	return user, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "added"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrListNotFound):
		return "list_not_found"
	case errors.Is(err, ErrDuplicateMember):
		return "duplicate"
	default:
		return "store_unavailable"
	}
}
