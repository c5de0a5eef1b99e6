package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

// AccountService applies the account tier to what a user can see and handles
// upgrades between tiers.
type AccountService struct {
	store    db.UserStore
	notifier Notifier
	metrics  Recorder
	log      logrus.FieldLogger
}

func NewAccountService(store db.UserStore, notifier Notifier, metrics Recorder, log logrus.FieldLogger) *AccountService {
	return &AccountService{store: store, notifier: notifier, metrics: metrics, log: log}
}

// VisibleLists projects the stored lists through the user's tier. Basic users
// see the first list with at most its first ticker. Stored data is untouched
// and the returned lists never alias the user's slices.
func VisibleLists(user *models.User) []models.FavoriteList {
	lists := user.FavoriteLists
	if user.AccountType != models.AccountProfessional {
		if len(lists) == 0 {
			return []models.FavoriteList{}
		}
		first := lists[0]
		tickers := first.Tickers
		if len(tickers) > 1 {
			tickers = tickers[:1]
		}
		return []models.FavoriteList{{ListName: first.ListName, Tickers: copyTickers(tickers)}}
	}

	out := make([]models.FavoriteList, len(lists))
	for i, l := range lists {
		out[i] = models.FavoriteList{ListName: l.ListName, Tickers: copyTickers(l.Tickers)}
	}
	return out
}

func copyTickers(tickers []string) []string {
	out := make([]string, len(tickers))
	copy(out, tickers)
	return out
}

// GetUser loads a user by id.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(err)
	}
	return user, nil
}

// VisibleListsFor loads the user and returns the lists the tier exposes.
func (s *AccountService) VisibleListsFor(ctx context.Context, userID string) ([]models.FavoriteList, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return VisibleLists(user), nil
}

// Upgrade moves the user to the Professional tier. Upgrading a Professional
// user returns it unchanged and emits nothing.
func (s *AccountService) Upgrade(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AccountType == models.AccountProfessional {
		return user, nil
	}

	matched, err := s.store.SetAccountType(ctx, userID, models.AccountProfessional)
	if err != nil {
		return nil, storeError(err)
	}
	if !matched {
		return nil, ErrUserNotFound
	}
	s.metrics.RecordUpgrade()

	s.log.WithField("user_id", userID).Info("Account upgraded")
	s.notifier.Broadcast(models.Message{
		Type:    models.EventAccountUpgrade,
		Content: models.FavoriteEvent{UserID: userID},
	})
	return s.GetUser(ctx, userID)
}
