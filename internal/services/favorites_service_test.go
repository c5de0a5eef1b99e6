package services

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

func newFavorites(t *testing.T, store db.UserStore) (*FavoritesService, *recordingNotifier, *recordingMetrics) {
	t.Helper()
	log, _ := test.NewNullLogger()
	n := &recordingNotifier{}
	m := &recordingMetrics{}
	return NewFavoritesService(store, n, m, log), n, m
}

func TestAddTickerToList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, notifier, metrics := newFavorites(t, store)
	t9 := models.NewID()

	u1 := newUser(t, store, models.AccountBasic,
		models.FavoriteList{ListName: "A"},
		models.FavoriteList{ListName: "B", Tickers: []string{t9}},
	)

	res, err := svc.AddTickerToList(ctx, u1.ID, "A", t9)
	require.NoError(t, err)
	assert.Equal(t, &AddResult{ListName: "A", Count: 1}, res)

	got, err := store.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{t9}, got.FavoriteLists[0].Tickers)
	assert.Equal(t, []string{t9}, got.FavoriteLists[1].Tickers)

	_, err = svc.AddTickerToList(ctx, u1.ID, "A", t9)
	assert.ErrorIs(t, err, ErrDuplicateMember)

	got, err = store.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{t9}, got.FavoriteLists[0].Tickers)

	assert.Equal(t, []string{models.EventTickerAdded}, notifier.types())
	assert.Equal(t, 1, metrics.adds["added"])
	assert.Equal(t, 1, metrics.adds["duplicate"])
}

func TestAddTickerToListFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, notifier, _ := newFavorites(t, store)
	t1 := models.NewID()
	u := newUser(t, store, models.AccountBasic, models.FavoriteList{ListName: "A"})

	tests := []struct {
		name     string
		userID   string
		listName string
		tickerID string
		want     error
	}{
		{"malformed ticker", u.ID, "A", "not-an-id", ErrInvalidIdentifier},
		{"malformed ticker checked before user", "nobody", "A", "", ErrInvalidIdentifier},
		{"unknown user", models.NewID(), "A", t1, ErrUserNotFound},
		{"malformed user", "nobody", "A", t1, ErrUserNotFound},
		{"unknown list", u.ID, "Z", t1, ErrListNotFound},
		{"list names are case sensitive", u.ID, "a", t1, ErrListNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTickerToList(ctx, tt.userID, tt.listName, tt.tickerID)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, Transient(err))
		})
	}

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.FavoriteLists, 1)
	assert.Empty(t, got.FavoriteLists[0].Tickers)
	assert.Empty(t, notifier.types())
}

func TestAddTickerToListStoreUnavailable(t *testing.T) {
	svc, _, metrics := newFavorites(t, brokenStore{})

	_, err := svc.AddTickerToList(context.Background(), models.NewID(), "A", models.NewID())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, Transient(err))
	assert.Equal(t, 1, metrics.adds["store_unavailable"])
}

func TestAddTickerToListLosesRace(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	u := newUser(t, store, models.AccountBasic, models.FavoriteList{ListName: "A"})

	svc, notifier, _ := newFavorites(t, racyStore{UserStore: store})
	_, err := svc.AddTickerToList(ctx, u.ID, "A", models.NewID())
	assert.ErrorIs(t, err, ErrDuplicateMember)
	assert.Empty(t, notifier.types())

	svc, _, _ = newFavorites(t, racyStore{UserStore: store, listGone: true})
	_, err = svc.AddTickerToList(ctx, u.ID, "A", models.NewID())
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestAddTickerToListConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, _, _ := newFavorites(t, store)
	t1, t2 := models.NewID(), models.NewID()
	u := newUser(t, store, models.AccountProfessional, models.FavoriteList{ListName: "A"})

	const workers = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddTickerToList(ctx, u.ID, "A", t1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrDuplicateMember):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, duplicates)

	// Different tickers on the same list all land.
	_, err := svc.AddTickerToList(ctx, u.ID, "A", t2)
	require.NoError(t, err)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{t1, t2}, got.FavoriteLists[0].Tickers)
}

func TestAddTickerToListIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, _, _ := newFavorites(t, store)
	t1 := models.NewID()

	a := newUser(t, store, models.AccountBasic, models.FavoriteList{ListName: "A"})
	b := newUser(t, store, models.AccountBasic, models.FavoriteList{ListName: "A"})

	_, err := svc.AddTickerToList(ctx, a.ID, "A", t1)
	require.NoError(t, err)

	got, err := store.GetUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.FavoriteLists[0].Tickers)

	_, err = svc.AddTickerToList(ctx, b.ID, "A", t1)
	require.NoError(t, err)
}

func TestRemoveTicker(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, notifier, _ := newFavorites(t, store)
	t1 := models.NewID()
	u := newUser(t, store, models.AccountBasic, models.FavoriteList{ListName: "A", Tickers: []string{t1}})

	require.NoError(t, svc.RemoveTicker(ctx, u.ID, "A", t1))
	assert.ErrorIs(t, svc.RemoveTicker(ctx, u.ID, "A", t1), ErrTickerNotInList)
	assert.ErrorIs(t, svc.RemoveTicker(ctx, u.ID, "Z", t1), ErrListNotFound)
	assert.ErrorIs(t, svc.RemoveTicker(ctx, models.NewID(), "A", t1), ErrUserNotFound)
	assert.ErrorIs(t, svc.RemoveTicker(ctx, u.ID, "A", "bad"), ErrInvalidIdentifier)

	assert.Equal(t, []string{models.EventTickerRemoved}, notifier.types())
}

func TestCreateAndDeleteList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, notifier, _ := newFavorites(t, store)
	u := newUser(t, store, models.AccountBasic, models.FavoriteList{ListName: "A"})

	list, err := svc.CreateList(ctx, u.ID, "  Tech  ")
	require.NoError(t, err)
	assert.Equal(t, "Tech", list.ListName)
	assert.Empty(t, list.Tickers)

	_, err = svc.CreateList(ctx, u.ID, "Tech")
	assert.ErrorIs(t, err, ErrDuplicateList)
	_, err = svc.CreateList(ctx, u.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidListName)
	for _, name := range []string{"a/b", "/", "Tech/"} {
		_, err = svc.CreateList(ctx, u.ID, name)
		assert.ErrorIs(t, err, ErrInvalidListName, name)
	}
	_, err = svc.CreateList(ctx, models.NewID(), "Other")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// The new list accepts tickers through the normal path.
	_, err = svc.AddTickerToList(ctx, u.ID, "Tech", models.NewID())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteList(ctx, u.ID, "Tech"))
	assert.ErrorIs(t, svc.DeleteList(ctx, u.ID, "Tech"), ErrListNotFound)
	assert.ErrorIs(t, svc.DeleteList(ctx, models.NewID(), "A"), ErrUserNotFound)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.FavoriteLists, 1)
	assert.Equal(t, "A", got.FavoriteLists[0].ListName)

	assert.Equal(t, []string{
		models.EventListCreated,
		models.EventTickerAdded,
		models.EventListDeleted,
	}, notifier.types())
}

func TestDefaultList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc, _, _ := newFavorites(t, store)
	t1 := models.NewID()
	u := newUser(t, store, models.AccountProfessional,
		models.FavoriteList{ListName: "A", Tickers: []string{t1}},
		models.FavoriteList{ListName: "B"},
		models.FavoriteList{ListName: "C"},
	)

	sel, err := svc.DefaultList(ctx, u.ID, t1, "A")
	require.NoError(t, err)
	assert.Equal(t, "B", sel.ListName)
	assert.Equal(t, []string{"B", "C"}, sel.Eligible)

	_, err = svc.DefaultList(ctx, u.ID, "bad", "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	_, err = svc.DefaultList(ctx, models.NewID(), t1, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
