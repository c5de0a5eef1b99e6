package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bullsai/watchlist/internal/config"
	"github.com/bullsai/watchlist/internal/models"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// An in-memory database lives and dies with its connection.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := NewGormStore(gdb, 5*time.Second)
	require.NoError(t, store.Migrate())
	return store
}

func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	cfg := config.DatabaseConfig{
		MongoURI:      uri,
		MongoDatabase: "watchlist_test_" + models.NewID(),
		Timeout:       5 * time.Second,
	}
	mdb, err := ConnectMongo(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		mdb.Drop(context.Background())
		mdb.Client().Disconnect(context.Background())
	})

	store := NewMongoStore(mdb, cfg.Timeout)
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

func createUser(t *testing.T, store UserStore, lists ...models.FavoriteList) *models.User {
	t.Helper()
	u := &models.User{
		Email:         models.NewID() + "@example.com",
		FavoriteLists: lists,
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestGormUserStore(t *testing.T) {
	testUserStore(t, newSQLiteStore(t))
}

func TestMongoUserStore(t *testing.T) {
	testUserStore(t, newMongoStore(t))
}

// testUserStore checks the behaviour every backend must share.
func testUserStore(t *testing.T, store UserStore) {
	ctx := context.Background()
	t9 := models.NewID()

	t.Run("create and get", func(t *testing.T) {
		u := createUser(t, store,
			models.FavoriteList{ListName: "A"},
			models.FavoriteList{ListName: "B", Tickers: []string{t9}},
		)
		require.True(t, models.ValidID(u.ID))

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AccountBasic, got.AccountType)
		require.Len(t, got.FavoriteLists, 2)
		assert.Equal(t, "A", got.FavoriteLists[0].ListName)
		assert.Empty(t, got.FavoriteLists[0].Tickers)
		assert.Equal(t, []string{t9}, got.FavoriteLists[1].Tickers)

		byEmail, err := store.GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		u := createUser(t, store)
		err := store.CreateUser(ctx, &models.User{Email: u.Email})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUser(ctx, models.NewID())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetUser(ctx, "garbage")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("conditional add", func(t *testing.T) {
		u := createUser(t, store, models.FavoriteList{ListName: "A"})

		res, err := store.ConditionalAddTicker(ctx, u.ID, "A", t9)
		require.NoError(t, err)
		assert.Equal(t, AddResult{Applied: true, Count: 1}, res)

		res, err = store.ConditionalAddTicker(ctx, u.ID, "A", t9)
		require.NoError(t, err)
		assert.Equal(t, AddResult{Applied: false, Count: 1}, res)

		_, err = store.ConditionalAddTicker(ctx, u.ID, "missing", t9)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{t9}, got.FavoriteLists[0].Tickers)
	})

	t.Run("concurrent add applies once", func(t *testing.T) {
		u := createUser(t, store, models.FavoriteList{ListName: "A"})

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan AddResult, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := store.ConditionalAddTicker(ctx, u.ID, "A", t9)
				if assert.NoError(t, err) {
					results <- res
				}
			}()
		}
		wg.Wait()
		close(results)

		applied := 0
		for res := range results {
			if res.Applied {
				applied++
			}
		}
		assert.Equal(t, 1, applied)

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{t9}, got.FavoriteLists[0].Tickers)
	})

	t.Run("remove ticker", func(t *testing.T) {
		u := createUser(t, store, models.FavoriteList{ListName: "A", Tickers: []string{t9}})

		ok, err := store.RemoveTicker(ctx, u.ID, "A", t9)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.RemoveTicker(ctx, u.ID, "A", t9)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.RemoveTicker(ctx, u.ID, "nope", t9)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("lists", func(t *testing.T) {
		u := createUser(t, store, models.FavoriteList{ListName: "A"})

		require.NoError(t, store.AddList(ctx, u.ID, "B"))
		assert.ErrorIs(t, store.AddList(ctx, u.ID, "B"), ErrConflict)
		assert.ErrorIs(t, store.AddList(ctx, models.NewID(), "B"), ErrNotFound)

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, got.FavoriteLists, 2)
		assert.Equal(t, "B", got.FavoriteLists[1].ListName)

		ok, err := store.RemoveList(ctx, u.ID, "A")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.RemoveList(ctx, u.ID, "A")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err = store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, got.FavoriteLists, 1)
		assert.Equal(t, "B", got.FavoriteLists[0].ListName)
	})

	t.Run("set account type", func(t *testing.T) {
		u := createUser(t, store)

		for i := 0; i < 2; i++ {
			ok, err := store.SetAccountType(ctx, u.ID, models.AccountProfessional)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AccountProfessional, got.AccountType)

		ok, err := store.SetAccountType(ctx, models.NewID(), models.AccountProfessional)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGormTickerCatalog(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	day := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)

	aapl := &models.Ticker{
		Symbol:      "AAPL",
		TradingName: "Apple Inc.",
		Transactions: []models.Transaction{
			{Date: day.AddDate(0, 0, 1), Volume: 200},
			{Date: day, Volume: 100},
		},
	}
	require.NoError(t, store.PutTicker(ctx, aapl))
	require.NoError(t, store.PutTicker(ctx, &models.Ticker{Symbol: "MSFT", TradingName: "Microsoft Corp"}))

	got, err := store.FindTickerByID(ctx, aapl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", got.TradingName)
	require.Len(t, got.Transactions, 2)
	latest, ok := got.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(200), latest.Volume)

	_, err = store.FindTickerByID(ctx, models.NewID())
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := store.SearchTickers(ctx, "apple", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "AAPL", found[0].Symbol)

	found, err = store.SearchTickers(ctx, "ms", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "MSFT", found[0].Symbol)

	found, err = store.SearchTickers(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	// LIKE metacharacters in the term are matched literally.
	for _, term := range []string{"%", "_", `\`} {
		found, err = store.SearchTickers(ctx, term, 10)
		require.NoError(t, err)
		assert.Empty(t, found, term)
	}
	require.NoError(t, store.PutTicker(ctx, &models.Ticker{Symbol: "GRTH", TradingName: "Growth_Fund 100%"}))
	for _, term := range []string{"_", "h_f", "100%"} {
		found, err = store.SearchTickers(ctx, term, 10)
		require.NoError(t, err)
		require.Len(t, found, 1, term)
		assert.Equal(t, "GRTH", found[0].Symbol)
	}
	found, err = store.SearchTickers(ctx, "h%f", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGormGlossary(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	pe := &models.GlossaryTerm{Term: "P/E ratio", Description: "Price divided by earnings per share."}
	require.NoError(t, store.PutTerm(ctx, pe))
	require.NoError(t, store.PutTerm(ctx, &models.GlossaryTerm{Term: "Dividend", Description: "Cash paid to shareholders."}))

	terms, err := store.ListTerms(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "Dividend", terms[0].Term)

	got, err := store.GetTerm(ctx, pe.ID)
	require.NoError(t, err)
	assert.Equal(t, pe.Description, got.Description)

	_, err = store.GetTerm(ctx, models.NewID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedUser(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	require.NoError(t, SeedUser(ctx, store, config.SeedConfig{}, log))
	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	seed := config.SeedConfig{Email: "Demo@Example.com", Password: "Passw0rd!"}
	require.NoError(t, SeedUser(ctx, store, seed, log))
	require.NoError(t, SeedUser(ctx, store, seed, log))

	n, err = store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	u, err := store.GetUserByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.HashedPassword)
	require.Len(t, u.FavoriteLists, 1)
}
