package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/models"
)

func newTestStore(t *testing.T) *db.GormStore {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := db.NewGormStore(gdb, 5*time.Second)
	require.NoError(t, store.Migrate())
	return store
}

func newUser(t *testing.T, store db.UserStore, tier models.AccountType, lists ...models.FavoriteList) *models.User {
	t.Helper()
	u := &models.User{
		Email:         models.NewID() + "@example.com",
		AccountType:   tier,
		FavoriteLists: lists,
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// recordingNotifier keeps every broadcast message.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []models.Message
}

func (n *recordingNotifier) Broadcast(msg models.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	for i, m := range n.messages {
		out[i] = m.Type
	}
	return out
}

type recordingMetrics struct {
	mu       sync.Mutex
	adds     map[string]int
	upgrades int
}

func (m *recordingMetrics) RecordFavoriteAdd(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adds == nil {
		m.adds = map[string]int{}
	}
	m.adds[outcome]++
}

func (m *recordingMetrics) RecordUpgrade() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upgrades++
}

// brokenStore fails every call the way a lost connection does.
type brokenStore struct {
	db.UserStore
}

func (brokenStore) GetUser(context.Context, string) (*models.User, error) {
	return nil, db.ErrUnavailable
}

func (brokenStore) SetAccountType(context.Context, string, models.AccountType) (bool, error) {
	return false, db.ErrUnavailable
}

// racyStore reports the user without the ticker, then loses the insert to a
// concurrent writer.
type racyStore struct {
	db.UserStore
	listGone bool
}

func (s racyStore) ConditionalAddTicker(ctx context.Context, userID, listName, tickerID string) (db.AddResult, error) {
	if s.listGone {
		return db.AddResult{}, db.ErrNotFound
	}
	return db.AddResult{Applied: false, Count: 1}, nil
}
