package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/models"
)

const tickerKeyPrefix = "ticker:"

// CachedTickerStore serves ticker lookups from Redis before falling back to
// the wrapped store. Tickers are read-only for the API, so entries only expire.
// A nil client disables caching. Redis failures are logged and ignored.
type CachedTickerStore struct {
	TickerStore
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewCachedTickerStore(next TickerStore, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedTickerStore {
	return &CachedTickerStore{TickerStore: next, client: client, ttl: ttl, log: log}
}

func (c *CachedTickerStore) FindTickerByID(ctx context.Context, tickerID string) (*models.Ticker, error) {
	if c.client == nil {
		return c.TickerStore.FindTickerByID(ctx, tickerID)
	}

	key := tickerKeyPrefix + tickerID
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t models.Ticker
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
		c.log.WithField("key", key).Warn("Dropping undecodable cache entry")
		c.client.Del(ctx, key)
	case err != redis.Nil:
		c.log.WithError(err).Warn("Ticker cache read failed")
	}

	t, err := c.TickerStore.FindTickerByID(ctx, tickerID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(t); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.WithError(err).Warn("Ticker cache write failed")
		}
	}
	return t, nil
}
