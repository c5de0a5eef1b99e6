package db

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bullsai/watchlist/internal/config"
	"github.com/bullsai/watchlist/internal/models"
)

// Connect establishes a connection to the database
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test the connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// ConnectMongo establishes a connection to MongoDB and returns the database handle.
func ConnectMongo(ctx context.Context, cfg config.DatabaseConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(cfg.MongoDatabase), nil
}

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		gdb, err := Connect(cfg)
		if err != nil {
			return nil, err
		}
		store := NewGormStore(gdb, cfg.Timeout)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.WithField("driver", cfg.Driver).Info("Connected to database")
		return store, nil
	case "mongo":
		mdb, err := ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := NewMongoStore(mdb, cfg.Timeout)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("indexes: %w", err)
		}
		log.WithFields(logrus.Fields{"driver": cfg.Driver, "database": cfg.MongoDatabase}).Info("Connected to database")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// SeedUser creates the configured account when the store has no users.
func SeedUser(ctx context.Context, store UserStore, seed config.SeedConfig, log logrus.FieldLogger) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}
	n, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:          seed.Email,
		HashedPassword: string(hashedPassword),
		AccountType:    models.AccountBasic,
		FavoriteLists:  []models.FavoriteList{{ListName: "My List", Tickers: []string{}}},
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return err
	}
	log.WithField("user_id", user.ID).Info("Created seed user")
	return nil
}
