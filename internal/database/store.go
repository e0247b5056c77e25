package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
)

// AccountStore is the opened account backend plus the handles that must be
// released on shutdown. Exactly one of DB, Redis and DynamoDB is set.
type AccountStore struct {
	Driver   string
	Accounts repository.AccountRepository
	DB       *gorm.DB
	Redis    redis.UniversalClient
	DynamoDB DynamoDBTableAPI
}

// OpenAccountStore connects to the backend named by ACCOUNT_STORE_DRIVER.
// SQL backends are migrated when migrate is true.
func OpenAccountStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*AccountStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := &AccountStore{Driver: cfg.AccountStoreDriver}
	switch cfg.AccountStoreDriver {
	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		db, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := Migrate(ctx, db); err != nil {
				_ = Close(db)
				return nil, err
			}
		}
		store.DB = db
		store.Accounts = repository.NewAccountRepository(db)
	case config.StoreDriverRedis:
		client, err := OpenRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		observability.InstrumentRedisClient(client, logger)
		store.Redis = client
		store.Accounts = repository.NewRedisAccountRepository(client, cfg.RedisKeyPrefix)
	case config.StoreDriverDynamoDB:
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := NewDynamoDBClient(awsCfg, cfg.DynamoDBEndpoint)
		store.DynamoDB = client
		store.Accounts = repository.NewDynamoAccountRepository(client, cfg.DynamoDBTable)
	default:
		return nil, fmt.Errorf("unsupported account store driver %q", cfg.AccountStoreDriver)
	}
	logger.InfoContext(ctx, "account store opened", "driver", store.Driver)
	return store, nil
}

// OpenRedis builds the client and checks connectivity once.
func OpenRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	start := time.Now()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "redis_connect", "error")
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "redis_connect", "success")
	observability.RecordDatabaseStartupDuration(ctx, "redis_connect", time.Since(start))
	return client, nil
}

func (s *AccountStore) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.DB != nil {
		if err := Close(s.DB); err != nil {
			errs = append(errs, fmt.Errorf("close sql store: %w", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis store: %w", err))
		}
	}
	return errors.Join(errs...)
}
