package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the SQL account store selected by ACCOUNT_STORE_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	start := time.Now()
	var dialector gorm.Dialector
	switch cfg.AccountStoreDriver {
	case config.StoreDriverPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.StoreDriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("account store driver %q has no sql database", cfg.AccountStoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open %s: %w", cfg.AccountStoreDriver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	if cfg.AccountStoreDriver == config.StoreDriverSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("ping %s: %w", cfg.AccountStoreDriver, err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")
	observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start))
	return db, nil
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
