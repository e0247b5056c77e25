package database

import (
	"context"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/observability"

	"gorm.io/gorm"
)

func Migrate(ctx context.Context, db *gorm.DB) error {
	start := time.Now()
	if err := db.WithContext(ctx).AutoMigrate(&domain.Account{}); err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", "success")
	observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start))
	return nil
}

// SQLTableStatus reports whether the accounts table exists and which of the
// model's columns are missing from it.
func SQLTableStatus(db *gorm.DB) (exists bool, missingColumns []string, err error) {
	m := db.Migrator()
	if !m.HasTable(&domain.Account{}) {
		return false, nil, nil
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(&domain.Account{}); err != nil {
		return true, nil, err
	}
	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" {
			continue
		}
		if !m.HasColumn(&domain.Account{}, field.DBName) {
			missingColumns = append(missingColumns, field.DBName)
		}
	}
	return true, missingColumns, nil
}
