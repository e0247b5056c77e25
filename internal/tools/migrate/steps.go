package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/database"
)

// Up makes the store ready to hold accounts. SQL runs AutoMigrate, DynamoDB
// creates the table and Redis needs nothing.
func Up(ctx context.Context, store *database.AccountStore, table string) ([]string, error) {
	details := []string{"driver: " + store.Driver}
	switch store.Driver {
	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		if err := database.Migrate(ctx, store.DB); err != nil {
			return details, err
		}
		return append(details, "schema migration applied"), nil
	case config.StoreDriverDynamoDB:
		created, err := database.EnsureDynamoDBTable(ctx, store.DynamoDB, table)
		if err != nil {
			return details, err
		}
		if created {
			return append(details, fmt.Sprintf("table %s created (hash key email, on-demand billing)", table)), nil
		}
		return append(details, fmt.Sprintf("table %s already exists", table)), nil
	case config.StoreDriverRedis:
		return append(details, "redis keeps accounts as hashes; no schema to apply"), nil
	default:
		return details, fmt.Errorf("unsupported account store driver %q", store.Driver)
	}
}

func Status(ctx context.Context, store *database.AccountStore, table string) ([]string, error) {
	details := []string{"driver: " + store.Driver}
	if err := store.Accounts.Ping(ctx); err != nil {
		return details, fmt.Errorf("store unreachable: %w", err)
	}
	details = append(details, "store reachable")

	switch store.Driver {
	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		exists, missing, err := database.SQLTableStatus(store.DB)
		if err != nil {
			return details, err
		}
		switch {
		case !exists:
			return append(details, "accounts table: missing"), nil
		case len(missing) > 0:
			return append(details, "accounts table: missing columns "+strings.Join(missing, ", ")), nil
		}
		return append(details, "accounts table: ready"), nil
	case config.StoreDriverDynamoDB:
		status, err := database.DynamoDBTableStatus(ctx, store.DynamoDB, table)
		if err != nil {
			return details, err
		}
		if status == "" {
			return append(details, fmt.Sprintf("table %s: missing", table)), nil
		}
		return append(details, fmt.Sprintf("table %s: %s", table, status)), nil
	default:
		return append(details, "no schema required"), nil
	}
}

func Plan(ctx context.Context, store *database.AccountStore, table string) ([]string, error) {
	details := []string{"driver: " + store.Driver}
	switch store.Driver {
	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		exists, missing, err := database.SQLTableStatus(store.DB)
		if err != nil {
			return details, err
		}
		switch {
		case !exists:
			details = append(details, "would create table accounts")
		case len(missing) > 0:
			details = append(details, "would add columns: "+strings.Join(missing, ", "))
		default:
			details = append(details, "schema up to date")
		}
	case config.StoreDriverDynamoDB:
		status, err := database.DynamoDBTableStatus(ctx, store.DynamoDB, table)
		if err != nil {
			return details, err
		}
		if status == "" {
			details = append(details, fmt.Sprintf("would create table %s (hash key email, on-demand billing)", table))
		} else {
			details = append(details, fmt.Sprintf("table %s exists (%s)", table, status))
		}
	default:
		details = append(details, "nothing to apply")
	}
	return append(details, "no mutation executed in plan mode"), nil
}
