package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	"github.com/sandeepkv93/account-verification-service/internal/security"
)

type SeedAccount struct {
	Email    string
	Password string
	Verified bool
}

type SeedReport struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
	Noop    bool     `json:"noop"`
}

// SeedAccounts inserts fixture accounts for local development and load tests.
// Accounts that already exist are skipped, so reruns are idempotent.
func SeedAccounts(ctx context.Context, accounts repository.AccountRepository, hasher security.PasswordHasher, seeds []SeedAccount) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report := &SeedReport{}
	for _, s := range seeds {
		email := strings.ToLower(s.Email)
		hash, err := hasher.Hash(s.Password)
		if err != nil {
			observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
			return nil, fmt.Errorf("hash password for %s: %w", email, err)
		}
		now := time.Now().UTC()
		account := &domain.Account{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if s.Verified {
			account.IsEmailVerified = true
			account.EmailVerifiedAt = &now
		} else {
			token, err := security.NewRegistrationToken()
			if err != nil {
				return nil, err
			}
			account.RegistrationToken = &token
		}

		if err := accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				report.Skipped = append(report.Skipped, email)
				continue
			}
			observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
			return nil, fmt.Errorf("seed %s: %w", email, err)
		}
		report.Created = append(report.Created, email)
	}
	report.Noop = len(report.Created) == 0
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}
