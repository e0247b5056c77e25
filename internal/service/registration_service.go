package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	"github.com/sandeepkv93/account-verification-service/internal/security"
	"github.com/sandeepkv93/account-verification-service/internal/validation"
)

type RegistrationResult struct {
	AccountID         string `json:"account_id"`
	RegistrationToken string `json:"registration_token"`
}

type RegistrationService struct {
	accounts repository.AccountRepository
	hasher   security.PasswordHasher
	logger   *slog.Logger
	now      func() time.Time
	newToken func() (string, error)
}

func NewRegistrationService(accounts repository.AccountRepository, hasher security.PasswordHasher, logger *slog.Logger) *RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{
		accounts: accounts,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
		newToken: security.NewRegistrationToken,
	}
}

// Register creates an unverified account holding a fresh registration token.
// No email is sent.
func (s *RegistrationService) Register(ctx context.Context, email, password string) (*RegistrationResult, error) {
	ctx, span := observability.StartSpan(ctx, "registration.register")
	defer span.End()

	email = strings.ToLower(email)
	if !validation.IsValidEmail(email) {
		observability.RecordRegisterAttempt(ctx, "invalid_email")
		return nil, ErrInvalidEmail
	}
	if err := validation.ValidatePassword(password); err != nil {
		observability.RecordRegisterAttempt(ctx, "weak_password")
		return nil, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.ErrorContext(ctx, "password hashing failed", "error", err)
		observability.RecordRegisterAttempt(ctx, "error")
		return nil, ErrAccountCreationFailed
	}
	token, err := s.newToken()
	if err != nil {
		s.logger.ErrorContext(ctx, "registration token generation failed", "error", err)
		observability.RecordRegisterAttempt(ctx, "error")
		return nil, ErrAccountCreationFailed
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		IsEmailVerified:   false,
		RegistrationToken: &token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			observability.RecordRegisterAttempt(ctx, "conflict")
			return nil, ErrEmailAlreadyRegistered
		}
		s.logger.ErrorContext(ctx, "account create failed", "error", err)
		observability.RecordRegisterAttempt(ctx, "error")
		return nil, ErrAccountCreationFailed
	}

	observability.RecordRegisterAttempt(ctx, "success")
	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID)
	return &RegistrationResult{AccountID: account.ID, RegistrationToken: token}, nil
}
