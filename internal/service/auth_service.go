package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	"github.com/sandeepkv93/account-verification-service/internal/security"
)

const DefaultSessionTTL = 24 * time.Hour

type LoginResult struct {
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	SessionToken string    `json:"-"`
	CSRFToken    string    `json:"csrf_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthService struct {
	accounts   repository.AccountRepository
	hasher     security.PasswordHasher
	signer     security.TokenSigner
	sessionTTL time.Duration
	logger     *slog.Logger
	newCSRF    func() (string, error)
}

func NewAuthService(accounts repository.AccountRepository, hasher security.PasswordHasher, signer security.TokenSigner, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		accounts:   accounts,
		hasher:     hasher,
		signer:     signer,
		sessionTTL: sessionTTL,
		logger:     logger,
		newCSRF:    security.NewCSRFToken,
	}
}

func (s *AuthService) SessionTTL() time.Duration { return s.sessionTTL }

// Authenticate checks the password before the verified flag so an unverified
// account is only revealed to callers who know its password.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := observability.StartSpan(ctx, "auth.authenticate")
	defer span.End()

	email = strings.ToLower(email)
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordLoginAttempt(ctx, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "account lookup failed", "error", err)
		observability.RecordLoginAttempt(ctx, "error")
		return nil, ErrAuthenticationFailed
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		observability.RecordLoginAttempt(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !account.IsEmailVerified {
		observability.RecordLoginAttempt(ctx, "unverified")
		return nil, ErrNotVerified
	}

	token, expiresAt, err := s.signer.SignSessionToken(account.ID, account.Email, s.sessionTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "session token signing failed", "error", err)
		observability.RecordLoginAttempt(ctx, "error")
		return nil, ErrAuthenticationFailed
	}
	csrf, err := s.newCSRF()
	if err != nil {
		s.logger.ErrorContext(ctx, "csrf token generation failed", "error", err)
		observability.RecordLoginAttempt(ctx, "error")
		return nil, ErrAuthenticationFailed
	}
	observability.RecordLoginAttempt(ctx, "success")
	return &LoginResult{
		AccountID:    account.ID,
		Email:        account.Email,
		SessionToken: token,
		CSRFToken:    csrf,
		ExpiresAt:    expiresAt,
	}, nil
}

// Profile returns the account for an authenticated session.
func (s *AuthService) Profile(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "account lookup failed", "error", err)
		return nil, ErrAuthenticationFailed
	}
	return account, nil
}
