package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	"github.com/sandeepkv93/account-verification-service/internal/security"
	"github.com/sandeepkv93/account-verification-service/internal/validation"
)

const (
	VerificationStatusSent     = "sent"
	VerificationStatusVerified = "verified"

	DefaultVerificationCodeTTL = 15 * time.Minute
)

type VerificationService struct {
	accounts repository.AccountRepository
	sender   EmailSender
	codeTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newCode  func() (string, error)
}

func NewVerificationService(accounts repository.AccountRepository, sender EmailSender, codeTTL time.Duration, logger *slog.Logger) *VerificationService {
	if codeTTL <= 0 {
		codeTTL = DefaultVerificationCodeTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationService{
		accounts: accounts,
		sender:   sender,
		codeTTL:  codeTTL,
		logger:   logger,
		now:      time.Now,
		newCode:  security.NewVerificationCode,
	}
}

// Issue stores a fresh code on the account holding registrationToken and
// emails it. It returns VerificationStatusSent on success.
func (s *VerificationService) Issue(ctx context.Context, email, registrationToken string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "verification.issue")
	defer span.End()

	email = strings.ToLower(email)
	if !validation.IsValidEmail(email) {
		observability.RecordVerificationIssue(ctx, "invalid_email")
		return "", ErrInvalidEmail
	}
	if registrationToken == "" {
		observability.RecordVerificationIssue(ctx, "missing_token")
		return "", ErrMissingToken
	}

	code, err := s.newCode()
	if err != nil {
		s.logger.ErrorContext(ctx, "verification code generation failed", "error", err)
		observability.RecordVerificationIssue(ctx, "error")
		return "", ErrIssuanceFailed
	}
	now := s.now().UTC()
	expiry := now.Add(s.codeTTL)
	patch := repository.AccountPatch{VerificationCode: &code, VerificationCodeExpiry: &expiry, At: now}
	cond := repository.AccountCondition{RegistrationToken: &registrationToken, Unverified: true}
	if err := s.accounts.UpdateIf(ctx, email, patch, cond); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			observability.RecordVerificationIssue(ctx, "condition_failed")
		} else {
			s.logger.ErrorContext(ctx, "verification code store failed", "error", err)
			observability.RecordVerificationIssue(ctx, "error")
		}
		return "", ErrIssuanceFailed
	}

	if err := s.sender.Send(ctx, NewVerificationEmail(email, code, s.codeTTL)); err != nil {
		de := asDeliveryError(err)
		s.logger.WarnContext(ctx, "verification email delivery failed", "code", de.Code, "error", err)
		observability.RecordVerificationIssue(ctx, "delivery_failed")
		return "", de
	}
	observability.RecordVerificationIssue(ctx, VerificationStatusSent)
	return VerificationStatusSent, nil
}

// Verify checks the token and code against the stored account and marks the
// email verified. The final write is guarded so a concurrent verify or
// reissue makes it fail with ErrInvalidToken.
func (s *VerificationService) Verify(ctx context.Context, email, registrationToken, code string) error {
	ctx, span := observability.StartSpan(ctx, "verification.verify")
	defer span.End()
	outcome := "error"
	defer func() { observability.RecordVerificationConfirm(ctx, outcome) }()

	if email == "" || registrationToken == "" || code == "" {
		outcome = "missing_fields"
		return ErrMissingFields
	}
	email = strings.ToLower(email)

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			outcome = "user_not_found"
			return ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "account lookup failed", "error", err)
		return ErrVerificationFailed
	}
	if account.RegistrationToken == nil || !constantTimeEqual(*account.RegistrationToken, registrationToken) {
		outcome = "invalid_token"
		return ErrInvalidToken
	}
	if account.VerificationCode == nil || !constantTimeEqual(*account.VerificationCode, code) {
		outcome = "invalid_code"
		return ErrInvalidCode
	}
	if account.VerificationCodeExpiry == nil {
		outcome = "expiry_missing"
		return ErrExpiryMissing
	}
	now := s.now().UTC()
	if account.VerificationCodeExpiry.Before(now) {
		outcome = "expired"
		return ErrCodeExpired
	}

	cond := repository.AccountCondition{RegistrationToken: &registrationToken, VerificationCode: &code, Unverified: true}
	if err := s.accounts.UpdateIf(ctx, email, repository.AccountPatch{MarkEmailVerified: true, At: now}, cond); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			outcome = "invalid_token"
			return ErrInvalidToken
		}
		s.logger.ErrorContext(ctx, "verification write failed", "error", err)
		return ErrVerificationFailed
	}
	outcome = VerificationStatusVerified
	s.logger.InfoContext(ctx, "email verified", "account_id", account.ID)
	return nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
