package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sandeepkv93/account-verification-service/internal/observability"
)

// RetryingEmailSender retries GENERAL_ERROR failures with exponential backoff.
// Sandbox and quota failures are returned immediately.
type RetryingEmailSender struct {
	next        EmailSender
	provider    string
	maxRetries  uint64
	baseBackoff time.Duration
	logger      *slog.Logger
}

func NewRetryingEmailSender(next EmailSender, provider string, maxRetries int, baseBackoff time.Duration, logger *slog.Logger) *RetryingEmailSender {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseBackoff <= 0 {
		baseBackoff = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingEmailSender{
		next:        next,
		provider:    provider,
		maxRetries:  uint64(maxRetries),
		baseBackoff: baseBackoff,
		logger:      logger,
	}
}

func (s *RetryingEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseBackoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.next.Send(ctx, msg)
		if err == nil {
			return nil
		}
		de := asDeliveryError(err)
		if de.Code == EmailErrorGeneral && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "email delivery attempt failed",
				"provider", s.provider,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(de)
		}
		return de
	})
	if err != nil {
		var de *EmailDeliveryError
		if !errors.As(err, &de) {
			de = asDeliveryError(err)
		}
		observability.RecordEmailDelivery(ctx, s.provider, de.Code)
		return de
	}
	observability.RecordEmailDelivery(ctx, s.provider, "sent")
	return nil
}
