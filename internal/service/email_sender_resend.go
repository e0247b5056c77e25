package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/samber/oops"
)

type ResendEmailSender struct {
	from   string
	client *resend.Client
}

func NewResendEmailSender(apiKey, from string) (*ResendEmailSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailSender{from: from, client: resend.NewClient(apiKey)}, nil
}

func (s *ResendEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}
	if _, err := s.client.Emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{}); err != nil {
		return classifyResendError(err)
	}
	return nil
}

func classifyResendError(err error) *EmailDeliveryError {
	wrapped := oops.Code("EMAIL_SEND_FAILED").With("provider", "resend").Wrap(err)
	msg := strings.ToLower(err.Error())

	var rateLimitErr *resend.RateLimitError
	switch {
	case strings.Contains(msg, "only send testing emails"), strings.Contains(msg, "verify a domain"):
		return &EmailDeliveryError{Code: EmailErrorSandboxRecipient, Message: "recipient is not allowed while the sending domain is unverified", Err: wrapped}
	case strings.Contains(msg, "daily") && strings.Contains(msg, "quota"):
		return &EmailDeliveryError{Code: EmailErrorDailyQuota, Message: "daily sending quota exceeded", Err: wrapped}
	case errors.As(err, &rateLimitErr):
		return &EmailDeliveryError{Code: EmailErrorGeneral, Message: "email provider rate limited the request", Err: wrapped}
	default:
		return &EmailDeliveryError{Code: EmailErrorGeneral, Message: "failed to send verification email", Err: wrapped}
	}
}
