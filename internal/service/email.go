package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"
)

type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers one message. Failures should be reported as
// *EmailDeliveryError so callers can act on the code.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

const verificationEmailSubject = "Verify your email"

func NewVerificationEmail(to, code string, ttl time.Duration) EmailMessage {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return EmailMessage{
		To:      to,
		Subject: verificationEmailSubject,
		Text: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.\n\n"+
			"If you did not create an account, you can ignore this email.", code, minutes),
		HTML: fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p>"+
			"<p>It expires in %d minutes.</p>"+
			"<p>If you did not create an account, you can ignore this email.</p>", html.EscapeString(code), minutes),
	}
}

// LogEmailSender writes messages to the application log instead of sending them.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.InfoContext(ctx, "email delivery skipped, logging message",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
