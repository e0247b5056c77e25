package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/samber/oops"
)

type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESEmailSender struct {
	client SESAPI
	from   string
}

func NewSESEmailSender(client SESAPI, from string) *SESEmailSender {
	return &SESEmailSender{client: client, from: from}
}

func (s *SESEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return classifySESError(err)
	}
	return nil
}

func classifySESError(err error) *EmailDeliveryError {
	wrapped := oops.Code("EMAIL_SEND_FAILED").With("provider", "ses").Wrap(err)

	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		msg := aws.ToString(rejected.Message)
		switch {
		case strings.Contains(msg, "Email address is not verified"):
			return &EmailDeliveryError{
				Code:    EmailErrorSandboxRecipient,
				Message: "recipient address is not verified while the sender is in the SES sandbox",
				Err:     wrapped,
			}
		case strings.Contains(msg, "Daily message quota exceeded"):
			return &EmailDeliveryError{Code: EmailErrorDailyQuota, Message: "daily sending quota exceeded", Err: wrapped}
		}
	}
	var limit *types.LimitExceededException
	if errors.As(err, &limit) {
		return &EmailDeliveryError{Code: EmailErrorDailyQuota, Message: "daily sending quota exceeded", Err: wrapped}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorMessage(), "Daily message quota exceeded") {
		return &EmailDeliveryError{Code: EmailErrorDailyQuota, Message: "daily sending quota exceeded", Err: wrapped}
	}
	return &EmailDeliveryError{Code: EmailErrorGeneral, Message: "failed to send verification email", Err: wrapped}
}
