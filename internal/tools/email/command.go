package email

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/di"
	"github.com/sandeepkv93/account-verification-service/internal/security"
	"github.com/sandeepkv93/account-verification-service/internal/service"
	"github.com/sandeepkv93/account-verification-service/internal/tools/common"
	"github.com/sandeepkv93/account-verification-service/internal/validation"
)

const testEmailEnv = "TEST_EMAIL"

func NewRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{Use: "email", Short: "Email delivery tooling"}
	opts.Bind(cmd, time.Minute)
	cmd.AddCommand(newTestCommand(opts))
	return cmd
}

func newTestCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "test [address]",
		Short: "Send a sample verification email through the configured provider",
		Long:  "Sends a sample verification email. The address defaults to $" + testEmailEnv + ".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(opts, "email", "test", func(ctx context.Context) ([]string, error) {
				to, err := resolveRecipient(args, os.Getenv(testEmailEnv))
				if err != nil {
					return nil, err
				}
				cfg, err := config.Load()
				if err != nil {
					return nil, err
				}
				sender, err := di.InitializeEmailSender()
				if err != nil {
					return nil, err
				}
				details := []string{"provider: " + cfg.EmailProvider, "from: " + cfg.EmailFrom}
				sent, err := SendTest(ctx, sender, to, cfg.VerificationCodeTTL)
				return append(details, sent...), err
			})
		},
	}
}

func resolveRecipient(args []string, fallback string) (string, error) {
	to := fallback
	if len(args) > 0 {
		to = args[0]
	}
	to = strings.ToLower(to)
	if to == "" {
		return "", fmt.Errorf("recipient required: pass an address or set %s", testEmailEnv)
	}
	if !validation.IsValidEmail(to) {
		return "", fmt.Errorf("invalid recipient %q", to)
	}
	return to, nil
}

// SendTest delivers one verification email carrying a random code. Provider
// failures are reported with their delivery code.
func SendTest(ctx context.Context, sender service.EmailSender, to string, ttl time.Duration) ([]string, error) {
	code, err := security.NewVerificationCode()
	if err != nil {
		return nil, err
	}
	details := []string{"to: " + to}
	if err := sender.Send(ctx, service.NewVerificationEmail(to, code, ttl)); err != nil {
		var de *service.EmailDeliveryError
		if errors.As(err, &de) {
			details = append(details, "delivery code: "+de.Code)
		}
		return details, err
	}
	return append(details, "sent verification email with code "+code), nil
}
