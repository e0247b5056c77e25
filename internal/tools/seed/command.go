package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-verification-service/internal/database"
	"github.com/sandeepkv93/account-verification-service/internal/di"
	"github.com/sandeepkv93/account-verification-service/internal/security"
	"github.com/sandeepkv93/account-verification-service/internal/tools/common"
	"github.com/sandeepkv93/account-verification-service/internal/validation"
)

type options struct {
	common.Options
	verified []string
	pending  []string
	password string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Fixture account tooling"}
	opts.Bind(cmd, time.Minute)
	cmd.PersistentFlags().StringSliceVar(&opts.verified, "verified", []string{"verified@example.com"}, "emails to create as verified accounts")
	cmd.PersistentFlags().StringSliceVar(&opts.pending, "pending", []string{"pending@example.com"}, "emails to create awaiting verification")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "Passw0rd!", "password for every seeded account")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Create fixture accounts that do not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(&opts.Options, "seed", "apply", func(ctx context.Context) ([]string, error) {
				seeds, err := buildSeeds(opts.verified, opts.pending, opts.password)
				if err != nil {
					return nil, err
				}
				store, err := di.InitializeAccountStore()
				if err != nil {
					return nil, err
				}
				defer func() { _ = store.Close() }()
				report, err := database.SeedAccounts(ctx, store.Accounts, security.NewPasswordHasher(), seeds)
				if err != nil {
					return nil, err
				}
				return describeReport(store.Driver, report), nil
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show the fixture accounts apply would create",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(&opts.Options, "seed", "dry-run", func(ctx context.Context) ([]string, error) {
				seeds, err := buildSeeds(opts.verified, opts.pending, opts.password)
				if err != nil {
					return nil, err
				}
				details := make([]string, 0, len(seeds)+1)
				for _, s := range seeds {
					state := "pending"
					if s.Verified {
						state = "verified"
					}
					details = append(details, fmt.Sprintf("would create %s (%s) unless it exists", s.Email, state))
				}
				return append(details, "no mutation executed in dry-run mode"), nil
			})
		},
	}
}

func buildSeeds(verified, pending []string, password string) ([]database.SeedAccount, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("seed password: %w", err)
	}
	seen := map[string]bool{}
	var seeds []database.SeedAccount
	add := func(emails []string, isVerified bool) error {
		for _, e := range emails {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" || seen[e] {
				continue
			}
			if !validation.IsValidEmail(e) {
				return fmt.Errorf("invalid seed email %q", e)
			}
			seen[e] = true
			seeds = append(seeds, database.SeedAccount{Email: e, Password: password, Verified: isVerified})
		}
		return nil
	}
	if err := add(verified, true); err != nil {
		return nil, err
	}
	if err := add(pending, false); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seed accounts requested")
	}
	return seeds, nil
}

func describeReport(driver string, report *database.SeedReport) []string {
	details := []string{"driver: " + driver}
	for _, e := range report.Created {
		details = append(details, "created "+e)
	}
	for _, e := range report.Skipped {
		details = append(details, "skipped "+e+" (already exists)")
	}
	if report.Noop {
		details = append(details, "nothing to do")
	}
	return details
}
