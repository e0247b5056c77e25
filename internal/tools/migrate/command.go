package migrate

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/database"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/tools/common"
)

func NewRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Account store schema tooling",
	}
	opts.Bind(cmd, 30*time.Second)

	cmd.AddCommand(
		newStepCommand(opts, "up", "Create the accounts table or apply SQL migrations", Up),
		newStepCommand(opts, "status", "Report whether the accounts table is ready", Status),
		newStepCommand(opts, "plan", "Show what up would change without mutating anything", Plan),
	)
	return cmd
}

type step func(ctx context.Context, store *database.AccountStore, table string) ([]string, error)

func newStepCommand(opts *common.Options, name, short string, fn step) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(opts, "migrate", name, func(ctx context.Context) ([]string, error) {
				cfg, err := config.Load()
				if err != nil {
					return nil, err
				}
				store, err := database.OpenAccountStore(ctx, cfg, observability.NewBootstrapLogger(cfg), false)
				if err != nil {
					return nil, err
				}
				defer func() { _ = store.Close() }()
				return fn(ctx, store, cfg.DynamoDBTable)
			})
		},
	}
}
