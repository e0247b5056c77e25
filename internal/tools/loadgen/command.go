package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-verification-service/internal/tools/common"
)

type options struct {
	common.Options
	cfg Config
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "loadgen", Short: "Generate account API traffic"}
	opts.Bind(cmd, 45*time.Second)
	f := cmd.PersistentFlags()
	f.StringVar(&opts.cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&opts.cfg.Profile, "profile", "mixed", "traffic profile: signup|login|mixed|error-heavy")
	f.DurationVar(&opts.cfg.Duration, "duration", 15*time.Second, "traffic duration")
	f.IntVar(&opts.cfg.RPS, "rps", 20, "requests per second")
	f.IntVar(&opts.cfg.Concurrency, "concurrency", 6, "concurrent workers")
	f.StringVar(&opts.cfg.RunID, "run-id", "", "suffix for generated signup emails (default: unix time)")
	f.StringVar(&opts.cfg.LoginEmail, "login-email", "verified@example.com", "seeded verified account used by the login profile")
	f.StringVar(&opts.cfg.LoginPassword, "login-password", "Passw0rd!", "password of the seeded login account")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Timeout < opts.cfg.Duration {
				opts.Timeout = opts.cfg.Duration + 15*time.Second
			}
			return common.Run(&opts.Options, "loadgen", "run", func(ctx context.Context) ([]string, error) {
				res, err := Run(ctx, opts.cfg)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("total_requests=%d", res.TotalRequests),
					fmt.Sprintf("failures=%d", res.Failures),
					fmt.Sprintf("status_2xx=%d", res.Status2xx),
					fmt.Sprintf("status_4xx=%d", res.Status4xx),
					fmt.Sprintf("status_5xx=%d", res.Status5xx),
				}, nil
			})
		},
	}
}
