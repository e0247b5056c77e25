package common

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/tools/ui"
)

type Action func(ctx context.Context) ([]string, error)

// Options are the flags shared by every accountctl command group.
type Options struct {
	EnvFile string
	Timeout time.Duration
	CI      bool
}

func (o *Options) Bind(cmd *cobra.Command, defaultTimeout time.Duration) {
	cmd.PersistentFlags().StringVar(&o.EnvFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&o.Timeout, "timeout", defaultTimeout, "operation timeout")
	cmd.PersistentFlags().BoolVar(&o.CI, "ci", false, "non-interactive machine-readable output")
}

// Run loads the env file, executes fn either headless (--ci, JSON result on
// stdout) or behind the TUI, and records the tool command metrics.
func Run(opts *Options, tool, command string, fn Action) error {
	start := time.Now()
	title := tool + " " + command

	details, err := func() ([]string, error) {
		if err := LoadEnvFile(opts.EnvFile); err != nil {
			return nil, err
		}
		if opts.CI {
			ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
			defer cancel()
			return fn(ctx)
		}
		return ui.Run(title, opts.Timeout, fn)
	}()

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	elapsed := time.Since(start)
	ctx := context.Background()
	observability.RecordToolCommandRun(ctx, tool, command, outcome)
	observability.RecordToolCommandDuration(ctx, tool, command, outcome, elapsed)

	if opts.CI {
		_ = WriteCIResult(os.Stdout, NewCIResult(tool, command, elapsed, details, err))
	}
	return err
}
