package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-verification-service/internal/tools/email"
	"github.com/sandeepkv93/account-verification-service/internal/tools/loadgen"
	"github.com/sandeepkv93/account-verification-service/internal/tools/migrate"
	"github.com/sandeepkv93/account-verification-service/internal/tools/seed"
)

func main() {
	root := &cobra.Command{
		Use:          "accountctl",
		Short:        "Operational tooling for the account verification service",
		SilenceUsage: true,
	}
	root.AddCommand(
		migrate.NewRootCommand(),
		email.NewRootCommand(),
		seed.NewRootCommand(),
		loadgen.NewRootCommand(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}
