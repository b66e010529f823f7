// Command billingd keeps local subscription state in line with Stripe.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "billingd",
		Short:         "Stripe webhook receiver and subscription reconciler",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSlice("env-file", nil, "dotenv files to load before reading configuration")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		files, err := cmd.Flags().GetStringSlice("env-file")
		if err != nil {
			return err
		}
		return loadEnvFiles(files)
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newPlansCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "billingd %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "billingd:", err)
		stop()
		os.Exit(1)
	}
}
