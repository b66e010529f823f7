package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/billsync/pkg/config"
	"github.com/dmitrymomot/billsync/pkg/subscription"
	"github.com/dmitrymomot/billsync/svc/billing"
)

var errNoPlan = errors.New("no unique plan for price")

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect the plan catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <priceID>",
		Short: "Show the plan a Stripe price resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, log, err := loadApp()
			if err != nil {
				return err
			}
			var cfg billing.CatalogConfig
			if err := config.Load(&cfg); err != nil {
				return err
			}
			cfg.CacheEnabled = false

			catalog, _, cleanup, err := openCatalog(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			priceID := args[0]
			plan, err := subscription.NewResolver(catalog, log).FetchPlanByPriceID(ctx, priceID)
			if err != nil {
				return err
			}
			if plan == nil {
				return fmt.Errorf("%w %s", errNoPlan, priceID)
			}
			printPlan(cmd, plan, priceID)
			return nil
		},
	})
	return cmd
}

func printPlan(cmd *cobra.Command, plan *subscription.Plan, priceID string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "plan:     %s (%s)\n", plan.ID, plan.Name)
	fmt.Fprintf(out, "status:   %s\n", plan.Status)
	fmt.Fprintf(out, "monthly:  %s\n", plan.PriceMonthlyID)
	fmt.Fprintf(out, "yearly:   %s\n", plan.PriceYearlyID)
	if len(plan.PriceHistory) > 0 {
		fmt.Fprintf(out, "history:  %s\n", strings.Join(plan.PriceHistory, ", "))
	}

	var interval subscription.BillingInterval
	switch priceID {
	case plan.PriceMonthlyID:
		interval = subscription.BillingIntervalMonth
	case plan.PriceYearlyID:
		interval = subscription.BillingIntervalYear
	}
	switch {
	case interval != "":
		fmt.Fprintf(out, "price %s is current (%s)\n", priceID, interval)
	default:
		fmt.Fprintf(out, "price %s is historical and moves to the current price at renewal\n", priceID)
	}
	if subscription.IsPlanRetired(plan) {
		fmt.Fprintln(out, "plan is retired: subscriptions are canceled at period end")
	}
}
