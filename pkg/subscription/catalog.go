package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// PlanCatalog looks up plan definitions by processor price id.
// Implementations return every plan whose monthly, yearly or historical price
// equals priceID; an empty result is not an error.
type PlanCatalog interface {
	FindByPriceID(ctx context.Context, priceID string) ([]Plan, error)
}

// Resolver maps a price id to exactly one plan.
type Resolver struct {
	catalog PlanCatalog
	log     *slog.Logger
}

// NewResolver creates a resolver over catalog. Panics if catalog is nil.
func NewResolver(catalog PlanCatalog, log *slog.Logger) *Resolver {
	if catalog == nil {
		panic("subscription: plan catalog cannot be nil")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{catalog: catalog, log: log.With(logger.Component("plan_resolver"))}
}

// FetchPlanByPriceID returns the single plan priced at priceID.
// Zero or several matches are a catalog data problem: it is logged and
// (nil, nil) is returned. An error is returned only when the catalog
// cannot be queried.
func (r *Resolver) FetchPlanByPriceID(ctx context.Context, priceID string) (*Plan, error) {
	if priceID == "" {
		r.log.WarnContext(ctx, "plan lookup without price id")
		return nil, nil
	}

	plans, err := r.catalog.FindByPriceID(ctx, priceID)
	if err != nil {
		return nil, errors.Join(ErrCatalogUnavailable, err)
	}

	// the catalog filter may be looser than an exact match
	matches := make([]Plan, 0, len(plans))
	for _, p := range plans {
		if p.MatchesPrice(priceID) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 1:
		plan := matches[0]
		return &plan, nil
	case 0:
		r.log.WarnContext(ctx, "no plan found for price", logger.PriceID(priceID))
		return nil, nil
	default:
		ids := make([]string, len(matches))
		for i, p := range matches {
			ids[i] = p.ID
		}
		r.log.WarnContext(ctx, "multiple plans found for price",
			logger.PriceID(priceID),
			slog.Any("plan_ids", ids),
		)
		return nil, nil
	}
}
