package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// RecordBuilder turns a processor subscription into a Record.
// It reads from the catalog and the billing client but never writes.
type RecordBuilder struct {
	resolver *Resolver
	billing  BillingClient
	log      *slog.Logger
	now      func() time.Time
}

// NewRecordBuilder creates a builder. Panics if resolver or billing is nil.
func NewRecordBuilder(resolver *Resolver, billing BillingClient, opts ...Option) *RecordBuilder {
	if resolver == nil {
		panic("subscription: resolver cannot be nil")
	}
	if billing == nil {
		panic("subscription: billing client cannot be nil")
	}
	o := newOptions(opts)
	return &RecordBuilder{
		resolver: resolver,
		billing:  billing,
		log:      o.log.With(logger.Component("record_builder")),
		now:      o.now,
	}
}

// Build produces the record to persist for sub.
// A subscription without a price or with an unresolvable price is logged
// and reported as ErrNoPrice or ErrPlanNotResolved.
func (b *RecordBuilder) Build(ctx context.Context, sub *RemoteSubscription) (*Record, error) {
	log := b.log.With(logger.SubscriptionID(sub.ID))

	item := sub.FirstItem()
	if item == nil || item.Price == nil || item.Price.ID == "" {
		log.ErrorContext(ctx, "subscription has no price")
		return nil, fmt.Errorf("%w: %s", ErrNoPrice, sub.ID)
	}
	price := item.Price

	plan, err := b.resolver.FetchPlanByPriceID(ctx, price.ID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		log.ErrorContext(ctx, "no plan for subscription price", logger.PriceID(price.ID))
		return nil, fmt.Errorf("%w: price %s", ErrPlanNotResolved, price.ID)
	}

	card, err := b.card(ctx, sub.DefaultPaymentMethod)
	if err != nil {
		return nil, err
	}

	now := b.now().UTC()
	rec := &Record{
		StripeSubscriptionID: sub.ID,
		UserID:               sub.UserID(),
		StripeCustomerID:     sub.CustomerID,
		StripePriceID:        price.ID,
		PlanID:               plan.ID,
		Status:               sub.Status,
		BillingInterval:      price.Interval,
		Amount:               price.UnitAmount,
		CanceledAt:           unixTime(sub.CanceledAt),
		CancelAt:             unixTime(sub.CancelAt),
		CurrentPeriodStart:   unixTime(firstNonZero(item.CurrentPeriodStart, sub.CurrentPeriodStart)),
		CurrentPeriodEnd:     unixTime(firstNonZero(item.CurrentPeriodEnd, sub.CurrentPeriodEnd)),
		TrialStart:           unixTime(sub.TrialStart),
		TrialEnd:             unixTime(sub.TrialEnd),
		UpdatedAt:            now,
	}
	if card != nil {
		rec.CardLast4 = card.Last4
		rec.CardType = card.Brand
	}

	// a canceled record always carries its cancellation time
	if rec.Status == StatusCanceled && rec.CanceledAt == nil {
		rec.CanceledAt = unixTime(sub.EndedAt)
		if rec.CanceledAt == nil {
			rec.CanceledAt = &now
		}
	}

	log.DebugContext(ctx, "subscription record built",
		logger.UserID(rec.UserID),
		logger.CustomerID(rec.StripeCustomerID),
		logger.PlanID(rec.PlanID),
		logger.PriceID(rec.StripePriceID),
	)
	return rec, nil
}

func (b *RecordBuilder) card(ctx context.Context, pm *PaymentMethod) (*Card, error) {
	if pm == nil || pm.ID == "" {
		return nil, nil
	}
	if pm.Expanded {
		return pm.Card, nil
	}
	full, err := b.billing.GetPaymentMethod(ctx, pm.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment method %s: %w", pm.ID, err)
	}
	if full == nil {
		return nil, nil
	}
	return full.Card, nil
}

func firstNonZero(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
