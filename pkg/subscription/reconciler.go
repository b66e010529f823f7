package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// HandlerFunc applies one verified event.
type HandlerFunc func(ctx context.Context, evt *Event) error

// Reconciler keeps local subscription records in line with processor events.
// It holds no per-event state; every handler reads what it needs from the
// event, the store and the billing client.
type Reconciler struct {
	store    Store
	billing  BillingClient
	resolver *Resolver
	builder  *RecordBuilder
	log      *slog.Logger
	now      func() time.Time
	observer Observer
}

// NewReconciler creates a reconciler. Panics if any dependency is nil.
func NewReconciler(store Store, billing BillingClient, catalog PlanCatalog, opts ...Option) *Reconciler {
	if store == nil {
		panic("subscription: store cannot be nil")
	}
	if billing == nil {
		panic("subscription: billing client cannot be nil")
	}
	if catalog == nil {
		panic("subscription: plan catalog cannot be nil")
	}

	o := newOptions(opts)
	resolver := NewResolver(catalog, o.log)
	return &Reconciler{
		store:    store,
		billing:  billing,
		resolver: resolver,
		builder:  NewRecordBuilder(resolver, billing, opts...),
		log:      o.log.With(logger.Component("reconciler")),
		now:      o.now,
		observer: o.observer,
	}
}

// Handlers returns the event type to handler table.
func (r *Reconciler) Handlers() map[EventType]HandlerFunc {
	return map[EventType]HandlerFunc{
		EventSubscriptionCreated: r.HandleSubscriptionCreated,
		EventSubscriptionUpdated: r.HandleSubscriptionUpdated,
		EventSubscriptionDeleted: r.HandleSubscriptionDeleted,
		EventInvoiceSucceeded:    r.HandleInvoiceSucceeded,
		EventInvoiceFailed:       r.HandleInvoiceFailed,
		EventInvoiceUpcoming:     r.HandleInvoiceUpcoming,
	}
}

// HandleSubscriptionCreated builds the record and upserts it.
func (r *Reconciler) HandleSubscriptionCreated(ctx context.Context, evt *Event) error {
	const h = HandlerSubscriptionCreated

	sub, err := DecodeSubscription(evt.Data)
	if err != nil {
		return r.reject(ctx, h, err)
	}

	return r.track(ctx, h, sub.ID, func() error {
		rec, err := r.builder.Build(ctx, sub)
		if err != nil {
			return handlerError(h, "build record", err)
		}
		if err := r.store.Upsert(ctx, rec); err != nil {
			return handlerError(h, "upsert subscription", err)
		}
		return nil
	})
}

// HandleSubscriptionUpdated rebuilds the record and replaces the built
// columns of the existing row. A missing row is an error so the processor
// retries until the created event has been applied.
func (r *Reconciler) HandleSubscriptionUpdated(ctx context.Context, evt *Event) error {
	const h = HandlerSubscriptionUpdated

	sub, err := DecodeSubscription(evt.Data)
	if err != nil {
		return r.reject(ctx, h, err)
	}

	return r.track(ctx, h, sub.ID, func() error {
		rec, err := r.builder.Build(ctx, sub)
		if err != nil {
			return handlerError(h, "build record", err)
		}
		if err := r.store.Update(ctx, sub.ID, rec.BuiltFields()); err != nil {
			return handlerError(h, "update subscription", err)
		}
		return nil
	})
}

// HandleSubscriptionDeleted marks the row canceled. Rows are never deleted.
func (r *Reconciler) HandleSubscriptionDeleted(ctx context.Context, evt *Event) error {
	const h = HandlerSubscriptionDeleted

	sub, err := DecodeSubscription(evt.Data)
	if err != nil {
		return r.reject(ctx, h, err)
	}

	return r.track(ctx, h, sub.ID, func() error {
		now := r.now().UTC()
		canceledAt := unixTime(sub.CanceledAt)
		if canceledAt == nil {
			canceledAt = &now
		}
		err := r.store.Update(ctx, sub.ID, Fields{
			ColumnStatus:     StatusCanceled,
			ColumnCanceledAt: canceledAt,
			ColumnUpdatedAt:  now,
		})
		if err != nil {
			return handlerError(h, "cancel subscription", err)
		}
		return nil
	})
}

// HandleInvoiceSucceeded activates the subscription for the paid period
// and clears any failure marker.
func (r *Reconciler) HandleInvoiceSucceeded(ctx context.Context, evt *Event) error {
	const h = HandlerInvoiceSucceeded

	inv, err := DecodeInvoice(evt.Data)
	if err != nil {
		return r.reject(ctx, h, err)
	}
	if inv.SubscriptionID == "" {
		r.skip(ctx, h, inv.ID)
		return nil
	}

	return r.track(ctx, h, inv.SubscriptionID, func() error {
		line := inv.FirstLine()
		if line == nil {
			return handlerError(h, "read invoice line", ErrNoInvoiceLines)
		}
		err := r.store.Update(ctx, inv.SubscriptionID, Fields{
			ColumnStatus:             StatusActive,
			ColumnCurrentPeriodStart: unixTime(line.PeriodStart),
			ColumnCurrentPeriodEnd:   unixTime(line.PeriodEnd),
			ColumnFailedAt:           nil,
			ColumnUpdatedAt:          r.now().UTC(),
		})
		if err != nil {
			return handlerError(h, "activate subscription", err)
		}
		return nil
	})
}

// HandleInvoiceFailed records the first failure of a failing streak.
// An existing marker is never moved forward.
func (r *Reconciler) HandleInvoiceFailed(ctx context.Context, evt *Event) error {
	const h = HandlerInvoiceFailed

	inv, err := DecodeInvoice(evt.Data)
	if err != nil {
		return r.reject(ctx, h, err)
	}
	if inv.SubscriptionID == "" {
		r.skip(ctx, h, inv.ID)
		return nil
	}

	return r.track(ctx, h, inv.SubscriptionID, func() error {
		return r.inTx(ctx, func(ctx context.Context, store Store) error {
			row, err := store.Get(ctx, inv.SubscriptionID, ColumnFailedAt)
			if err != nil {
				return handlerError(h, "read failure marker", err)
			}
			if row == nil {
				return handlerError(h, "read failure marker", ErrSubscriptionNotFound)
			}
			if row.FailedAt != nil {
				r.log.DebugContext(ctx, "payment failure already recorded",
					logger.SubscriptionID(inv.SubscriptionID),
					slog.Time("failed_at", *row.FailedAt),
				)
				return nil
			}

			now := r.now().UTC()
			err = store.Update(ctx, inv.SubscriptionID, Fields{
				ColumnFailedAt:  now,
				ColumnUpdatedAt: now,
			})
			if err != nil {
				return handlerError(h, "record failure", err)
			}
			return nil
		})
	})
}

// HandleInvoiceUpcoming moves the subscription to the plan's current price
// and schedules cancellation when the plan is retired. Both may happen for
// the same event. The plan comes from the price the invoice line bills; the
// subscription is still fetched for its item id.
func (r *Reconciler) HandleInvoiceUpcoming(ctx context.Context, evt *Event) error {
	const h = HandlerInvoiceUpcoming

	inv, err := DecodeInvoice(evt.Data)
	if err != nil {
		return r.reject(ctx, h, err)
	}
	if inv.SubscriptionID == "" {
		r.skip(ctx, h, inv.ID)
		return nil
	}
	subID := inv.SubscriptionID

	return r.track(ctx, h, subID, func() error {
		remote, err := r.billing.GetSubscription(ctx, subID)
		if err != nil {
			return handlerError(h, "fetch subscription", err)
		}
		item := remote.FirstItem()
		priceID := renewalPriceID(inv, item)
		if item == nil || priceID == "" {
			return handlerError(h, "read current price", ErrNoPrice)
		}

		plan, err := r.resolver.FetchPlanByPriceID(ctx, priceID)
		if err != nil {
			return handlerError(h, "resolve plan", err)
		}
		if plan == nil {
			return handlerError(h, "resolve plan", ErrPlanNotResolved)
		}

		row, err := r.store.Get(ctx, subID, ColumnStripePriceID, ColumnBillingInterval)
		if err != nil {
			return handlerError(h, "read stored price", err)
		}
		if row == nil {
			return handlerError(h, "read stored price", ErrSubscriptionNotFound)
		}

		if ShouldUpdatePlan(row.StripePriceID, row.BillingInterval, plan) {
			newPrice := PriceIDForInterval(plan, row.BillingInterval)
			if newPrice == "" {
				r.log.WarnContext(ctx, "no plan price for stored interval",
					logger.SubscriptionID(subID),
					slog.String("billing_interval", string(row.BillingInterval)),
				)
			} else {
				if err := r.billing.ChangePrice(ctx, subID, item.ID, newPrice); err != nil {
					return handlerError(h, "change price", err)
				}
				r.log.InfoContext(ctx, "subscription moved to current plan price",
					logger.SubscriptionID(subID),
					logger.PriceID(newPrice),
				)
			}
		}

		if IsPlanRetired(plan) {
			if err := r.billing.CancelAtPeriodEnd(ctx, subID); err != nil {
				return handlerError(h, "cancel at period end", err)
			}
			r.log.InfoContext(ctx, "retired plan scheduled for cancellation",
				logger.SubscriptionID(subID),
				logger.PlanID(plan.ID),
			)
		}
		return nil
	})
}

// renewalPriceID is the price the upcoming invoice bills, falling back to the
// subscription item's live price when the line carries none.
func renewalPriceID(inv *Invoice, item *SubscriptionItem) string {
	if line := inv.FirstLine(); line != nil && line.PriceID != "" {
		return line.PriceID
	}
	if item != nil && item.Price != nil {
		return item.Price.ID
	}
	return ""
}

func (r *Reconciler) inTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if tx, ok := r.store.(Transactor); ok {
		return tx.WithinTx(ctx, fn)
	}
	return fn(ctx, r.store)
}

func (r *Reconciler) track(ctx context.Context, handler, subscriptionID string, fn func() error) error {
	log := r.log.With(logger.Handler(handler), logger.SubscriptionID(subscriptionID))
	start := time.Now()
	log.InfoContext(ctx, handler+" started")

	if err := fn(); err != nil {
		d := time.Since(start)
		attrs := []any{logger.Duration(d), logger.Error(err)}
		var he *HandlerError
		if errors.As(err, &he) {
			attrs = append(attrs, logger.Operation(he.Operation))
		}
		log.ErrorContext(ctx, handler+" failed", attrs...)
		r.observe(handler, OutcomeError, d)
		return err
	}

	d := time.Since(start)
	log.InfoContext(ctx, handler+" completed", logger.Duration(d))
	r.observe(handler, OutcomeApplied, d)
	return nil
}

func (r *Reconciler) reject(ctx context.Context, handler string, err error) error {
	err = handlerError(handler, "decode event", err)
	r.log.ErrorContext(ctx, handler+" failed", logger.Handler(handler), logger.Error(err))
	r.observe(handler, OutcomeError, 0)
	return err
}

func (r *Reconciler) skip(ctx context.Context, handler, invoiceID string) {
	r.log.DebugContext(ctx, "invoice not linked to a subscription",
		logger.Handler(handler),
		slog.String("invoice_id", invoiceID),
	)
	r.observe(handler, OutcomeSkipped, 0)
}

func (r *Reconciler) observe(handler, outcome string, d time.Duration) {
	if r.observer != nil {
		r.observer.ObserveHandler(handler, outcome, d)
	}
}
