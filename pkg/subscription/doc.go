// Package subscription reconciles local subscription records with the
// payment processor's billing state.
//
// Webhook events may arrive out of order, more than once, or be retried
// after a failure. The package keeps exactly one Record per processor
// subscription id and moves it forward using only what each event and the
// processor API report, so that replays never double-activate a
// subscription, push a failure marker forward, or lose a cancellation.
//
// # Components
//
//   - Resolver maps a processor price id to exactly one catalog Plan.
//   - RecordBuilder turns a RemoteSubscription into a Record.
//   - EventRouter verifies a webhook and dispatches it by EventType.
//   - Reconciler provides one HandlerFunc per event type.
//   - Store persists records; Transactor is optional.
//   - BillingClient wraps the processor API (StripeClient).
//
// # Usage
//
//	rec := subscription.NewReconciler(store, stripeClient, catalog,
//		subscription.WithLogger(log),
//	)
//	router := subscription.NewEventRouter(
//		subscription.NewStripeVerifier(cfg.WebhookSecret),
//		rec.Handlers(),
//	)
//	evt, err := router.Route(ctx, payload, r.Header.Get("Stripe-Signature"))
//
// Unknown event types are acknowledged with no side effect. Any handler
// error is returned so the caller can answer with a non-2xx status and let
// the processor retry.
//
// # Error Handling
//
// Errors raised inside a handler are wrapped in *HandlerError carrying the
// handler name and the failed operation. Use errors.Is with the package
// sentinels (ErrSubscriptionNotFound, ErrPlanNotResolved, ...) to classify them.
package subscription
