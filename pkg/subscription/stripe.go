package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeVerifier checks the Stripe-Signature header of webhook payloads.
type StripeVerifier struct {
	secret string
}

// NewStripeVerifier creates a verifier for the endpoint signing secret.
// An empty secret is accepted; Verify then fails with ErrWebhookSecretMissing.
func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

// Verify authenticates payload and returns the event envelope.
func (v *StripeVerifier) Verify(payload []byte, signature string) (*Event, error) {
	if v.secret == "" {
		return nil, ErrWebhookSecretMissing
	}
	if signature == "" {
		return nil, ErrMissingSignature
	}

	// events are decoded field by field, so the account API version does not matter
	se, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if se.Data == nil || len(se.Data.Raw) == 0 {
		return nil, errors.Join(ErrInvalidPayload, errors.New("event has no data object"))
	}

	return &Event{
		ID:      se.ID,
		Type:    EventType(se.Type),
		Created: time.Unix(se.Created, 0).UTC(),
		Data:    se.Data.Raw,
	}, nil
}

// StripeClient implements BillingClient on top of the Stripe API.
type StripeClient struct {
	sc *stripe.Client
}

// NewStripeClient creates a client from cfg.
func NewStripeClient(cfg StripeConfig) (*StripeClient, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &StripeClient{sc: stripe.NewClient(cfg.SecretKey)}, nil
}

// NewStripeClientFrom wraps an existing Stripe client, e.g. one with custom backends.
func NewStripeClientFrom(sc *stripe.Client) *StripeClient {
	if sc == nil {
		panic("subscription: stripe client cannot be nil")
	}
	return &StripeClient{sc: sc}
}

// GetSubscription retrieves a subscription with its item prices.
func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error) {
	params := &stripe.SubscriptionRetrieveParams{}
	params.AddExpand("items.data.price")

	s, err := c.sc.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}
	return fromStripeSubscription(s), nil
}

// GetPaymentMethod retrieves a payment method.
func (c *StripeClient) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	pm, err := c.sc.V1PaymentMethods.Retrieve(ctx, paymentMethodID, nil)
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}
	out := &PaymentMethod{ID: pm.ID, Expanded: true}
	if pm.Card != nil && pm.Card.Last4 != "" {
		out.Card = &Card{Last4: pm.Card.Last4, Brand: string(pm.Card.Brand)}
	}
	return out, nil
}

// ChangePrice swaps the item price and prorates the difference.
func (c *StripeClient) ChangePrice(ctx context.Context, subscriptionID, itemID, priceID string) error {
	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{{
			ID:    stripe.String(itemID),
			Price: stripe.String(priceID),
		}},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.SetIdempotencyKey(PriceChangeIdempotencyKey(subscriptionID, priceID))

	if _, err := c.sc.V1Subscriptions.Update(ctx, subscriptionID, params); err != nil {
		return errors.Join(ErrProviderError, err)
	}
	return nil
}

// CancelAtPeriodEnd schedules the subscription to end with the current period.
func (c *StripeClient) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.SetIdempotencyKey(CancelIdempotencyKey(subscriptionID))

	if _, err := c.sc.V1Subscriptions.Update(ctx, subscriptionID, params); err != nil {
		return errors.Join(ErrProviderError, err)
	}
	return nil
}

// PriceChangeIdempotencyKey is the key sent with a price change request.
// Retried webhooks for the same target price reuse it.
func PriceChangeIdempotencyKey(subscriptionID, priceID string) string {
	return fmt.Sprintf("billsync-price-%s-%s", subscriptionID, priceID)
}

// CancelIdempotencyKey is the key sent with a cancel-at-period-end request.
func CancelIdempotencyKey(subscriptionID string) string {
	return fmt.Sprintf("billsync-cancel-%s", subscriptionID)
}

func fromStripeSubscription(s *stripe.Subscription) *RemoteSubscription {
	out := &RemoteSubscription{
		ID:         s.ID,
		Status:     Status(s.Status),
		Metadata:   s.Metadata,
		CanceledAt: s.CanceledAt,
		CancelAt:   s.CancelAt,
		EndedAt:    s.EndedAt,
		TrialStart: s.TrialStart,
		TrialEnd:   s.TrialEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.DefaultPaymentMethod != nil && s.DefaultPaymentMethod.ID != "" {
		out.DefaultPaymentMethod = &PaymentMethod{ID: s.DefaultPaymentMethod.ID}
	}
	if s.Items == nil {
		return out
	}
	for _, it := range s.Items.Data {
		if it == nil {
			continue
		}
		item := SubscriptionItem{
			ID:                 it.ID,
			CurrentPeriodStart: it.CurrentPeriodStart,
			CurrentPeriodEnd:   it.CurrentPeriodEnd,
		}
		if it.Price != nil && it.Price.ID != "" {
			item.Price = &Price{ID: it.Price.ID, UnitAmount: it.Price.UnitAmount}
			if it.Price.Recurring != nil {
				item.Price.Interval = BillingInterval(it.Price.Recurring.Interval)
			}
		}
		out.Items = append(out.Items, item)
	}
	return out
}
