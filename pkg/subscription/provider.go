package subscription

import (
	"context"
	"encoding/json"
	"time"
)

// BillingClient is the subset of the payment processor API used by the handlers.
type BillingClient interface {
	// GetSubscription fetches the current state of a subscription.
	GetSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)

	// GetPaymentMethod fetches a payment method by id.
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)

	// ChangePrice moves a subscription item to priceID with proration.
	ChangePrice(ctx context.Context, subscriptionID, itemID, priceID string) error

	// CancelAtPeriodEnd schedules cancellation at the end of the current period.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// Event is a verified inbound webhook event.
type Event struct {
	ID      string
	Type    EventType
	Created time.Time
	// Data is the raw JSON of the event object.
	Data json.RawMessage
}

// RemoteSubscription is the processor-side subscription object.
type RemoteSubscription struct {
	ID                   string
	CustomerID           string
	Status               Status
	Items                []SubscriptionItem
	DefaultPaymentMethod *PaymentMethod
	Metadata             map[string]string

	CanceledAt         int64
	CancelAt           int64
	EndedAt            int64
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	TrialStart         int64
	TrialEnd           int64
}

// FirstItem returns the first line item, or nil.
// Subscriptions are assumed to carry a single item.
func (s *RemoteSubscription) FirstItem() *SubscriptionItem {
	if s == nil || len(s.Items) == 0 {
		return nil
	}
	return &s.Items[0]
}

// UserID returns the platform user id stored in the subscription metadata.
func (s *RemoteSubscription) UserID() string {
	if s == nil {
		return ""
	}
	if id := s.Metadata["userId"]; id != "" {
		return id
	}
	return s.Metadata["user_id"]
}

// SubscriptionItem is one line item of a subscription.
type SubscriptionItem struct {
	ID                 string
	Price              *Price
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
}

// Price is a processor price.
type Price struct {
	ID         string
	UnitAmount int64
	Interval   BillingInterval
}

// PaymentMethod references a payment method. Expanded is false when the
// event only carried its id and the details must be fetched.
type PaymentMethod struct {
	ID       string
	Expanded bool
	Card     *Card
}

// Card summarises a card payment method.
type Card struct {
	Last4 string
	Brand string
}

// Invoice is the processor-side invoice object.
type Invoice struct {
	ID             string
	SubscriptionID string
	CustomerID     string
	Lines          []InvoiceLine
}

// FirstLine returns the first invoice line, or nil.
func (i *Invoice) FirstLine() *InvoiceLine {
	if i == nil || len(i.Lines) == 0 {
		return nil
	}
	return &i.Lines[0]
}

// InvoiceLine is a single invoice line.
type InvoiceLine struct {
	ID          string
	PriceID     string
	PeriodStart int64
	PeriodEnd   int64
}
