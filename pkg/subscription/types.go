package subscription

// Status mirrors the payment processor's subscription status.
type Status string

const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

// Valid reports whether s is one of the statuses the processor emits.
func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled,
		StatusIncomplete, StatusIncompleteExpired, StatusUnpaid, StatusPaused:
		return true
	}
	return false
}

// BillingInterval is the recurring interval of a price.
type BillingInterval string

const (
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

// PlanStatus marks whether a plan is still sold.
type PlanStatus string

const (
	PlanStatusActive  PlanStatus = "ACTIVE"
	PlanStatusRetired PlanStatus = "RETIRED"
)

// EventType identifies an inbound webhook event.
type EventType string

const (
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventInvoiceSucceeded    EventType = "invoice.payment_succeeded"
	EventInvoiceFailed       EventType = "invoice.payment_failed"
	EventInvoiceUpcoming     EventType = "invoice.upcoming"
)

// Handler names used in logs, errors and metrics.
const (
	HandlerSubscriptionCreated = "subscription_created"
	HandlerSubscriptionUpdated = "subscription_updated"
	HandlerSubscriptionDeleted = "subscription_deleted"
	HandlerInvoiceSucceeded    = "invoice_payment_succeeded"
	HandlerInvoiceFailed       = "invoice_payment_failed"
	HandlerInvoiceUpcoming     = "invoice_upcoming"
)

// Outcomes reported to an Observer.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)
