package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUnknownColumn        = errors.New("unknown subscription column")

	ErrNoPrice         = errors.New("subscription has no line item price")
	ErrPlanNotResolved = errors.New("no plan matches the subscription price")
	ErrNoInvoiceLines  = errors.New("invoice has no line items")

	ErrCatalogUnavailable = errors.New("plan catalog unavailable")

	ErrMissingSignature     = errors.New("missing webhook signature")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrWebhookSecretMissing = errors.New("webhook signing secret is not configured")

	ErrMissingAPIKey = errors.New("billing provider API key is required")
	ErrProviderError = errors.New("billing provider error")
)

// HandlerError carries the handler and the operation that failed.
type HandlerError struct {
	Handler   string
	Operation string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Handler, e.Operation, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func handlerError(handler, operation string, err error) error {
	return &HandlerError{Handler: handler, Operation: operation, Err: err}
}
