package subscription

import "context"

// Store persists subscription records. Errors from the underlying storage
// are returned as-is and never swallowed.
type Store interface {
	// Upsert inserts the record or replaces the builder-owned columns of
	// the existing row with the same StripeSubscriptionID.
	Upsert(ctx context.Context, rec *Record) error

	// Update writes fields into an existing row.
	// Returns ErrSubscriptionNotFound when no row matches.
	Update(ctx context.Context, subscriptionID string, fields Fields) error

	// Get returns the requested columns of a row, or (nil, nil) when
	// there is no row. No columns means all of them.
	Get(ctx context.Context, subscriptionID string, columns ...Column) (*Record, error)
}

// Transactor is implemented by stores able to run fn atomically.
// The Store passed to fn must be used for every call inside the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
