package subscription

import (
	"fmt"
	"time"
)

// Record is the locally persisted view of a processor subscription.
// StripeSubscriptionID is the natural key; there is at most one record per id.
type Record struct {
	StripeSubscriptionID string
	UserID               string
	StripeCustomerID     string
	StripePriceID        string
	PlanID               string
	Status               Status
	BillingInterval      BillingInterval
	CardLast4            string
	CardType             string
	Amount               int64

	CanceledAt         *time.Time
	CancelAt           *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	// FailedAt marks the first invoice failure of a failing streak.
	FailedAt  *time.Time
	UpdatedAt time.Time
}

// IsCanceled reports whether the subscription reached the canceled status.
func (r *Record) IsCanceled() bool {
	return r.Status == StatusCanceled
}

// IsFailing reports whether an unresolved payment failure is recorded.
func (r *Record) IsFailing() bool {
	return r.FailedAt != nil
}

// Column names a persisted field of Record.
type Column string

const (
	ColumnStripeSubscriptionID Column = "stripe_subscription_id"
	ColumnUserID               Column = "user_id"
	ColumnStripeCustomerID     Column = "stripe_customer_id"
	ColumnStripePriceID        Column = "stripe_price_id"
	ColumnPlanID               Column = "plan_id"
	ColumnStatus               Column = "status"
	ColumnBillingInterval      Column = "billing_interval"
	ColumnCardLast4            Column = "card_last4"
	ColumnCardType             Column = "card_type"
	ColumnAmount               Column = "amount"
	ColumnCanceledAt           Column = "canceled_at"
	ColumnCancelAt             Column = "cancel_at"
	ColumnCurrentPeriodStart   Column = "current_period_start"
	ColumnCurrentPeriodEnd     Column = "current_period_end"
	ColumnTrialStart           Column = "trial_start"
	ColumnTrialEnd             Column = "trial_end"
	ColumnFailedAt             Column = "failed_at"
	ColumnUpdatedAt            Column = "updated_at"
)

// Columns lists every persisted column in table order.
var Columns = []Column{
	ColumnStripeSubscriptionID,
	ColumnUserID,
	ColumnStripeCustomerID,
	ColumnStripePriceID,
	ColumnPlanID,
	ColumnStatus,
	ColumnBillingInterval,
	ColumnCardLast4,
	ColumnCardType,
	ColumnAmount,
	ColumnCanceledAt,
	ColumnCancelAt,
	ColumnCurrentPeriodStart,
	ColumnCurrentPeriodEnd,
	ColumnTrialStart,
	ColumnTrialEnd,
	ColumnFailedAt,
	ColumnUpdatedAt,
}

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}

// IsTime reports whether c holds a nullable timestamp.
func (c Column) IsTime() bool {
	switch c {
	case ColumnCanceledAt, ColumnCancelAt, ColumnCurrentPeriodStart, ColumnCurrentPeriodEnd,
		ColumnTrialStart, ColumnTrialEnd, ColumnFailedAt:
		return true
	}
	return false
}

// Fields is a partial update keyed by column.
// A nil value (or a nil *time.Time) clears a timestamp column.
type Fields map[Column]any

// Validate checks that every column is known and updatable.
func (f Fields) Validate() error {
	for c := range f {
		if !c.Valid() || c == ColumnStripeSubscriptionID {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}

// BuiltFields returns the columns owned by the record builder.
// Period columns and FailedAt are owned by the invoice handlers and left out.
func (r *Record) BuiltFields() Fields {
	return Fields{
		ColumnUserID:           r.UserID,
		ColumnStripeCustomerID: r.StripeCustomerID,
		ColumnStripePriceID:    r.StripePriceID,
		ColumnPlanID:           r.PlanID,
		ColumnStatus:           r.Status,
		ColumnBillingInterval:  r.BillingInterval,
		ColumnCardLast4:        r.CardLast4,
		ColumnCardType:         r.CardType,
		ColumnAmount:           r.Amount,
		ColumnCanceledAt:       r.CanceledAt,
		ColumnCancelAt:         r.CancelAt,
		ColumnTrialStart:       r.TrialStart,
		ColumnTrialEnd:         r.TrialEnd,
		ColumnUpdatedAt:        r.UpdatedAt,
	}
}

// Value returns the current value of column c.
func (r *Record) Value(c Column) any {
	switch c {
	case ColumnStripeSubscriptionID:
		return r.StripeSubscriptionID
	case ColumnUserID:
		return r.UserID
	case ColumnStripeCustomerID:
		return r.StripeCustomerID
	case ColumnStripePriceID:
		return r.StripePriceID
	case ColumnPlanID:
		return r.PlanID
	case ColumnStatus:
		return r.Status
	case ColumnBillingInterval:
		return r.BillingInterval
	case ColumnCardLast4:
		return r.CardLast4
	case ColumnCardType:
		return r.CardType
	case ColumnAmount:
		return r.Amount
	case ColumnCanceledAt:
		return r.CanceledAt
	case ColumnCancelAt:
		return r.CancelAt
	case ColumnCurrentPeriodStart:
		return r.CurrentPeriodStart
	case ColumnCurrentPeriodEnd:
		return r.CurrentPeriodEnd
	case ColumnTrialStart:
		return r.TrialStart
	case ColumnTrialEnd:
		return r.TrialEnd
	case ColumnFailedAt:
		return r.FailedAt
	case ColumnUpdatedAt:
		return r.UpdatedAt
	}
	return nil
}

// Apply writes fields into the record.
func (r *Record) Apply(fields Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	for c, v := range fields {
		if err := r.set(c, v); err != nil {
			return err
		}
	}
	return nil
}

// Select returns a copy holding only the key and the requested columns.
// No columns means all of them.
func (r *Record) Select(columns ...Column) *Record {
	if len(columns) == 0 {
		cp := *r
		return &cp
	}
	out := &Record{StripeSubscriptionID: r.StripeSubscriptionID}
	for _, c := range columns {
		// the value came from a Record, so it always has the right type
		_ = out.set(c, r.Value(c))
	}
	return out
}

func (r *Record) set(c Column, v any) error {
	if c.IsTime() {
		t, err := asTime(c, v)
		if err != nil {
			return err
		}
		switch c {
		case ColumnCanceledAt:
			r.CanceledAt = t
		case ColumnCancelAt:
			r.CancelAt = t
		case ColumnCurrentPeriodStart:
			r.CurrentPeriodStart = t
		case ColumnCurrentPeriodEnd:
			r.CurrentPeriodEnd = t
		case ColumnTrialStart:
			r.TrialStart = t
		case ColumnTrialEnd:
			r.TrialEnd = t
		case ColumnFailedAt:
			r.FailedAt = t
		}
		return nil
	}

	switch c {
	case ColumnUpdatedAt:
		t, err := asTime(c, v)
		if err != nil {
			return err
		}
		if t != nil {
			r.UpdatedAt = *t
		}
	case ColumnAmount:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("%w: %s expects int64, got %T", ErrUnknownColumn, c, v)
		}
		r.Amount = n
	case ColumnStatus:
		s, err := asString(c, v)
		if err != nil {
			return err
		}
		r.Status = Status(s)
	case ColumnBillingInterval:
		s, err := asString(c, v)
		if err != nil {
			return err
		}
		r.BillingInterval = BillingInterval(s)
	default:
		s, err := asString(c, v)
		if err != nil {
			return err
		}
		switch c {
		case ColumnStripeSubscriptionID:
			r.StripeSubscriptionID = s
		case ColumnUserID:
			r.UserID = s
		case ColumnStripeCustomerID:
			r.StripeCustomerID = s
		case ColumnStripePriceID:
			r.StripePriceID = s
		case ColumnPlanID:
			r.PlanID = s
		case ColumnCardLast4:
			r.CardLast4 = s
		case ColumnCardType:
			r.CardType = s
		}
	}
	return nil
}

func asTime(c Column, v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		u := t.UTC()
		return &u, nil
	case time.Time:
		u := t.UTC()
		return &u, nil
	}
	return nil, fmt.Errorf("%w: %s expects a timestamp, got %T", ErrUnknownColumn, c, v)
}

func asString(c Column, v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case Status:
		return string(s), nil
	case BillingInterval:
		return string(s), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: %s expects a string, got %T", ErrUnknownColumn, c, v)
}
