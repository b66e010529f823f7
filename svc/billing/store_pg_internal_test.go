package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

func TestUpsertQuery(t *testing.T) {
	t.Parallel()

	assert.True(t, strings.HasPrefix(upsertQuery, "INSERT INTO subscriptions (stripe_subscription_id, user_id,"))
	assert.Contains(t, upsertQuery, "$18)")
	assert.Contains(t, upsertQuery, "ON CONFLICT (stripe_subscription_id) DO UPDATE SET")
	assert.Contains(t, upsertQuery, "status = EXCLUDED.status")
	assert.Contains(t, upsertQuery, "current_period_start = COALESCE(subscriptions.current_period_start, EXCLUDED.current_period_start)")
	assert.NotContains(t, upsertQuery, "failed_at = EXCLUDED")
	assert.NotContains(t, upsertQuery, "stripe_subscription_id = EXCLUDED")
}

func TestUpdateQuery(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	query, args := updateQuery("sub_1", subscription.Fields{
		subscription.ColumnStatus:             subscription.StatusActive,
		subscription.ColumnFailedAt:           nil,
		subscription.ColumnCurrentPeriodStart: &start,
	})

	assert.Equal(t,
		"UPDATE subscriptions SET current_period_start = $1, failed_at = $2, status = $3 WHERE stripe_subscription_id = $4",
		query,
	)
	assert.Equal(t, []any{start.UTC(), nil, "active", "sub_1"}, args)
}

func TestSelectQuery(t *testing.T) {
	t.Parallel()

	cols := []subscription.Column{subscription.ColumnFailedAt}
	assert.Equal(t, "SELECT failed_at FROM subscriptions WHERE stripe_subscription_id = $1", selectQuery(cols, false))
	assert.Equal(t, "SELECT failed_at FROM subscriptions WHERE stripe_subscription_id = $1 FOR UPDATE", selectQuery(cols, true))
}

func TestSQLValue(t *testing.T) {
	t.Parallel()

	var nilTime *time.Time
	assert.Nil(t, sqlValue(nilTime))
	assert.Equal(t, "year", sqlValue(subscription.BillingIntervalYear))
	assert.Equal(t, int64(5), sqlValue(int64(5)))
	assert.Equal(t, "x", sqlValue("x"))
}

func TestScanRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	when := &now
	for _, c := range subscription.Columns {
		dest := scanTarget(c)
		switch d := dest.(type) {
		case **time.Time:
			*d = when
		case *time.Time:
			*d = now
		case *int64:
			*d = 7
		case *string:
			*d = "v"
		}
		if c == subscription.ColumnStripeSubscriptionID {
			continue
		}
		rec := &subscription.Record{}
		assert.NoError(t, rec.Apply(subscription.Fields{c: scanned(dest)}), c)
	}
}
