package subscription_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

func newBuilder(billing subscription.BillingClient, c subscription.PlanCatalog) *subscription.RecordBuilder {
	return subscription.NewRecordBuilder(
		subscription.NewResolver(c, nil),
		billing,
		subscription.WithClock(clock),
	)
}

func remoteSub(t *testing.T, mutate func(map[string]any)) *subscription.RemoteSubscription {
	t.Helper()
	obj := subscriptionObject("sub_1", "price_pro_m_v2", "month")
	if mutate != nil {
		mutate(obj)
	}
	sub, err := subscription.DecodeSubscription(event(t, subscription.EventSubscriptionCreated, obj).Data)
	require.NoError(t, err)
	return sub
}

func TestRecordBuilder_Build(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("populates every field", func(t *testing.T) {
		t.Parallel()
		billing := &mockBilling{}
		rec, err := newBuilder(billing, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			o["status"] = "trialing"
			o["trial_start"] = 1699000000
			o["trial_end"] = 1700000000
			o["cancel_at"] = 1702592000
		}))
		require.NoError(t, err)

		assert.Equal(t, "sub_1", rec.StripeSubscriptionID)
		assert.Equal(t, "user_1", rec.UserID)
		assert.Equal(t, "cus_1", rec.StripeCustomerID)
		assert.Equal(t, "price_pro_m_v2", rec.StripePriceID)
		assert.Equal(t, "pro", rec.PlanID)
		assert.Equal(t, subscription.StatusTrialing, rec.Status)
		assert.Equal(t, subscription.BillingIntervalMonth, rec.BillingInterval)
		assert.Equal(t, "4242", rec.CardLast4)
		assert.Equal(t, "visa", rec.CardType)
		assert.Equal(t, int64(2000), rec.Amount)
		assert.Nil(t, rec.CanceledAt)
		assert.Equal(t, time.Unix(1702592000, 0).UTC(), *rec.CancelAt)
		assert.Equal(t, time.Unix(1699000000, 0).UTC(), *rec.TrialStart)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), *rec.TrialEnd)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), *rec.CurrentPeriodStart)
		assert.Equal(t, time.Unix(1702592000, 0).UTC(), *rec.CurrentPeriodEnd)
		assert.Nil(t, rec.FailedAt)
		assert.Equal(t, fixedNow, rec.UpdatedAt)
		billing.AssertNotCalled(t, "GetPaymentMethod", mock.Anything, mock.Anything)
	})

	t.Run("fetches payment method referenced by id", func(t *testing.T) {
		t.Parallel()
		billing := &mockBilling{}
		billing.On("GetPaymentMethod", mock.Anything, "pm_9").Return(&subscription.PaymentMethod{
			ID:       "pm_9",
			Expanded: true,
			Card:     &subscription.Card{Last4: "1881", Brand: "amex"},
		}, nil).Once()

		rec, err := newBuilder(billing, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			o["default_payment_method"] = "pm_9"
		}))
		require.NoError(t, err)
		assert.Equal(t, "1881", rec.CardLast4)
		assert.Equal(t, "amex", rec.CardType)
		billing.AssertExpectations(t)
	})

	t.Run("payment method without card leaves card fields empty", func(t *testing.T) {
		t.Parallel()
		billing := &mockBilling{}
		billing.On("GetPaymentMethod", mock.Anything, "pm_sepa").
			Return(&subscription.PaymentMethod{ID: "pm_sepa", Expanded: true}, nil)

		rec, err := newBuilder(billing, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			o["default_payment_method"] = "pm_sepa"
		}))
		require.NoError(t, err)
		assert.Empty(t, rec.CardLast4)
		assert.Empty(t, rec.CardType)
	})

	t.Run("payment method lookup failure is returned", func(t *testing.T) {
		t.Parallel()
		billing := &mockBilling{}
		billing.On("GetPaymentMethod", mock.Anything, "pm_9").Return(nil, errors.New("timeout"))

		_, err := newBuilder(billing, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			o["default_payment_method"] = "pm_9"
		}))
		assert.Error(t, err)
	})

	t.Run("no payment method", func(t *testing.T) {
		t.Parallel()
		rec, err := newBuilder(&mockBilling{}, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			delete(o, "default_payment_method")
		}))
		require.NoError(t, err)
		assert.Empty(t, rec.CardLast4)
	})

	t.Run("missing price", func(t *testing.T) {
		t.Parallel()
		_, err := newBuilder(&mockBilling{}, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			o["items"] = map[string]any{"data": []any{}}
		}))
		assert.ErrorIs(t, err, subscription.ErrNoPrice)
	})

	t.Run("unresolvable price", func(t *testing.T) {
		t.Parallel()
		_, err := newBuilder(&mockBilling{}, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			items := o["items"].(map[string]any)["data"].([]any)
			items[0].(map[string]any)["price"].(map[string]any)["id"] = "price_unknown"
		}))
		assert.ErrorIs(t, err, subscription.ErrPlanNotResolved)
	})

	t.Run("canceled subscription always carries canceledAt", func(t *testing.T) {
		t.Parallel()
		b := newBuilder(&mockBilling{}, catalog())

		rec, err := b.Build(ctx, remoteSub(t, func(o map[string]any) {
			o["status"] = "canceled"
			o["ended_at"] = 1701000000
		}))
		require.NoError(t, err)
		require.NotNil(t, rec.CanceledAt)
		assert.Equal(t, time.Unix(1701000000, 0).UTC(), *rec.CanceledAt)

		rec, err = b.Build(ctx, remoteSub(t, func(o map[string]any) {
			o["status"] = "canceled"
		}))
		require.NoError(t, err)
		require.NotNil(t, rec.CanceledAt)
		assert.Equal(t, fixedNow, *rec.CanceledAt)
	})

	t.Run("zero timestamps become nil", func(t *testing.T) {
		t.Parallel()
		rec, err := newBuilder(&mockBilling{}, catalog()).Build(ctx, remoteSub(t, func(o map[string]any) {
			o["trial_start"] = 0
			o["canceled_at"] = nil
		}))
		require.NoError(t, err)
		assert.Nil(t, rec.TrialStart)
		assert.Nil(t, rec.CanceledAt)
	})
}

func TestRecordBuilder_LogsCorrelationIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	b := subscription.NewRecordBuilder(
		subscription.NewResolver(catalog(), nil),
		&mockBilling{},
		subscription.WithClock(clock),
		subscription.WithLogger(log),
	)

	_, err := b.Build(context.Background(), remoteSub(t, nil))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"user_id":"user_1"`)
	assert.Contains(t, out, `"customer_id":"cus_1"`)
	assert.Contains(t, out, `"plan_id":"pro"`)
	assert.Contains(t, out, `"subscription_id":"sub_1"`)
}
