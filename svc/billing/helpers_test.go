package billing_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

const webhookSecret = "whsec_billing_test"

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

var plans = []subscription.Plan{
	{
		ID:             "pro",
		Name:           "Pro",
		PriceMonthlyID: "price_pro_m",
		PriceYearlyID:  "price_pro_y",
		PriceHistory:   []string{"price_pro_m_2023"},
		Status:         subscription.PlanStatusActive,
	},
	{
		ID:             "legacy",
		Name:           "Legacy",
		PriceMonthlyID: "price_legacy_m",
		Status:         subscription.PlanStatusRetired,
	},
}

// countingCatalog serves plans and counts lookups.
type countingCatalog struct {
	calls atomic.Int32
	err   error
	// gate, when set, blocks every lookup until it is closed.
	gate chan struct{}
}

func (c *countingCatalog) FindByPriceID(ctx context.Context, priceID string) ([]subscription.Plan, error) {
	c.calls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	var out []subscription.Plan
	for _, p := range plans {
		if p.MatchesPrice(priceID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func signed(t *testing.T, secret, eventID string, typ subscription.EventType, object map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      eventID,
		"object":  "event",
		"type":    string(typ),
		"created": fixedNow.Unix(),
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)

	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return sp.Payload, sp.Header
}

func subscriptionObject(id, priceID string) map[string]any {
	return map[string]any{
		"id":       id,
		"object":   "subscription",
		"customer": "cus_1",
		"status":   "active",
		"metadata": map[string]any{"userId": "user_1"},
		"items": map[string]any{"data": []any{map[string]any{
			"id":                   "si_1",
			"current_period_start": 1709251200,
			"current_period_end":   1711929600,
			"price": map[string]any{
				"id":          priceID,
				"unit_amount": 1500,
				"recurring":   map[string]any{"interval": "month"},
			},
		}}},
		"default_payment_method": map[string]any{
			"id":   "pm_1",
			"card": map[string]any{"last4": "4242", "brand": "visa"},
		},
	}
}

func invoiceObject(subID string, start, end int64) map[string]any {
	return map[string]any{
		"id":           "in_1",
		"object":       "invoice",
		"subscription": subID,
		"lines": map[string]any{"data": []any{map[string]any{
			"id":     "il_1",
			"period": map[string]any{"start": start, "end": end},
			"price":  map[string]any{"id": "price_pro_m"},
		}}},
	}
}
