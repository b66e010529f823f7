package subscription_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

// memStore is a Store backed by a map. It also implements Transactor.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]*subscription.Record
	updates int
	txs     int
	failGet error
	failUpd error
}

func newMemStore(rows ...*subscription.Record) *memStore {
	s := &memStore{rows: make(map[string]*subscription.Record)}
	for _, r := range rows {
		s.rows[r.StripeSubscriptionID] = r.Select()
	}
	return s
}

func (s *memStore) Upsert(_ context.Context, rec *subscription.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rows[rec.StripeSubscriptionID]
	if !ok {
		s.rows[rec.StripeSubscriptionID] = rec.Select()
		return nil
	}
	return existing.Apply(rec.BuiltFields())
}

func (s *memStore) Update(_ context.Context, id string, fields subscription.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpd != nil {
		return s.failUpd
	}
	row, ok := s.rows[id]
	if !ok {
		return subscription.ErrSubscriptionNotFound
	}
	s.updates++
	return row.Apply(fields)
}

func (s *memStore) Get(_ context.Context, id string, columns ...subscription.Column) (*subscription.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return row.Select(columns...), nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(context.Context, subscription.Store) error) error {
	s.mu.Lock()
	s.txs++
	s.mu.Unlock()
	return fn(ctx, s)
}

func (s *memStore) row(t *testing.T, id string) *subscription.Record {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	require.True(t, ok, "row %s not found", id)
	return row.Select()
}

// mockBilling is a testify mock of BillingClient.
type mockBilling struct {
	mock.Mock
}

func (m *mockBilling) GetSubscription(ctx context.Context, id string) (*subscription.RemoteSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.RemoteSubscription), args.Error(1)
}

func (m *mockBilling) GetPaymentMethod(ctx context.Context, id string) (*subscription.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.PaymentMethod), args.Error(1)
}

func (m *mockBilling) ChangePrice(ctx context.Context, subID, itemID, priceID string) error {
	return m.Called(ctx, subID, itemID, priceID).Error(0)
}

func (m *mockBilling) CancelAtPeriodEnd(ctx context.Context, subID string) error {
	return m.Called(ctx, subID).Error(0)
}

// staticCatalog filters its plans the way a CMS OR-query would.
type staticCatalog struct {
	plans []subscription.Plan
	err   error
	calls int
}

func (c *staticCatalog) FindByPriceID(_ context.Context, priceID string) ([]subscription.Plan, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	var out []subscription.Plan
	for _, p := range c.plans {
		if p.MatchesPrice(priceID) {
			out = append(out, p)
		}
	}
	return out, nil
}

var (
	proPlan = subscription.Plan{
		ID:             "pro",
		Name:           "Pro",
		PriceMonthlyID: "price_pro_m_v2",
		PriceYearlyID:  "price_pro_y_v2",
		PriceHistory:   []string{"price_pro_m_v1", "price_pro_y_v1"},
		Status:         subscription.PlanStatusActive,
		PriceMonthly:   20,
		PriceYearly:    200,
	}
	legacyPlan = subscription.Plan{
		ID:             "legacy",
		Name:           "Legacy",
		PriceMonthlyID: "price_legacy_m",
		PriceYearlyID:  "price_legacy_y",
		Status:         subscription.PlanStatusRetired,
	}
)

func catalog() *staticCatalog {
	return &staticCatalog{plans: []subscription.Plan{proPlan, legacyPlan}}
}

func event(t *testing.T, typ subscription.EventType, object map[string]any) *subscription.Event {
	t.Helper()
	data, err := json.Marshal(object)
	require.NoError(t, err)
	return &subscription.Event{ID: "evt_" + string(typ), Type: typ, Created: fixedNow, Data: data}
}

func subscriptionObject(id, priceID, interval string) map[string]any {
	return map[string]any{
		"id":       id,
		"object":   "subscription",
		"customer": "cus_1",
		"status":   "active",
		"metadata": map[string]any{"userId": "user_1"},
		"items": map[string]any{
			"data": []any{map[string]any{
				"id":                   "si_1",
				"current_period_start": 1700000000,
				"current_period_end":   1702592000,
				"price": map[string]any{
					"id":          priceID,
					"unit_amount": 2000,
					"recurring":   map[string]any{"interval": interval},
				},
			}},
		},
		"default_payment_method": map[string]any{
			"id":   "pm_1",
			"card": map[string]any{"last4": "4242", "brand": "visa"},
		},
	}
}

func invoiceObject(subID string, start, end int64) map[string]any {
	obj := map[string]any{
		"id":       "in_1",
		"object":   "invoice",
		"customer": "cus_1",
		"lines": map[string]any{
			"data": []any{map[string]any{
				"id":     "il_1",
				"period": map[string]any{"start": start, "end": end},
				"price":  map[string]any{"id": "price_pro_m_v2"},
			}},
		},
	}
	if subID != "" {
		obj["subscription"] = subID
	}
	return obj
}

// upcomingInvoice is an upcoming invoice whose line bills linePrice; an
// empty linePrice leaves the line without a price.
func upcomingInvoice(subID, linePrice string) map[string]any {
	line := map[string]any{
		"id":     "il_up",
		"period": map[string]any{"start": 1700000000, "end": 1702592000},
	}
	if linePrice != "" {
		line["price"] = map[string]any{"id": linePrice}
	}
	return map[string]any{
		"id":           "upcoming_in_1",
		"object":       "invoice",
		"subscription": subID,
		"lines":        map[string]any{"data": []any{line}},
	}
}

// tickingClock advances one minute past fixedNow on every call.
func tickingClock() func() time.Time {
	var ticks atomic.Int64
	return func() time.Time {
		return fixedNow.Add(time.Duration(ticks.Add(1)) * time.Minute)
	}
}

func withoutUpdatedAt(r *subscription.Record) subscription.Record {
	c := *r
	c.UpdatedAt = time.Time{}
	return c
}

func ptr(t time.Time) *time.Time { return &t }
