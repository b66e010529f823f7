package billing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/subscription"
	"github.com/dmitrymomot/billsync/svc/billing"
)

const cmsPlans = `{"docs":[{
	"id": "pro",
	"name": "Pro",
	"priceMonthlyId": "price_pro_m",
	"priceYearlyId": "price_pro_y",
	"priceHistory": [{"priceId": "price_pro_m_2023"}, {"priceId": ""}],
	"planStatus": "ACTIVE",
	"priceMonthly": 15,
	"priceYearly": 150
}],"totalDocs":1}`

func TestCMSCatalog_FindByPriceID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("queries every price field", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/plans", r.URL.Path)
			assert.Equal(t, "Bearer cms-key", r.Header.Get("Authorization"))
			q := r.URL.Query()
			assert.Equal(t, "price_pro_m_2023", q.Get("where[or][0][priceMonthlyId][equals]"))
			assert.Equal(t, "price_pro_m_2023", q.Get("where[or][1][priceYearlyId][equals]"))
			assert.Equal(t, "price_pro_m_2023", q.Get("where[or][2][priceHistory.priceId][equals]"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(cmsPlans))
		}))
		t.Cleanup(srv.Close)

		c := billing.NewCMSCatalog(billing.CatalogConfig{
			CMSBaseURL: srv.URL + "/",
			CMSAPIKey:  "cms-key",
			CMSTimeout: time.Second,
		}, nil, nil)

		got, err := c.FindByPriceID(ctx, "price_pro_m_2023")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, subscription.Plan{
			ID:             "pro",
			Name:           "Pro",
			PriceMonthlyID: "price_pro_m",
			PriceYearlyID:  "price_pro_y",
			PriceHistory:   []string{"price_pro_m_2023"},
			Status:         subscription.PlanStatusActive,
			PriceMonthly:   15,
			PriceYearly:    150,
		}, got[0])
	})

	t.Run("resolver picks the single match", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(cmsPlans))
		}))
		t.Cleanup(srv.Close)

		resolver := subscription.NewResolver(billing.NewCMSCatalog(billing.CatalogConfig{CMSBaseURL: srv.URL}, srv.Client(), nil), nil)
		plan, err := resolver.FetchPlanByPriceID(ctx, "price_pro_y")
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, "pro", plan.ID)
	})

	t.Run("plan status marks retired plans", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"docs":[{"id":"legacy","priceMonthlyId":"price_old","planStatus":"retired"}]}`))
		}))
		t.Cleanup(srv.Close)

		got, err := billing.NewCMSCatalog(billing.CatalogConfig{CMSBaseURL: srv.URL}, nil, nil).FindByPriceID(ctx, "price_old")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, subscription.PlanStatusRetired, got[0].Status)
		assert.True(t, subscription.IsPlanRetired(&got[0]))
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)

		_, err := billing.NewCMSCatalog(billing.CatalogConfig{CMSBaseURL: srv.URL}, nil, nil).FindByPriceID(ctx, "price_x")
		assert.ErrorIs(t, err, billing.ErrCMSResponse)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		t.Cleanup(srv.Close)

		_, err := billing.NewCMSCatalog(billing.CatalogConfig{CMSBaseURL: srv.URL}, nil, nil).FindByPriceID(ctx, "price_x")
		assert.ErrorIs(t, err, billing.ErrCMSResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := billing.NewCMSCatalog(billing.CatalogConfig{CMSBaseURL: srv.URL}, nil, nil).FindByPriceID(ctx, "price_x")
		assert.ErrorIs(t, err, billing.ErrCMSRequest)
	})
}
