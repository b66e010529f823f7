package subscription_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// looseCatalog returns its plans regardless of the price id.
type looseCatalog []subscription.Plan

func (c looseCatalog) FindByPriceID(context.Context, string) ([]subscription.Plan, error) {
	return c, nil
}

func TestResolver_FetchPlanByPriceID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves monthly yearly and historical prices", func(t *testing.T) {
		t.Parallel()
		r := subscription.NewResolver(catalog(), nil)

		for _, id := range []string{"price_pro_m_v2", "price_pro_y_v2", "price_pro_m_v1"} {
			plan, err := r.FetchPlanByPriceID(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, plan, id)
			assert.Equal(t, "pro", plan.ID)
		}
	})

	t.Run("unknown price returns nil and warns", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		r := subscription.NewResolver(catalog(), slog.New(slog.NewTextHandler(buf, nil)))

		plan, err := r.FetchPlanByPriceID(ctx, "price_unknown")
		require.NoError(t, err)
		assert.Nil(t, plan)
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "price_unknown")
	})

	t.Run("ambiguous price returns nil and warns", func(t *testing.T) {
		t.Parallel()
		dup := proPlan
		dup.ID = "pro-copy"
		buf := &bytes.Buffer{}
		r := subscription.NewResolver(
			&staticCatalog{plans: []subscription.Plan{proPlan, dup}},
			slog.New(slog.NewTextHandler(buf, nil)),
		)

		plan, err := r.FetchPlanByPriceID(ctx, "price_pro_m_v2")
		require.NoError(t, err)
		assert.Nil(t, plan)
		assert.Contains(t, buf.String(), "multiple plans found for price")
	})

	t.Run("non matching catalog rows are ignored", func(t *testing.T) {
		t.Parallel()
		r := subscription.NewResolver(looseCatalog{proPlan, legacyPlan}, nil)

		plan, err := r.FetchPlanByPriceID(ctx, "price_legacy_m")
		require.NoError(t, err)
		require.NotNil(t, plan)
		assert.Equal(t, "legacy", plan.ID)
	})

	t.Run("empty price id skips the catalog", func(t *testing.T) {
		t.Parallel()
		c := catalog()
		r := subscription.NewResolver(c, nil)

		plan, err := r.FetchPlanByPriceID(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, plan)
		assert.Zero(t, c.calls)
	})

	t.Run("catalog failure is an error", func(t *testing.T) {
		t.Parallel()
		r := subscription.NewResolver(&staticCatalog{err: errors.New("cms down")}, nil)

		plan, err := r.FetchPlanByPriceID(ctx, "price_pro_m_v2")
		assert.Nil(t, plan)
		assert.ErrorIs(t, err, subscription.ErrCatalogUnavailable)
	})

	t.Run("panics without catalog", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { subscription.NewResolver(nil, nil) })
	})
}
