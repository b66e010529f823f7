package billing

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// FileCatalog serves plans from a YAML document, for development and tests.
//
//	plans:
//	  - id: pro
//	    priceMonthlyId: price_pro_m
//	    priceYearlyId: price_pro_y
//	    priceHistory:
//	      - priceId: price_pro_m_2023
//	    planStatus: ACTIVE
// It is immutable once loaded.
type FileCatalog struct {
	plans []subscription.Plan
}

var _ subscription.PlanCatalog = (*FileCatalog)(nil)

// LoadFileCatalog reads the catalog at path.
func LoadFileCatalog(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrCatalogFile, err)
	}
	return ParseFileCatalog(data)
}

// ParseFileCatalog decodes a YAML catalog document.
func ParseFileCatalog(data []byte) (*FileCatalog, error) {
	var doc struct {
		Plans []planDocument `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrCatalogFile, err)
	}
	c := &FileCatalog{plans: make([]subscription.Plan, 0, len(doc.Plans))}
	for _, d := range doc.Plans {
		c.plans = append(c.plans, d.plan())
	}
	return c, nil
}

// FindByPriceID returns plans whose monthly, yearly or historical price is priceID.
func (c *FileCatalog) FindByPriceID(_ context.Context, priceID string) ([]subscription.Plan, error) {
	var out []subscription.Plan
	for _, p := range c.plans {
		if p.MatchesPrice(priceID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Plans returns every plan in the file.
func (c *FileCatalog) Plans() []subscription.Plan {
	return append([]subscription.Plan(nil), c.plans...)
}
