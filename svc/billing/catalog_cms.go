package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// planDocument is a plan as stored by the CMS and the YAML catalog.
type planDocument struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	PriceMonthlyID string         `json:"priceMonthlyId" yaml:"priceMonthlyId"`
	PriceYearlyID  string         `json:"priceYearlyId" yaml:"priceYearlyId"`
	PriceHistory   []priceHistory `json:"priceHistory" yaml:"priceHistory"`
	Status         string         `json:"planStatus" yaml:"planStatus"`
	PriceMonthly   float64        `json:"priceMonthly" yaml:"priceMonthly"`
	PriceYearly    float64        `json:"priceYearly" yaml:"priceYearly"`
}

type priceHistory struct {
	PriceID string `json:"priceId" yaml:"priceId"`
}

func (d planDocument) plan() subscription.Plan {
	p := subscription.Plan{
		ID:             d.ID,
		Name:           d.Name,
		PriceMonthlyID: d.PriceMonthlyID,
		PriceYearlyID:  d.PriceYearlyID,
		Status:         subscription.PlanStatus(strings.ToUpper(d.Status)),
		PriceMonthly:   d.PriceMonthly,
		PriceYearly:    d.PriceYearly,
	}
	for _, h := range d.PriceHistory {
		if h.PriceID != "" {
			p.PriceHistory = append(p.PriceHistory, h.PriceID)
		}
	}
	return p
}

// CMSCatalog queries plans from a headless CMS REST API.
type CMSCatalog struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
	log        *slog.Logger
}

var _ subscription.PlanCatalog = (*CMSCatalog)(nil)

// NewCMSCatalog creates a catalog for cfg. A nil client gets one with cfg.CMSTimeout.
func NewCMSCatalog(cfg CatalogConfig, client *http.Client, log *slog.Logger) *CMSCatalog {
	if client == nil {
		client = &http.Client{Timeout: cfg.CMSTimeout}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	collection := cfg.CMSCollection
	if collection == "" {
		collection = "plans"
	}
	return &CMSCatalog{
		baseURL:    strings.TrimRight(cfg.CMSBaseURL, "/"),
		apiKey:     cfg.CMSAPIKey,
		collection: collection,
		client:     client,
		log:        log.With(logger.Component("cms_catalog")),
	}
}

// FindByPriceID returns plans whose monthly, yearly or historical price is priceID.
func (c *CMSCatalog) FindByPriceID(ctx context.Context, priceID string) ([]subscription.Plan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(priceID), nil)
	if err != nil {
		return nil, errors.Join(ErrCMSRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrCMSRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.WarnContext(ctx, "plan catalog returned an error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("%w: status %d", ErrCMSResponse, resp.StatusCode)
	}

	var out struct {
		Docs []planDocument `json:"docs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Join(ErrCMSResponse, err)
	}

	plans := make([]subscription.Plan, 0, len(out.Docs))
	for _, d := range out.Docs {
		plans = append(plans, d.plan())
	}
	return plans, nil
}

func (c *CMSCatalog) queryURL(priceID string) string {
	q := url.Values{}
	q.Set("where[or][0][priceMonthlyId][equals]", priceID)
	q.Set("where[or][1][priceYearlyId][equals]", priceID)
	q.Set("where[or][2][priceHistory.priceId][equals]", priceID)
	q.Set("limit", "10")
	q.Set("depth", "0")
	return fmt.Sprintf("%s/api/%s?%s", c.baseURL, url.PathEscape(c.collection), q.Encode())
}
