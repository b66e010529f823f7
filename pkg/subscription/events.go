package subscription

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// DecodeSubscription decodes a subscription event object.
func DecodeSubscription(data []byte) (*RemoteSubscription, error) {
	var raw subscriptionObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	if raw.ID == "" {
		return nil, errors.Join(ErrInvalidPayload, errors.New("subscription id is missing"))
	}

	sub := &RemoteSubscription{
		ID:                 raw.ID,
		CustomerID:         raw.Customer.ID,
		Status:             Status(raw.Status),
		Metadata:           raw.Metadata,
		CanceledAt:         raw.CanceledAt,
		CancelAt:           raw.CancelAt,
		EndedAt:            raw.EndedAt,
		CurrentPeriodStart: raw.CurrentPeriodStart,
		CurrentPeriodEnd:   raw.CurrentPeriodEnd,
		TrialStart:         raw.TrialStart,
		TrialEnd:           raw.TrialEnd,
	}

	for _, it := range raw.Items.Data {
		item := SubscriptionItem{
			ID:                 it.ID,
			CurrentPeriodStart: it.CurrentPeriodStart,
			CurrentPeriodEnd:   it.CurrentPeriodEnd,
		}
		if it.Price != nil && it.Price.ID != "" {
			item.Price = &Price{
				ID:         it.Price.ID,
				UnitAmount: it.Price.UnitAmount,
			}
			if it.Price.Recurring != nil {
				item.Price.Interval = BillingInterval(it.Price.Recurring.Interval)
			}
		}
		sub.Items = append(sub.Items, item)
	}

	if pm := raw.DefaultPaymentMethod; pm.ID != "" {
		sub.DefaultPaymentMethod = &PaymentMethod{ID: pm.ID}
		if pm.expanded {
			full, err := DecodePaymentMethod(pm.raw)
			if err != nil {
				return nil, err
			}
			sub.DefaultPaymentMethod = full
		}
	}

	return sub, nil
}

// DecodeInvoice decodes an invoice event object. Both the legacy top-level
// subscription field and the newer parent.subscription_details are read.
func DecodeInvoice(data []byte) (*Invoice, error) {
	var raw invoiceObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	inv := &Invoice{
		ID:             raw.ID,
		CustomerID:     raw.Customer.ID,
		SubscriptionID: raw.Subscription.ID,
	}
	if inv.SubscriptionID == "" && raw.Parent != nil && raw.Parent.SubscriptionDetails != nil {
		inv.SubscriptionID = raw.Parent.SubscriptionDetails.Subscription.ID
	}

	for _, l := range raw.Lines.Data {
		line := InvoiceLine{
			ID:          l.ID,
			PeriodStart: l.Period.Start,
			PeriodEnd:   l.Period.End,
			PriceID:     l.Price.ID,
		}
		if line.PriceID == "" && l.Pricing != nil && l.Pricing.PriceDetails != nil {
			line.PriceID = l.Pricing.PriceDetails.Price.ID
		}
		inv.Lines = append(inv.Lines, line)
	}

	return inv, nil
}

// DecodePaymentMethod decodes an expanded payment method object.
func DecodePaymentMethod(data []byte) (*PaymentMethod, error) {
	var obj paymentMethodObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	return &PaymentMethod{ID: obj.ID, Expanded: true, Card: obj.card()}, nil
}

// unixTime converts a Unix timestamp to a UTC instant; zero means absent.
func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// expandable accepts either an id string or an expanded object with an id.
type expandable struct {
	ID       string
	expanded bool
	raw      json.RawMessage
}

func (e *expandable) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &e.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.ID = obj.ID
	e.expanded = true
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

type subscriptionObject struct {
	ID                   string            `json:"id"`
	Customer             expandable        `json:"customer"`
	Status               string            `json:"status"`
	DefaultPaymentMethod expandable        `json:"default_payment_method"`
	Metadata             map[string]string `json:"metadata"`
	CanceledAt           int64             `json:"canceled_at"`
	CancelAt             int64             `json:"cancel_at"`
	EndedAt              int64             `json:"ended_at"`
	CurrentPeriodStart   int64             `json:"current_period_start"`
	CurrentPeriodEnd     int64             `json:"current_period_end"`
	TrialStart           int64             `json:"trial_start"`
	TrialEnd             int64             `json:"trial_end"`
	Items                struct {
		Data []struct {
			ID                 string       `json:"id"`
			Price              *priceObject `json:"price"`
			CurrentPeriodStart int64        `json:"current_period_start"`
			CurrentPeriodEnd   int64        `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

type priceObject struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Recurring  *struct {
		Interval string `json:"interval"`
	} `json:"recurring"`
}

type paymentMethodObject struct {
	ID   string `json:"id"`
	Card *struct {
		Last4 string `json:"last4"`
		Brand string `json:"brand"`
	} `json:"card"`
}

func (o paymentMethodObject) card() *Card {
	if o.Card == nil || o.Card.Last4 == "" {
		return nil
	}
	return &Card{Last4: o.Card.Last4, Brand: o.Card.Brand}
}

type invoiceObject struct {
	ID           string     `json:"id"`
	Customer     expandable `json:"customer"`
	Subscription expandable `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription expandable `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	Lines struct {
		Data []struct {
			ID     string `json:"id"`
			Period struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"period"`
			Price   expandable `json:"price"`
			Pricing *struct {
				PriceDetails *struct {
					Price expandable `json:"price"`
				} `json:"price_details"`
			} `json:"pricing"`
		} `json:"data"`
	} `json:"lines"`
}
