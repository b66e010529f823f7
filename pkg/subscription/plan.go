package subscription

// Plan is a plan definition as published by the content catalog.
type Plan struct {
	ID             string
	Name           string
	PriceMonthlyID string
	PriceYearlyID  string
	// PriceHistory keeps price ids the plan was sold under before.
	PriceHistory []string
	Status       PlanStatus
	PriceMonthly float64
	PriceYearly  float64
}

// MatchesPrice reports whether priceID is the plan's monthly, yearly or a historical price.
func (p Plan) MatchesPrice(priceID string) bool {
	if priceID == "" {
		return false
	}
	if p.PriceMonthlyID == priceID || p.PriceYearlyID == priceID {
		return true
	}
	for _, id := range p.PriceHistory {
		if id == priceID {
			return true
		}
	}
	return false
}

// PriceIDForInterval returns the plan's current price for interval,
// or an empty string when the interval is unknown.
func PriceIDForInterval(plan *Plan, interval BillingInterval) string {
	if plan == nil {
		return ""
	}
	switch interval {
	case BillingIntervalMonth:
		return plan.PriceMonthlyID
	case BillingIntervalYear:
		return plan.PriceYearlyID
	}
	return ""
}

// ShouldUpdatePlan reports whether the stored price no longer equals
// the plan's current price for the stored interval.
func ShouldUpdatePlan(currentPriceID string, interval BillingInterval, plan *Plan) bool {
	if plan == nil {
		return false
	}
	return currentPriceID != PriceIDForInterval(plan, interval)
}

// IsPlanRetired reports whether the plan is no longer sold.
func IsPlanRetired(plan *Plan) bool {
	return plan != nil && plan.Status == PlanStatusRetired
}
