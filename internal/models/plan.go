package models

import "time"

// Plan — purchasable subscription tier.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// Duration of paid access for the plan.
func (p Plan) Duration() time.Duration {
	switch p {
	case PlanYearly:
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
