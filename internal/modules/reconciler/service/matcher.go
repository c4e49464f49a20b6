package service

import (
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"

	"github.com/shopspring/decimal"
)

// Matcher attributes a newly observed payment to at most one pending
// subscription by plan price. Anything ambiguous — no price match, or two
// pending subscribers expecting the same amount — goes to the admin review
// queue instead of guessing.
type Matcher struct {
	prices    map[models.Plan]decimal.Decimal
	tolerance decimal.Decimal // fraction of the plan price, 0.01 == ±1%
}

func NewMatcher(cfg *config.Config) *Matcher {
	return &Matcher{
		prices: map[models.Plan]decimal.Decimal{
			models.PlanMonthly: cfg.PriceMonthly,
			models.PlanYearly:  cfg.PriceYearly,
		},
		tolerance: cfg.MatchTolerance,
	}
}

func (m *Matcher) Price(plan models.Plan) decimal.Decimal {
	return m.prices[plan]
}

// Resolve returns the single matching pending subscription, or ok=false when
// zero or more than one candidate matches.
func (m *Matcher) Resolve(p models.Payment, pendings []models.Subscription) (chatID string, plan models.Plan, ok bool) {
	matches := 0
	for _, sub := range pendings {
		if sub.Status != models.StatusPending {
			continue
		}
		price, known := m.prices[sub.Plan]
		if !known {
			continue
		}
		if m.withinTolerance(p.Amount, price) {
			matches++
			chatID, plan = sub.ChatID, sub.Plan
		}
	}
	if matches != 1 {
		return "", "", false
	}
	return chatID, plan, true
}

func (m *Matcher) withinTolerance(amount, price decimal.Decimal) bool {
	delta := amount.Sub(price).Abs()
	return delta.LessThanOrEqual(price.Mul(m.tolerance))
}
