package engine

import (
	"fmt"
	"math"

	"trustpay/internal/model"
)

const (
	amountHighMultiplier     = 5.0
	amountCriticalMultiplier = 10.0
	amountFloorPoints        = 15
	amountMaxPoints          = 40
)

// extractAmountAnomaly compares the amount against the account's trailing
// average. No average means a new account, which is insufficient data rather
// than an anomaly, so the check is skipped.
func (e *Engine) extractAmountAnomaly(tx model.Transaction, history model.AccountHistory) (model.Signal, bool) {
	if history.AverageAmount.Sign() <= 0 {
		return model.Signal{}, false
	}

	multiplier, _ := tx.Amount.Div(history.AverageAmount).Float64()
	if multiplier < e.cfg.AmountMultiplier {
		return model.Signal{}, false
	}

	severity := model.SeverityMedium
	switch {
	case multiplier >= amountCriticalMultiplier:
		severity = model.SeverityCritical
	case multiplier >= amountHighMultiplier:
		severity = model.SeverityHigh
	}

	// Points grow with the log of the multiplier so a 50x amount does not
	// drown out every other signal.
	points := int(math.Round(10 * math.Log2(multiplier)))
	if points > amountMaxPoints {
		points = amountMaxPoints
	}
	if points < amountFloorPoints {
		points = amountFloorPoints
	}

	return model.Signal{
		Kind:        model.SignalAmountAnomaly,
		Severity:    severity,
		RiskPoints:  points,
		Description: fmt.Sprintf("amount %s is %.2fx the account average %s", tx.Amount, multiplier, history.AverageAmount),
		Details: model.AmountDetails{
			Amount:     tx.Amount,
			Average:    history.AverageAmount,
			Multiplier: multiplier,
		},
	}, true
}
