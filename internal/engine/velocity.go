package engine

import (
	"fmt"

	"trustpay/internal/model"
)

// extractVelocity counts same-account transactions inside the trailing window
// ending at the current transaction, the current transaction included. With an
// empty history the count is 1 and the check can never fire.
func (e *Engine) extractVelocity(tx model.Transaction, history model.AccountHistory) (model.Signal, bool) {
	window := e.cfg.VelocityWindow
	cutoff := tx.OccurredAt.Add(-window)

	count := 1
	for _, prior := range history.RecentTransactions {
		if prior.FromAccount != tx.FromAccount {
			continue
		}
		if prior.OccurredAt.After(tx.OccurredAt) {
			continue
		}
		if prior.OccurredAt.After(cutoff) {
			count++
		}
	}

	threshold := e.cfg.VelocityThreshold
	if count <= threshold {
		return model.Signal{}, false
	}

	over := count - threshold
	severity := model.SeverityCritical
	switch {
	case over <= 5:
		severity = model.SeverityMedium
	case over <= 15:
		severity = model.SeverityHigh
	}

	points := 20 + min(25, over*2)

	return model.Signal{
		Kind:        model.SignalVelocity,
		Severity:    severity,
		RiskPoints:  points,
		Description: fmt.Sprintf("%d transactions within %s exceeds threshold of %d", count, window, threshold),
		Details: model.VelocityDetails{
			Count:     count,
			Threshold: threshold,
			Window:    window.String(),
		},
	}, true
}
