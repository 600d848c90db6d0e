package engine

import "trustpay/internal/model"

// Decision bands, inclusive on the lower bound. Two flag bands exist so
// callers can route elevated flags differently, but the decision label is
// the same.
const (
	flagScore     = 25
	elevatedScore = 50
	blockScore    = 80
)

// Decide maps an aggregated score to a decision. Bands are evaluated in
// ascending order; the first match wins.
func Decide(score int) model.Decision {
	switch {
	case score < flagScore:
		return model.DecisionApprove
	case score < blockScore:
		return model.DecisionFlag
	default:
		return model.DecisionBlock
	}
}

// RiskLevel is the four-step display label the review dashboard uses. It sits
// on top of the three-way decision space and has no effect on gating.
func RiskLevel(score int) model.Severity {
	switch {
	case score < flagScore:
		return model.SeverityLow
	case score < elevatedScore:
		return model.SeverityMedium
	case score < blockScore:
		return model.SeverityHigh
	default:
		return model.SeverityCritical
	}
}

// Elevated reports whether a flagged score falls in the upper flag band.
func Elevated(score int) bool {
	return score >= elevatedScore && score < blockScore
}
