package engine

import (
	"fmt"
	"strings"

	"trustpay/internal/model"
)

// extractLocationAnomaly fires when a located transaction comes from outside
// the account's home locations. A missing location or an account with no home
// locations leaves nothing to compare against.
func (e *Engine) extractLocationAnomaly(tx model.Transaction, history model.AccountHistory) (model.Signal, bool) {
	loc := normalizeLocation(tx.Location)
	if loc == "" || len(history.HomeLocations) == 0 {
		return model.Signal{}, false
	}
	for _, home := range history.HomeLocations {
		if normalizeLocation(home) == loc {
			return model.Signal{}, false
		}
	}

	_, denied := e.denylist[loc]
	_, watched := e.watchlist[loc]

	severity := model.SeverityHigh
	points := 25
	switch {
	case denied:
		severity = model.SeverityCritical
		points = 30
	case watched:
		severity = model.SeverityMedium
		points = 15
	}

	return model.Signal{
		Kind:        model.SignalLocationAnomaly,
		Severity:    severity,
		RiskPoints:  points,
		Description: fmt.Sprintf("transaction from %s, outside the account's known locations", tx.Location),
		Details: model.LocationDetails{
			Location:      tx.Location,
			HomeLocations: history.HomeLocations,
			Denylisted:    denied,
			Watchlisted:   watched,
		},
	}, true
}

func buildLocationSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		loc := normalizeLocation(v)
		if loc == "" {
			continue
		}
		set[loc] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func normalizeLocation(loc string) string {
	return strings.ToLower(strings.Join(strings.Fields(loc), " "))
}
