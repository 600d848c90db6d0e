package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trustpay/internal/model"
)

// extractRoundPattern fires when the last N transactions for the account,
// current included, are all exact multiples of the round unit. Structuring
// runs tend to use suspiciously round amounts.
func (e *Engine) extractRoundPattern(tx model.Transaction, history model.AccountHistory) (model.Signal, bool) {
	lookback := e.cfg.RoundLookback
	if len(history.RecentTransactions) < lookback-1 {
		return model.Signal{}, false
	}
	if !e.isRound(tx.Amount) {
		return model.Signal{}, false
	}
	recent := history.RecentTransactions
	for _, prior := range recent[len(recent)-(lookback-1):] {
		if !e.isRound(prior.Amount) {
			return model.Signal{}, false
		}
	}

	return model.Signal{
		Kind:        model.SignalPattern,
		Severity:    model.SeverityMedium,
		RiskPoints:  20,
		Description: fmt.Sprintf("last %d transactions are all multiples of %s", lookback, e.roundUnit),
		Details: model.PatternDetails{
			Lookback:  lookback,
			RoundUnit: e.roundUnit.String(),
		},
	}, true
}

// extractUnusualHour fires when the transaction's local hour falls inside the
// configured unusual band. The band may wrap midnight.
func (e *Engine) extractUnusualHour(tx model.Transaction, history model.AccountHistory) (model.Signal, bool) {
	loc := e.loc
	tzName := e.cfg.DefaultTimezone
	if history.Timezone != "" {
		if l, err := time.LoadLocation(history.Timezone); err == nil {
			loc = l
			tzName = history.Timezone
		}
	}
	hour := tx.OccurredAt.In(loc).Hour()
	if !hourInBand(hour, e.cfg.UnusualHourStart, e.cfg.UnusualHourEnd) {
		return model.Signal{}, false
	}

	return model.Signal{
		Kind:        model.SignalTimeAnomaly,
		Severity:    model.SeverityLow,
		RiskPoints:  15,
		Description: fmt.Sprintf("transaction at %02d:00 local time falls in the unusual-hour band", hour),
		Details: model.TimeDetails{
			LocalHour: hour,
			BandStart: e.cfg.UnusualHourStart,
			BandEnd:   e.cfg.UnusualHourEnd,
			Timezone:  tzName,
		},
	}, true
}

func (e *Engine) isRound(amount decimal.Decimal) bool {
	return amount.Mod(e.roundUnit).IsZero()
}

func hourInBand(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
