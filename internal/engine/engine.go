package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

// Engine scores transactions against their account history. It holds no
// mutable state: every Assess call depends only on its inputs, so calls may
// run concurrently across transactions.
type Engine struct {
	cfg       config.ScoringConfig
	roundUnit decimal.Decimal
	watchlist map[string]struct{}
	denylist  map[string]struct{}
	loc       *time.Location

	now   func() time.Time
	newID func() string
}

func New(cfg config.ScoringConfig) (*Engine, error) {
	if err := config.ValidateScoring(cfg); err != nil {
		return nil, &InvalidConfigError{Err: err}
	}
	unit, err := decimal.NewFromString(cfg.RoundUnit)
	if err != nil || unit.Sign() <= 0 {
		return nil, &InvalidConfigError{Err: fmt.Errorf("round_unit %q is not a positive decimal", cfg.RoundUnit)}
	}
	loc := time.UTC
	if cfg.DefaultTimezone != "" {
		l, err := time.LoadLocation(cfg.DefaultTimezone)
		if err != nil {
			return nil, &InvalidConfigError{Err: err}
		}
		loc = l
	}
	return &Engine{
		cfg:       cfg,
		roundUnit: unit,
		watchlist: buildLocationSet(cfg.NearbyWatchlist),
		denylist:  buildLocationSet(cfg.LocationDenylist),
		loc:       loc,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

// WithClock replaces the wall clock used for assessment and alert timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithIDGenerator replaces the alert id generator.
func (e *Engine) WithIDGenerator(newID func() string) *Engine {
	e.newID = newID
	return e
}

// Assess runs every extractor against the transaction and its history,
// aggregates the triggered signals into a clamped score and classifies it.
// Signals appear in fixed extractor order: velocity, amount, location,
// pattern, time.
func (e *Engine) Assess(tx model.Transaction, history model.AccountHistory) (model.RiskAssessment, error) {
	if err := validateTransaction(tx); err != nil {
		return model.RiskAssessment{}, err
	}

	signals := make([]model.Signal, 0, 5)
	if sig, ok := e.extractVelocity(tx, history); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.extractAmountAnomaly(tx, history); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.extractLocationAnomaly(tx, history); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.extractRoundPattern(tx, history); ok {
		signals = append(signals, sig)
	}
	if sig, ok := e.extractUnusualHour(tx, history); ok {
		signals = append(signals, sig)
	}

	score := 0
	for _, sig := range signals {
		score += sig.RiskPoints
	}
	if score > 100 {
		score = 100
	}

	return model.RiskAssessment{
		TransactionID: tx.ID,
		Score:         score,
		Signals:       signals,
		Decision:      Decide(score),
		AssessedAt:    e.now(),
	}, nil
}

// BuildAlerts materializes one AlertRecord per signal when the assessment was
// not approved. Approved transactions are never queued for review, regardless
// of which signals fired. Records preserve signal order.
func (e *Engine) BuildAlerts(a model.RiskAssessment) []model.AlertRecord {
	if a.Decision == model.DecisionApprove {
		return nil
	}
	records := make([]model.AlertRecord, 0, len(a.Signals))
	now := e.now()
	for _, sig := range a.Signals {
		records = append(records, model.AlertRecord{
			ID:            e.newID(),
			TransactionID: a.TransactionID,
			SignalKind:    sig.Kind,
			Severity:      sig.Severity,
			Description:   sig.Description,
			Details:       sig.Details,
			CreatedAt:     now,
			Status:        model.StatusActive,
		})
	}
	return records
}

func validateTransaction(tx model.Transaction) error {
	if tx.ID == "" {
		return &InvalidTransactionError{Field: "id", Reason: "required"}
	}
	if tx.Amount.Sign() <= 0 {
		return &InvalidTransactionError{Field: "amount", Reason: "must be positive"}
	}
	if tx.FromAccount == "" {
		return &InvalidTransactionError{Field: "from_account", Reason: "required"}
	}
	if tx.OccurredAt.IsZero() {
		return &InvalidTransactionError{Field: "occurred_at", Reason: "required"}
	}
	switch tx.Kind {
	case model.KindPayment, model.KindCashout, model.KindTransfer:
	default:
		return &InvalidTransactionError{Field: "kind", Reason: "unknown kind"}
	}
	switch tx.Channel {
	case model.ChannelOnline, model.ChannelSMS, model.ChannelUSSD:
	default:
		return &InvalidTransactionError{Field: "channel", Reason: "unknown channel"}
	}
	return nil
}
