package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindPayment  TransactionKind = "payment"
	KindCashout  TransactionKind = "cashout"
	KindTransfer TransactionKind = "transfer"
)

type Channel string

const (
	ChannelOnline Channel = "online"
	ChannelSMS    Channel = "sms"
	ChannelUSSD   Channel = "ussd"
)

// Transaction is a single funds-movement attempt. OccurredAt is the
// authoritative time for all windowed computations.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Kind        TransactionKind `json:"kind"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Channel     Channel         `json:"channel"`
	Location    string          `json:"location,omitempty"`
}

// AccountHistory is the rolling context for one account. It is built and
// owned by the history store; the scoring engine only reads it.
type AccountHistory struct {
	RecentTransactions []Transaction   `json:"recent_transactions"`
	AverageAmount      decimal.Decimal `json:"average_amount"`
	HomeLocations      []string        `json:"home_locations"`
	Timezone           string          `json:"timezone,omitempty"`
}

type SignalKind string

const (
	SignalVelocity        SignalKind = "velocity"
	SignalAmountAnomaly   SignalKind = "amount_anomaly"
	SignalLocationAnomaly SignalKind = "location_anomaly"
	SignalPattern         SignalKind = "pattern"
	SignalTimeAnomaly     SignalKind = "time_anomaly"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Signal is one fraud indicator produced by a single extractor. Details holds
// the extractor-specific evidence, keyed by Kind.
type Signal struct {
	Kind        SignalKind    `json:"kind"`
	Severity    Severity      `json:"severity"`
	RiskPoints  int           `json:"risk_points"`
	Description string        `json:"description"`
	Details     SignalDetails `json:"details"`
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionFlag    Decision = "flag"
	DecisionBlock   Decision = "block"
)

// RiskAssessment is the engine's output for one transaction. It is immutable
// once returned; signal order matches extractor evaluation order.
type RiskAssessment struct {
	TransactionID string    `json:"transaction_id"`
	Score         int       `json:"score"`
	Signals       []Signal  `json:"signals"`
	Decision      Decision  `json:"decision"`
	AssessedAt    time.Time `json:"assessed_at"`
}

type AlertStatus string

const (
	StatusActive        AlertStatus = "active"
	StatusInvestigating AlertStatus = "investigating"
	StatusResolved      AlertStatus = "resolved"
	StatusFalsePositive AlertStatus = "false_positive"
)

// AlertRecord is a reviewable materialization of one triggered Signal.
// Status transitions happen only through external review, never inside
// the scoring engine.
type AlertRecord struct {
	ID            string        `json:"id"`
	TransactionID string        `json:"transaction_id"`
	SignalKind    SignalKind    `json:"signal_kind"`
	Severity      Severity      `json:"severity"`
	Description   string        `json:"description"`
	Details       SignalDetails `json:"details"`
	CreatedAt     time.Time     `json:"created_at"`
	Status        AlertStatus   `json:"status"`
}

// CanTransition reports whether an alert may move from its current status to
// next. Active alerts may move anywhere; investigating alerts may only be
// closed out; closed alerts are terminal.
func (a AlertRecord) CanTransition(next AlertStatus) bool {
	switch a.Status {
	case StatusActive:
		return next == StatusInvestigating || next == StatusResolved || next == StatusFalsePositive
	case StatusInvestigating:
		return next == StatusResolved || next == StatusFalsePositive
	default:
		return false
	}
}
