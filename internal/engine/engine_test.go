package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newEngineForTest(t *testing.T, cfg config.ScoringConfig) *Engine {
	t.Helper()
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	seq := 0
	eng.WithClock(func() time.Time { return baseTime })
	eng.WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("alert-%d", seq)
	})
	return eng
}

func testTx(id, amount string, at time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		Kind:        model.KindPayment,
		FromAccount: "acct-1",
		ToAccount:   "merchant-1",
		OccurredAt:  at,
		Channel:     model.ChannelOnline,
	}
}

func priorTxs(n int, amount string, interval time.Duration, end time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, testTx(fmt.Sprintf("prior-%d", i), amount, end.Add(-time.Duration(i)*interval)))
	}
	return out
}

func TestNoHistoryApproves(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	a, err := eng.Assess(testTx("tx-1", "25.00", baseTime), model.AccountHistory{})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.Score != 0 {
		t.Fatalf("score = %d, want 0", a.Score)
	}
	if a.Decision != model.DecisionApprove {
		t.Fatalf("decision = %s, want approve", a.Decision)
	}
	if len(a.Signals) != 0 {
		t.Fatalf("signals = %d, want 0", len(a.Signals))
	}
	if alerts := eng.BuildAlerts(a); len(alerts) != 0 {
		t.Fatalf("alerts = %d, want 0", len(alerts))
	}
}

func TestAverageAmountMatchApproves(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{AverageAmount: decimal.RequireFromString("25.00")}
	a, err := eng.Assess(testTx("tx-1", "25.00", baseTime), history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.Score != 0 || a.Decision != model.DecisionApprove {
		t.Fatalf("got score=%d decision=%s, want 0/approve", a.Score, a.Decision)
	}
}

func TestVelocityFlagsBurst(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	// 12 prior transactions inside the trailing hour; with the current one the
	// effective count is 13, three over the threshold of 10.
	history := model.AccountHistory{
		RecentTransactions: priorTxs(12, "12.30", 4*time.Minute, baseTime),
	}
	a, err := eng.Assess(testTx("tx-1", "12.30", baseTime), history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Signals) != 1 || a.Signals[0].Kind != model.SignalVelocity {
		t.Fatalf("signals = %+v, want one velocity signal", a.Signals)
	}
	sig := a.Signals[0]
	if sig.Severity != model.SeverityMedium {
		t.Fatalf("severity = %s, want medium", sig.Severity)
	}
	if sig.RiskPoints != 26 {
		t.Fatalf("risk points = %d, want 26", sig.RiskPoints)
	}
	if a.Decision != model.DecisionFlag {
		t.Fatalf("decision = %s, want flag", a.Decision)
	}
	details, ok := sig.Details.(model.VelocityDetails)
	if !ok {
		t.Fatalf("details type = %T", sig.Details)
	}
	if details.Count != 13 || details.Threshold != 10 {
		t.Fatalf("details = %+v", details)
	}
}

func TestVelocityJustOverThreshold(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	// 11 priors plus current: count 12, two over threshold, 24 points. That
	// stays below the flag band on its own.
	history := model.AccountHistory{
		RecentTransactions: priorTxs(11, "12.30", 4*time.Minute, baseTime),
	}
	a, err := eng.Assess(testTx("tx-1", "12.30", baseTime), history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(a.Signals))
	}
	if got := a.Signals[0].RiskPoints; got < 20 || got > 24 {
		t.Fatalf("risk points = %d, want within [20,24]", got)
	}
	if a.Signals[0].Severity != model.SeverityMedium {
		t.Fatalf("severity = %s, want medium", a.Signals[0].Severity)
	}
}

func TestVelocityIgnoresOtherAccounts(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	priors := priorTxs(20, "12.30", time.Minute, baseTime)
	for i := range priors {
		priors[i].FromAccount = "acct-other"
	}
	a, err := eng.Assess(testTx("tx-1", "12.30", baseTime), model.AccountHistory{RecentTransactions: priors})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	for _, sig := range a.Signals {
		if sig.Kind == model.SignalVelocity {
			t.Fatalf("unexpected velocity signal")
		}
	}
}

func TestAmountAnomalyMediumBand(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{AverageAmount: decimal.RequireFromString("25.00")}
	a, err := eng.Assess(testTx("tx-1", "89.50", baseTime), history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Signals) != 1 || a.Signals[0].Kind != model.SignalAmountAnomaly {
		t.Fatalf("signals = %+v, want one amount_anomaly", a.Signals)
	}
	sig := a.Signals[0]
	if sig.Severity != model.SeverityMedium {
		t.Fatalf("severity = %s, want medium", sig.Severity)
	}
	if sig.RiskPoints < 15 {
		t.Fatalf("risk points = %d, want >= 15", sig.RiskPoints)
	}
	details := sig.Details.(model.AmountDetails)
	if details.Multiplier < 3.57 || details.Multiplier > 3.59 {
		t.Fatalf("multiplier = %v, want ~3.58", details.Multiplier)
	}
}

func TestAmountAnomalySeverityBands(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{AverageAmount: decimal.RequireFromString("20.00")}
	cases := []struct {
		amount   string
		severity model.Severity
	}{
		{"61.00", model.SeverityMedium},
		{"101.00", model.SeverityHigh},
		{"201.00", model.SeverityCritical},
	}
	for _, tc := range cases {
		a, err := eng.Assess(testTx("tx-1", tc.amount, baseTime), history)
		if err != nil {
			t.Fatalf("assess %s: %v", tc.amount, err)
		}
		if len(a.Signals) != 1 || a.Signals[0].Severity != tc.severity {
			t.Fatalf("amount %s: signals = %+v, want severity %s", tc.amount, a.Signals, tc.severity)
		}
	}
}

func TestAmountAnomalyMonotonic(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{AverageAmount: decimal.RequireFromString("20.00")}
	prevPoints := 0
	prevScore := 0
	for _, amount := range []string{"61.00", "80.00", "130.00", "400.00", "2000.00", "90000.00"} {
		a, err := eng.Assess(testTx("tx-1", amount, baseTime), history)
		if err != nil {
			t.Fatalf("assess %s: %v", amount, err)
		}
		if len(a.Signals) != 1 {
			t.Fatalf("amount %s: signals = %d", amount, len(a.Signals))
		}
		if a.Signals[0].RiskPoints < prevPoints {
			t.Fatalf("amount %s: points dropped from %d to %d", amount, prevPoints, a.Signals[0].RiskPoints)
		}
		if a.Score < prevScore {
			t.Fatalf("amount %s: score dropped from %d to %d", amount, prevScore, a.Score)
		}
		prevPoints = a.Signals[0].RiskPoints
		prevScore = a.Score
	}
}

func TestCriticalBurstBlocks(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	// 25 transactions in half an hour, a 50x amount, and an unknown location.
	history := model.AccountHistory{
		RecentTransactions: priorTxs(25, "7.77", 70*time.Second, baseTime),
		AverageAmount:      decimal.RequireFromString("20.00"),
		HomeLocations:      []string{"Lagos, Nigeria"},
	}
	tx := testTx("tx-1", "1000.00", baseTime)
	tx.Location = "Unknown Location"
	a, err := eng.Assess(tx, history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Signals) != 3 {
		t.Fatalf("signals = %d (%+v), want 3", len(a.Signals), a.Signals)
	}
	wantOrder := []model.SignalKind{model.SignalVelocity, model.SignalAmountAnomaly, model.SignalLocationAnomaly}
	for i, kind := range wantOrder {
		if a.Signals[i].Kind != kind {
			t.Fatalf("signal %d kind = %s, want %s", i, a.Signals[i].Kind, kind)
		}
	}
	if a.Score != 100 {
		t.Fatalf("score = %d, want clamped 100", a.Score)
	}
	if a.Decision != model.DecisionBlock {
		t.Fatalf("decision = %s, want block", a.Decision)
	}
	alerts := eng.BuildAlerts(a)
	if len(alerts) != 3 {
		t.Fatalf("alerts = %d, want 3", len(alerts))
	}
	for i, rec := range alerts {
		if rec.Status != model.StatusActive {
			t.Fatalf("alert %d status = %s, want active", i, rec.Status)
		}
		if rec.SignalKind != a.Signals[i].Kind {
			t.Fatalf("alert %d kind = %s, want %s", i, rec.SignalKind, a.Signals[i].Kind)
		}
		if rec.TransactionID != "tx-1" || rec.ID == "" {
			t.Fatalf("alert %d = %+v", i, rec)
		}
	}
}

func TestDeterministicAssessment(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{
		RecentTransactions: priorTxs(15, "10.00", 2*time.Minute, baseTime),
		AverageAmount:      decimal.RequireFromString("10.00"),
		HomeLocations:      []string{"Lagos, Nigeria"},
	}
	tx := testTx("tx-1", "95.00", baseTime)
	tx.Location = "London, UK"
	first, err := eng.Assess(tx, history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := eng.Assess(tx, history)
		if err != nil {
			t.Fatalf("assess: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("assessment differs on run %d:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{
		RecentTransactions: priorTxs(60, "100.00", 30*time.Second, baseTime),
		AverageAmount:      decimal.RequireFromString("1.00"),
		HomeLocations:      []string{"Lagos, Nigeria"},
	}
	tx := testTx("tx-1", "100000.00", time.Date(2026, 3, 14, 2, 30, 0, 0, time.UTC))
	tx.Location = "Unknown"
	a, err := eng.Assess(tx, history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.Score < 0 || a.Score > 100 {
		t.Fatalf("score = %d, out of [0,100]", a.Score)
	}
}

func TestApproveBuildsNoAlerts(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	// Only the low-severity unusual-hour signal fires: 15 points, approved.
	tx := testTx("tx-1", "12.30", time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC))
	a, err := eng.Assess(tx, model.AccountHistory{})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Signals) != 1 || a.Signals[0].Kind != model.SignalTimeAnomaly {
		t.Fatalf("signals = %+v, want one time_anomaly", a.Signals)
	}
	if a.Decision != model.DecisionApprove {
		t.Fatalf("decision = %s, want approve", a.Decision)
	}
	if alerts := eng.BuildAlerts(a); len(alerts) != 0 {
		t.Fatalf("alerts = %d, want 0 for approved transaction", len(alerts))
	}
}

func TestAlertSignalParity(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	history := model.AccountHistory{
		AverageAmount: decimal.RequireFromString("10.00"),
		HomeLocations: []string{"Lagos, Nigeria"},
	}
	tx := testTx("tx-1", "75.00", baseTime)
	tx.Location = "London, UK"
	a, err := eng.Assess(tx, history)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.Decision == model.DecisionApprove {
		t.Fatalf("expected a non-approve decision, got %s with score %d", a.Decision, a.Score)
	}
	alerts := eng.BuildAlerts(a)
	if len(alerts) != len(a.Signals) {
		t.Fatalf("alerts = %d, signals = %d, want parity", len(alerts), len(a.Signals))
	}
}

func TestInvalidTransaction(t *testing.T) {
	eng := newEngineForTest(t, config.DefaultConfig().Scoring)
	cases := []struct {
		name   string
		mutate func(*model.Transaction)
	}{
		{"zero amount", func(tx *model.Transaction) { tx.Amount = decimal.Zero }},
		{"negative amount", func(tx *model.Transaction) { tx.Amount = decimal.RequireFromString("-5") }},
		{"missing id", func(tx *model.Transaction) { tx.ID = "" }},
		{"missing account", func(tx *model.Transaction) { tx.FromAccount = "" }},
		{"zero time", func(tx *model.Transaction) { tx.OccurredAt = time.Time{} }},
		{"bad kind", func(tx *model.Transaction) { tx.Kind = "loan" }},
		{"bad channel", func(tx *model.Transaction) { tx.Channel = "carrier_pigeon" }},
	}
	for _, tc := range cases {
		tx := testTx("tx-1", "10.00", baseTime)
		tc.mutate(&tx)
		_, err := eng.Assess(tx, model.AccountHistory{})
		var invalid *InvalidTransactionError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: err = %v, want InvalidTransactionError", tc.name, err)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.ScoringConfig)
	}{
		{"zero threshold", func(sc *config.ScoringConfig) { sc.VelocityThreshold = 0 }},
		{"negative window", func(sc *config.ScoringConfig) { sc.VelocityWindow = -time.Hour }},
		{"multiplier at one", func(sc *config.ScoringConfig) { sc.AmountMultiplier = 1 }},
		{"bad hour", func(sc *config.ScoringConfig) { sc.UnusualHourStart = 31 }},
		{"bad round unit", func(sc *config.ScoringConfig) { sc.RoundUnit = "zero-ish" }},
		{"bad timezone", func(sc *config.ScoringConfig) { sc.DefaultTimezone = "Mars/Olympus" }},
	}
	for _, tc := range cases {
		sc := config.DefaultConfig().Scoring
		tc.mutate(&sc)
		_, err := New(sc)
		var invalid *InvalidConfigError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: err = %v, want InvalidConfigError", tc.name, err)
		}
	}
}
