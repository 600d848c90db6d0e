package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func tx(id, account, amount, location string, at time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		Kind:        model.KindPayment,
		FromAccount: account,
		ToAccount:   "merchant",
		OccurredAt:  at,
		Channel:     model.ChannelOnline,
		Location:    location,
	}
}

func TestSnapshotUnknownAccount(t *testing.T) {
	s := NewStore(config.HistoryConfig{})
	h := s.Snapshot("nobody", base)
	if len(h.RecentTransactions) != 0 || !h.AverageAmount.IsZero() || len(h.HomeLocations) != 0 {
		t.Fatalf("expected empty history, got %+v", h)
	}
}

func TestAverageAndLocations(t *testing.T) {
	s := NewStore(config.HistoryConfig{})
	s.Admit(tx("1", "acct", "10.00", "Lagos, Nigeria", base.Add(-3*time.Hour)))
	s.Admit(tx("2", "acct", "20.00", "Lagos, Nigeria", base.Add(-2*time.Hour)))
	s.Admit(tx("3", "acct", "30.00", "Abuja, Nigeria", base.Add(-1*time.Hour)))

	h := s.Snapshot("acct", base)
	if len(h.RecentTransactions) != 3 {
		t.Fatalf("recent = %d, want 3", len(h.RecentTransactions))
	}
	if !h.AverageAmount.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("average = %s, want 20.00", h.AverageAmount)
	}
	want := []string{"Abuja, Nigeria", "Lagos, Nigeria"}
	if len(h.HomeLocations) != 2 || h.HomeLocations[0] != want[0] || h.HomeLocations[1] != want[1] {
		t.Fatalf("homes = %v, want %v", h.HomeLocations, want)
	}
}

func TestLookbackEviction(t *testing.T) {
	s := NewStore(config.HistoryConfig{Lookback: time.Hour})
	s.Admit(tx("old", "acct", "100.00", "London, UK", base.Add(-2*time.Hour)))
	s.Admit(tx("new", "acct", "10.00", "Lagos, Nigeria", base.Add(-10*time.Minute)))

	h := s.Snapshot("acct", base)
	if len(h.RecentTransactions) != 1 || h.RecentTransactions[0].ID != "new" {
		t.Fatalf("recent = %+v, want only the fresh transaction", h.RecentTransactions)
	}
	if !h.AverageAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("average = %s, want 10.00", h.AverageAmount)
	}
	for _, loc := range h.HomeLocations {
		if loc == "London, UK" {
			t.Fatalf("evicted transaction still contributes a home location")
		}
	}
}

func TestPerAccountCap(t *testing.T) {
	s := NewStore(config.HistoryConfig{MaxPerAccount: 5})
	for i := 0; i < 20; i++ {
		s.Admit(tx(fmt.Sprintf("tx-%d", i), "acct", "10.00", "", base.Add(time.Duration(i)*time.Minute)))
	}
	h := s.Snapshot("acct", base.Add(20*time.Minute))
	if len(h.RecentTransactions) > 5 {
		t.Fatalf("recent = %d, want at most 5", len(h.RecentTransactions))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(config.HistoryConfig{})
	s.Admit(tx("1", "acct", "10.00", "", base.Add(-time.Minute)))
	h := s.Snapshot("acct", base)
	h.RecentTransactions[0].ID = "mutated"
	again := s.Snapshot("acct", base)
	if again.RecentTransactions[0].ID != "1" {
		t.Fatalf("snapshot shares backing storage with the store")
	}
}

func TestTimezoneSurvivesAdmits(t *testing.T) {
	s := NewStore(config.HistoryConfig{})
	s.SetTimezone("acct", "Africa/Lagos")
	s.Admit(tx("1", "acct", "10.00", "", base.Add(-time.Minute)))

	h := s.Snapshot("acct", base)
	if h.Timezone != "Africa/Lagos" {
		t.Fatalf("timezone = %q, want Africa/Lagos", h.Timezone)
	}
	if s.Snapshot("other", base).Timezone != "" {
		t.Fatalf("timezone leaked to another account")
	}
}

func TestAccountEviction(t *testing.T) {
	s := NewStore(config.HistoryConfig{MaxAccounts: 3})
	for i := 0; i < 6; i++ {
		s.Admit(tx("1", fmt.Sprintf("acct-%d", i), "10.00", "", base))
	}
	if got := s.Accounts(); got > 3 {
		t.Fatalf("accounts = %d, want at most 3", got)
	}
}
