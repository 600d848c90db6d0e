package normalize

import (
	"strings"
	"testing"
	"time"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	tx, err := Normalize(TxFields{
		From:      "acct-001",
		Amount:    "89.50",
		Timestamp: "2026-03-14T12:00:00Z",
	}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID == "" {
		t.Error("expected generated transaction id")
	}
	if tx.Amount.String() != "89.5" {
		t.Errorf("amount = %s, want 89.5", tx.Amount)
	}
	if tx.Kind != model.KindPayment {
		t.Errorf("kind = %s, want payment", tx.Kind)
	}
	if tx.Channel != model.ChannelOnline {
		t.Errorf("channel = %s, want online", tx.Channel)
	}
	want := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if !tx.OccurredAt.Equal(want) {
		t.Errorf("occurred_at = %s, want %s", tx.OccurredAt, want)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	cfg := config.DefaultConfig()
	if _, err := Normalize(TxFields{Amount: "5.00"}, cfg); err == nil {
		t.Error("expected error for missing from account")
	}
	if _, err := Normalize(TxFields{From: "acct-001"}, cfg); err == nil {
		t.Error("expected error for missing amount")
	}
	if _, err := Normalize(TxFields{From: "acct-001", Amount: "abc"}, cfg); err == nil {
		t.Error("expected error for bad amount")
	}
	_, err := Normalize(TxFields{From: "acct-001", Amount: "5.00", Kind: "loan"}, cfg)
	if err == nil || !strings.Contains(err.Error(), "unknown transaction kind") {
		t.Errorf("expected unknown kind error, got %v", err)
	}
}

func TestParseKindSynonyms(t *testing.T) {
	cases := map[string]model.TransactionKind{
		"payment":    model.KindPayment,
		"Purchase":   model.KindPayment,
		"":           model.KindPayment,
		"cashout":    model.KindCashout,
		"withdrawal": model.KindCashout,
		"p2p":        model.KindTransfer,
		"SEND":       model.KindTransfer,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseChannelSynonyms(t *testing.T) {
	cases := map[string]model.Channel{
		"web":  model.ChannelOnline,
		"text": model.ChannelSMS,
		"USSD": model.ChannelUSSD,
		"fax":  "",
	}
	for in, want := range cases {
		if got := ParseChannel(in); got != want {
			t.Errorf("ParseChannel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseTimestampUnix(t *testing.T) {
	got, err := ParseTimestamp("1773921600", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Unix() != 1773921600 {
		t.Errorf("unix seconds = %d, want 1773921600", got.Unix())
	}

	got, err = ParseTimestamp("1773921600500", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UnixMilli() != 1773921600500 {
		t.Errorf("unix millis = %d, want 1773921600500", got.UnixMilli())
	}
}
