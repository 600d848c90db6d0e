package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

// TxFields is the raw, stringly-typed shape every ingest source produces
// before validation.
type TxFields struct {
	ID        string
	Amount    string
	Currency  string
	Kind      string
	From      string
	To        string
	Timestamp string
	Channel   string
	Location  string
	Extras    map[string]string
	Raw       string
}

// Normalize turns raw fields into a model.Transaction, filling defaults from
// the parser config. A missing id gets generated; a missing amount or account
// is a hard error.
func Normalize(fields TxFields, cfg *config.Config) (model.Transaction, error) {
	id := strings.TrimSpace(fields.ID)
	if id == "" {
		id = uuid.NewString()
	}

	from := strings.TrimSpace(fields.From)
	if from == "" {
		return model.Transaction{}, errors.New("missing from account")
	}

	amountStr := strings.TrimSpace(fields.Amount)
	if amountStr == "" {
		return model.Transaction{}, errors.New("missing amount")
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}

	currency := strings.ToUpper(strings.TrimSpace(fields.Currency))
	if currency == "" {
		currency = cfg.Ingest.Parser.DefaultCurrency
	}

	loc := time.UTC
	if cfg.Ingest.Parser.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Ingest.Parser.Timezone); err == nil {
			loc = l
		}
	}
	ts := time.Now().UTC()
	if fields.Timestamp != "" {
		parsed, err := ParseTimestamp(fields.Timestamp, loc)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parse timestamp: %w", err)
		}
		ts = parsed.UTC()
	}

	kind, err := ParseKind(fields.Kind)
	if err != nil {
		return model.Transaction{}, err
	}

	channel := ParseChannel(fields.Channel)
	if channel == "" {
		channel = ParseChannel(cfg.Ingest.Parser.DefaultChannel)
	}
	if channel == "" {
		channel = model.ChannelOnline
	}

	return model.Transaction{
		ID:          id,
		Amount:      amount,
		Currency:    currency,
		Kind:        kind,
		FromAccount: from,
		ToAccount:   strings.TrimSpace(fields.To),
		OccurredAt:  ts,
		Channel:     channel,
		Location:    strings.TrimSpace(fields.Location),
	}, nil
}

func ParseKind(kind string) (model.TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "payment", "pay", "purchase", "":
		return model.KindPayment, nil
	case "cashout", "withdraw", "withdrawal":
		return model.KindCashout, nil
	case "transfer", "send", "p2p":
		return model.KindTransfer, nil
	}
	return "", fmt.Errorf("unknown transaction kind: %q", kind)
}

func ParseChannel(channel string) model.Channel {
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case "online", "web", "app":
		return model.ChannelOnline
	case "sms", "text":
		return model.ChannelSMS
	case "ussd":
		return model.ChannelUSSD
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
}

func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if isNumeric(value) {
		if ts, err := parseUnix(value); err == nil {
			return ts, nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}

func isNumeric(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > 0
}

func parseUnix(value string) (time.Time, error) {
	if len(value) >= 13 {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(0, ms*int64(time.Millisecond)).UTC(), nil
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
