package ingest

import (
	"encoding/csv"
	"regexp"
	"strings"

	"trustpay/internal/normalize"
)

var (
	reKV        = regexp.MustCompile(`(?i)([a-zA-Z_]+)=([^\s]+)`)
	reTimestamp = regexp.MustCompile(`^\s*([0-9]{4}-[0-9]{2}-[0-9]{2}[ T][0-9:.+-Z]+)`)
)

// Parser turns one line from a gateway feed into raw transaction fields.
// It accepts JSON objects, CSV rows (with an optional header), and simple
// key=value lines, which is what SMS/USSD gateway exports tend to look like.
type Parser struct {
	csv *CSVParser
}

func NewParser() *Parser {
	return &Parser{csv: NewCSVParser()}
}

func (p *Parser) ParseLine(line string) (*normalize.TxFields, error) {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return nil, nil
	}
	if looksLikeJSON(trim) {
		if fields, err := ParseJSONBytes([]byte(trim)); err == nil {
			fields.Raw = line
			return fields, nil
		}
	}
	if strings.Contains(trim, ",") && !strings.Contains(trim, "=") {
		fields, err := p.csv.Parse(trim)
		if err == nil {
			if fields == nil {
				return nil, nil
			}
			fields.Raw = line
			return fields, nil
		}
	}
	fields := parseKV(trim)
	fields.Raw = line
	return fields, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func parseKV(line string) *normalize.TxFields {
	kv := map[string]string{}
	for _, match := range reKV.FindAllStringSubmatch(line, -1) {
		kv[strings.ToLower(match[1])] = match[2]
	}
	fields := &normalize.TxFields{Extras: kv}
	fields.ID = firstNonEmpty(kv, "id", "tx_id", "transaction_id")
	fields.Amount = firstNonEmpty(kv, "amount", "value")
	fields.Currency = firstNonEmpty(kv, "currency", "ccy")
	fields.Kind = firstNonEmpty(kv, "kind", "type")
	fields.From = firstNonEmpty(kv, "from_account", "from", "sender", "msisdn")
	fields.To = firstNonEmpty(kv, "to_account", "to", "recipient")
	fields.Timestamp = firstNonEmpty(kv, "occurred_at", "timestamp", "time", "ts")
	fields.Channel = firstNonEmpty(kv, "channel", "method")
	fields.Location = firstNonEmpty(kv, "location", "region", "geo")
	if fields.Timestamp == "" {
		if m := reTimestamp.FindStringSubmatch(line); len(m) >= 2 {
			fields.Timestamp = strings.TrimSpace(m[1])
		}
	}
	return fields
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

type CSVParser struct {
	header []string
}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(line string) (*normalize.TxFields, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, nil
	}
	if p.header == nil && looksLikeHeader(record) {
		p.header = normalizeHeader(record)
		return nil, nil
	}
	fields := &normalize.TxFields{Extras: map[string]string{}}
	if p.header != nil {
		for i, name := range p.header {
			if i >= len(record) {
				break
			}
			assignField(fields, name, record[i])
		}
		return fields, nil
	}
	// Positional fallback: timestamp, from, to, amount, currency, kind,
	// channel, location.
	positions := []string{"timestamp", "from", "to", "amount", "currency", "kind", "channel", "location"}
	for i, name := range positions {
		if i >= len(record) {
			break
		}
		assignField(fields, name, record[i])
	}
	return fields, nil
}

func looksLikeHeader(record []string) bool {
	for _, v := range record {
		v = strings.ToLower(strings.TrimSpace(v))
		switch v {
		case "timestamp", "time", "ts", "id", "tx_id", "amount", "currency", "kind", "type", "from", "from_account", "to", "to_account", "channel", "location":
			return true
		}
	}
	return false
}

func normalizeHeader(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func assignField(fields *normalize.TxFields, name string, value string) {
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimSpace(value)
	switch name {
	case "id", "tx_id", "transaction_id":
		fields.ID = value
	case "amount", "value":
		fields.Amount = value
	case "currency", "ccy":
		fields.Currency = value
	case "kind", "type":
		fields.Kind = value
	case "from", "from_account", "sender", "msisdn":
		fields.From = value
	case "to", "to_account", "recipient":
		fields.To = value
	case "timestamp", "time", "ts", "occurred_at":
		fields.Timestamp = value
	case "channel", "method":
		fields.Channel = value
	case "location", "region", "geo":
		fields.Location = value
	default:
		if fields.Extras != nil {
			fields.Extras[name] = value
		}
	}
}
