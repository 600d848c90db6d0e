package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"trustpay/internal/normalize"
)

func ParseJSONBytes(data []byte) (*normalize.TxFields, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return ParseJSONMap(obj), nil
}

func ParseJSONMap(obj map[string]interface{}) *normalize.TxFields {
	fields := &normalize.TxFields{Extras: map[string]string{}}
	for key, val := range obj {
		fields.Extras[strings.ToLower(key)] = fmt.Sprint(val)
	}
	fields.ID = firstNonEmpty(fields.Extras, "id", "tx_id", "transaction_id")
	fields.Amount = firstNonEmpty(fields.Extras, "amount", "value")
	fields.Currency = firstNonEmpty(fields.Extras, "currency", "ccy")
	fields.Kind = firstNonEmpty(fields.Extras, "kind", "type")
	fields.From = firstNonEmpty(fields.Extras, "from_account", "from", "sender", "msisdn", "from_user")
	fields.To = firstNonEmpty(fields.Extras, "to_account", "to", "recipient", "to_user")
	fields.Timestamp = firstNonEmpty(fields.Extras, "occurred_at", "timestamp", "time", "ts")
	fields.Channel = firstNonEmpty(fields.Extras, "channel", "method")
	fields.Location = firstNonEmpty(fields.Extras, "location", "region", "geo")
	return fields
}
