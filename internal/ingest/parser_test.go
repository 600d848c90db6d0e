package ingest

import "testing"

func TestParseKVLine(t *testing.T) {
	p := NewParser()
	line := "2026-02-23 12:34:56 from=+2348012345678 to=merchant42 amount=150.00 type=payment channel=sms location=Lagos"
	fields, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.From != "+2348012345678" {
		t.Fatalf("from: %s", fields.From)
	}
	if fields.Amount != "150.00" || fields.Kind != "payment" {
		t.Fatalf("amount/kind: %s/%s", fields.Amount, fields.Kind)
	}
	if fields.Channel != "sms" || fields.Location != "Lagos" {
		t.Fatalf("channel/location: %s/%s", fields.Channel, fields.Location)
	}
}

func TestParseCSV(t *testing.T) {
	p := NewParser()
	if fields, _ := p.ParseLine("timestamp,from,to,amount,currency,kind,channel,location"); fields != nil {
		t.Fatalf("expected header to return nil")
	}
	fields, err := p.ParseLine("2026-02-23T12:34:56Z,acct-1,merchant42,89.50,USD,cashout,online,Abuja")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.From != "acct-1" || fields.Amount != "89.50" || fields.Kind != "cashout" {
		t.Fatalf("csv parse mismatch: %+v", fields)
	}
}

func TestParseJSON(t *testing.T) {
	p := NewParser()
	line := `{"timestamp":"2026-02-23T12:34:56Z","from_user":"user123","to_user":"merchant456","amount":150,"type":"payment","method":"online"}`
	fields, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.From != "user123" || fields.To != "merchant456" {
		t.Fatalf("json parse mismatch: %+v", fields)
	}
	if fields.Amount != "150" || fields.Channel != "online" {
		t.Fatalf("json amount/channel mismatch: %+v", fields)
	}
}
