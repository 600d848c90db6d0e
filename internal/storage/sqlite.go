package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"trustpay/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:trustpay.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assessments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tx_id TEXT NOT NULL,
			account TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			kind TEXT NOT NULL,
			channel TEXT NOT NULL,
			location TEXT,
			occurred_at TEXT NOT NULL,
			score INTEGER NOT NULL,
			decision TEXT NOT NULL,
			signals_json TEXT NOT NULL,
			assessed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_account ON assessments(account, occurred_at)`,
		`CREATE TABLE IF NOT EXISTS alert_records (
			id TEXT PRIMARY KEY,
			tx_id TEXT NOT NULL,
			signal_kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			details_json TEXT,
			created_at TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_records_created ON alert_records(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_records_status ON alert_records(status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveAssessment(ctx context.Context, tx model.Transaction, a model.RiskAssessment) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments (tx_id, account, amount, currency, kind, channel, location, occurred_at, score, decision, signals_json, assessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.FromAccount,
		tx.Amount.String(),
		tx.Currency,
		string(tx.Kind),
		string(tx.Channel),
		tx.Location,
		tx.OccurredAt.UTC(),
		a.Score,
		string(a.Decision),
		encodeJSON(a.Signals),
		a.AssessedAt.UTC(),
	)
	return err
}

func (s *sqliteStore) SaveAlerts(ctx context.Context, records []model.AlertRecord) error {
	if s.db == nil || len(records) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := dbtx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO alert_records (id, tx_id, signal_kind, severity, description, details_json, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = dbtx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.TransactionID,
			string(rec.SignalKind),
			string(rec.Severity),
			rec.Description,
			encodeJSON(rec.Details),
			rec.CreatedAt.UTC(),
			string(rec.Status),
		); err != nil {
			_ = dbtx.Rollback()
			return err
		}
	}
	return dbtx.Commit()
}

func (s *sqliteStore) UpdateAlertStatus(ctx context.Context, id string, status model.AlertStatus) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE alert_records SET status = ? WHERE id = ?`,
		string(status), id)
	return err
}
