package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"trustpay/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/trustpay?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assessments (
			id BIGSERIAL PRIMARY KEY,
			tx_id TEXT NOT NULL,
			account TEXT NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			currency TEXT NOT NULL,
			kind TEXT NOT NULL,
			channel TEXT NOT NULL,
			location TEXT,
			occurred_at TIMESTAMPTZ NOT NULL,
			score INTEGER NOT NULL,
			decision TEXT NOT NULL,
			signals_json JSONB NOT NULL,
			assessed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_account ON assessments(account, occurred_at)`,
		`CREATE TABLE IF NOT EXISTS alert_records (
			id TEXT PRIMARY KEY,
			tx_id TEXT NOT NULL,
			signal_kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			details_json JSONB,
			created_at TIMESTAMPTZ NOT NULL,
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

func (s *postgresStore) SaveAssessment(ctx context.Context, tx model.Transaction, a model.RiskAssessment) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments (tx_id, account, amount, currency, kind, channel, location, occurred_at, score, decision, signals_json, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
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

func (s *postgresStore) SaveAlerts(ctx context.Context, records []model.AlertRecord) error {
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
		`INSERT INTO alert_records (id, tx_id, signal_kind, severity, description, details_json, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`)
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

func (s *postgresStore) UpdateAlertStatus(ctx context.Context, id string, status model.AlertStatus) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE alert_records SET status = $1 WHERE id = $2`,
		string(status), id)
	return err
}
