package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

// Store persists assessments and alert records for the review workflow.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveAssessment(ctx context.Context, tx model.Transaction, a model.RiskAssessment) error
	SaveAlerts(ctx context.Context, records []model.AlertRecord) error
	UpdateAlertStatus(ctx context.Context, id string, status model.AlertStatus) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
