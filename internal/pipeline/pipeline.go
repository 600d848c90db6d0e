package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"trustpay/internal/alerts"
	"trustpay/internal/config"
	"trustpay/internal/engine"
	"trustpay/internal/history"
	"trustpay/internal/model"
	"trustpay/internal/stats"
	"trustpay/internal/storage"
)

// Pipeline drives the streaming path: dedupe, history snapshot, assessment,
// alert fan-out, stats, persistence. The engine stays pure; everything
// stateful lives here.
type Pipeline struct {
	logger  *slog.Logger
	eng     atomic.Value
	cfg     atomic.Value
	history *history.Store
	alerts  *alerts.Store
	stats   *stats.Store
	store   storage.Store
	dedupe  *dedupeCache
	cool    *cooldown
}

func New(cfg *config.Config, logger *slog.Logger, historyStore *history.Store, alertsStore *alerts.Store, statsStore *stats.Store, store storage.Store) (*Pipeline, error) {
	eng, err := engine.New(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		logger:  logger,
		history: historyStore,
		alerts:  alertsStore,
		stats:   statsStore,
		store:   store,
		dedupe:  newDedupeCache(),
		cool:    newCooldown(),
	}
	p.eng.Store(eng)
	p.cfg.Store(cfg)
	return p, nil
}

// UpdateConfig swaps in a new scoring engine. A config that fails validation
// is rejected and the running engine stays in place.
func (p *Pipeline) UpdateConfig(cfg *config.Config) error {
	eng, err := engine.New(cfg.Scoring)
	if err != nil {
		return err
	}
	p.eng.Store(eng)
	p.cfg.Store(cfg)
	return nil
}

func (p *Pipeline) engine() *engine.Engine {
	return p.eng.Load().(*engine.Engine)
}

func (p *Pipeline) config() *config.Config {
	return p.cfg.Load().(*config.Config)
}

func (p *Pipeline) Start(ctx context.Context, in <-chan model.Transaction) {
	go func() {
		for {
			select {
			case tx := <-in:
				p.Process(ctx, tx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Process scores one transaction end to end and returns the alert records it
// queued for review.
func (p *Pipeline) Process(ctx context.Context, tx model.Transaction) []model.AlertRecord {
	cfg := p.config()
	if p.dedupe.seen(tx.ID, time.Now().UTC(), cfg.Pipeline.DedupeWindow) {
		return nil
	}

	snapshot := p.history.Snapshot(tx.FromAccount, tx.OccurredAt)
	assessment, err := p.engine().Assess(tx, snapshot)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("transaction rejected", "tx_id", tx.ID, "err", err)
		}
		return nil
	}

	if p.stats != nil {
		p.stats.Record(tx, assessment)
	}

	records := p.engine().BuildAlerts(assessment)
	kept := records[:0]
	for _, rec := range records {
		if !p.cool.allow(tx.FromAccount, rec.SignalKind, cfg.Pipeline.AlertCooldown) {
			continue
		}
		kept = append(kept, rec)
	}
	records = kept

	if len(records) > 0 {
		p.alerts.Add(records...)
		if p.logger != nil {
			kinds := make([]string, 0, len(records))
			for _, rec := range records {
				kinds = append(kinds, string(rec.SignalKind))
			}
			p.logger.Warn("risk alerts raised",
				"tx_id", tx.ID,
				"account", tx.FromAccount,
				"score", assessment.Score,
				"decision", assessment.Decision,
				"signals", kinds,
			)
		}
	}

	if p.store != nil {
		if err := p.store.SaveAssessment(ctx, tx, assessment); err != nil && p.logger != nil {
			p.logger.Warn("save assessment failed", "tx_id", tx.ID, "err", err)
		}
		if err := p.store.SaveAlerts(ctx, records); err != nil && p.logger != nil {
			p.logger.Warn("save alerts failed", "tx_id", tx.ID, "err", err)
		}
	}

	// Admit after scoring so the transaction is not counted against itself,
	// and only when it actually moved funds.
	if assessment.Decision != model.DecisionBlock {
		p.history.Admit(tx)
	}
	return records
}

// Assess runs a one-shot synchronous assessment without touching history,
// stats, or persistence. The review API uses it for what-if scoring.
func (p *Pipeline) Assess(tx model.Transaction, h model.AccountHistory) (model.RiskAssessment, error) {
	return p.engine().Assess(tx, h)
}

// AssessWithStoredHistory scores against the rolling history without
// admitting the transaction.
func (p *Pipeline) AssessWithStoredHistory(tx model.Transaction) (model.RiskAssessment, error) {
	return p.engine().Assess(tx, p.history.Snapshot(tx.FromAccount, tx.OccurredAt))
}

// SetAccountTimezone records an account's declared local timezone, which the
// unusual-hour check prefers over the configured default.
func (p *Pipeline) SetAccountTimezone(account, tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return err
	}
	p.history.SetTimezone(account, tz)
	return nil
}

// Reset clears all rolling state. The caches are cleared in place under
// their own locks so a concurrent Process never observes a torn swap.
func (p *Pipeline) Reset() {
	p.history.Clear()
	if p.stats != nil {
		p.stats.Clear()
	}
	p.dedupe.clear()
	p.cool.clear()
}
