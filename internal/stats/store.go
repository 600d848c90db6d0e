package stats

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trustpay/internal/model"
)

// AccountStats is the per-account scoring summary served by the dashboard API.
type AccountStats struct {
	Account      string          `json:"account"`
	Assessed     int             `json:"assessed"`
	Flagged      int             `json:"flagged"`
	Blocked      int             `json:"blocked"`
	AmountMoved  decimal.Decimal `json:"amount_moved"`
	AmountSaved  decimal.Decimal `json:"amount_saved"`
	LastScore    int             `json:"last_score"`
	LastDecision model.Decision  `json:"last_decision"`
}

// Totals aggregates across all accounts.
type Totals struct {
	Assessed    int             `json:"assessed"`
	Flagged     int             `json:"flagged"`
	Blocked     int             `json:"blocked"`
	AmountMoved decimal.Decimal `json:"amount_moved"`
	AmountSaved decimal.Decimal `json:"amount_saved"`
}

type Store struct {
	mu        sync.RWMutex
	byAccount map[string]*AccountStats
	updatedAt map[string]time.Time
	totals    Totals
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byAccount: make(map[string]*AccountStats),
		updatedAt: make(map[string]time.Time),
		totals:    Totals{AmountMoved: decimal.Zero, AmountSaved: decimal.Zero},
		limit:     limit,
	}
}

// Record folds one assessment into the account's and global counters. A block
// keeps the funds in place, so the amount counts as saved rather than moved.
func (s *Store) Record(tx model.Transaction, a model.RiskAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byAccount[tx.FromAccount]
	if !ok {
		acct = &AccountStats{
			Account:     tx.FromAccount,
			AmountMoved: decimal.Zero,
			AmountSaved: decimal.Zero,
		}
		s.byAccount[tx.FromAccount] = acct
	}
	acct.Assessed++
	s.totals.Assessed++
	switch a.Decision {
	case model.DecisionBlock:
		acct.Blocked++
		acct.AmountSaved = acct.AmountSaved.Add(tx.Amount)
		s.totals.Blocked++
		s.totals.AmountSaved = s.totals.AmountSaved.Add(tx.Amount)
	case model.DecisionFlag:
		acct.Flagged++
		acct.AmountMoved = acct.AmountMoved.Add(tx.Amount)
		s.totals.Flagged++
		s.totals.AmountMoved = s.totals.AmountMoved.Add(tx.Amount)
	default:
		acct.AmountMoved = acct.AmountMoved.Add(tx.Amount)
		s.totals.AmountMoved = s.totals.AmountMoved.Add(tx.Amount)
	}
	acct.LastScore = a.Score
	acct.LastDecision = a.Decision
	s.updatedAt[tx.FromAccount] = time.Now().UTC()
	if len(s.byAccount) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(account string) (AccountStats, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.byAccount[account]
	if !ok {
		return AccountStats{}, time.Time{}, false
	}
	return *acct, s.updatedAt[account], true
}

func (s *Store) GetTotals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

func (s *Store) evictOldest() {
	var oldestAccount string
	var oldest time.Time
	for account, ts := range s.updatedAt {
		if oldestAccount == "" || ts.Before(oldest) {
			oldestAccount = account
			oldest = ts
		}
	}
	if oldestAccount != "" {
		delete(s.byAccount, oldestAccount)
		delete(s.updatedAt, oldestAccount)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAccount = make(map[string]*AccountStats)
	s.updatedAt = make(map[string]time.Time)
	s.totals = Totals{AmountMoved: decimal.Zero, AmountSaved: decimal.Zero}
}
