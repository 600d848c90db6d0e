package history

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trustpay/internal/config"
	"trustpay/internal/model"
)

// Store keeps a bounded rolling window of transactions per account and serves
// point-in-time AccountHistory snapshots to the scoring pipeline. Snapshots
// are copies: the engine never sees a slice this store may still mutate.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*accountState
	updatedAt map[string]time.Time

	lookback      time.Duration
	maxPerAccount int
	maxAccounts   int
}

type accountState struct {
	txs       []model.Transaction
	head      int
	sum       decimal.Decimal
	locCounts map[string]int
	timezone  string
}

func NewStore(cfg config.HistoryConfig) *Store {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	maxPerAccount := cfg.MaxPerAccount
	if maxPerAccount <= 0 {
		maxPerAccount = 500
	}
	maxAccounts := cfg.MaxAccounts
	if maxAccounts <= 0 {
		maxAccounts = 10000
	}
	return &Store{
		accounts:      make(map[string]*accountState),
		updatedAt:     make(map[string]time.Time),
		lookback:      lookback,
		maxPerAccount: maxPerAccount,
		maxAccounts:   maxAccounts,
	}
}

// Admit records a settled-or-scored transaction into its account's window.
// The pipeline calls this after assessment so a transaction is never counted
// against itself.
func (s *Store) Admit(tx model.Transaction) {
	if tx.FromAccount == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[tx.FromAccount]
	if !ok {
		state = &accountState{
			txs:       make([]model.Transaction, 0, 16),
			sum:       decimal.Zero,
			locCounts: make(map[string]int),
		}
		s.accounts[tx.FromAccount] = state
	}
	state.add(tx)
	state.evict(tx.OccurredAt.Add(-s.lookback), s.maxPerAccount)
	s.updatedAt[tx.FromAccount] = time.Now().UTC()
	if len(s.accounts) > s.maxAccounts {
		s.evictOldestAccount()
	}
}

// SetTimezone records the account's declared timezone for local-hour checks.
func (s *Store) SetTimezone(account, tz string) {
	if account == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[account]
	if !ok {
		state = &accountState{
			txs:       make([]model.Transaction, 0, 16),
			sum:       decimal.Zero,
			locCounts: make(map[string]int),
		}
		s.accounts[account] = state
		s.updatedAt[account] = time.Now().UTC()
	}
	state.timezone = tz
}

// Snapshot returns the account's rolling context as of the given time. A
// never-seen account yields an empty history, which the engine treats as
// insufficient data.
func (s *Store) Snapshot(account string, asOf time.Time) model.AccountHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.accounts[account]
	if !ok {
		return model.AccountHistory{}
	}
	state.evict(asOf.Add(-s.lookback), s.maxPerAccount)

	live := state.txs[state.head:]
	recent := make([]model.Transaction, len(live))
	copy(recent, live)

	avg := decimal.Zero
	if len(live) > 0 {
		avg = state.sum.Div(decimal.NewFromInt(int64(len(live)))).Round(4)
	}

	homes := make([]string, 0, len(state.locCounts))
	for loc := range state.locCounts {
		homes = append(homes, loc)
	}
	sort.Strings(homes)

	return model.AccountHistory{
		RecentTransactions: recent,
		AverageAmount:      avg,
		HomeLocations:      homes,
		Timezone:           state.timezone,
	}
}

func (s *Store) Accounts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*accountState)
	s.updatedAt = make(map[string]time.Time)
}

func (a *accountState) add(tx model.Transaction) {
	a.txs = append(a.txs, tx)
	a.sum = a.sum.Add(tx.Amount)
	if tx.Location != "" {
		a.locCounts[tx.Location]++
	}
}

func (a *accountState) evict(cutoff time.Time, maxLen int) {
	for a.head < len(a.txs) {
		tx := a.txs[a.head]
		if !tx.OccurredAt.Before(cutoff) && len(a.txs)-a.head <= maxLen {
			break
		}
		a.sum = a.sum.Sub(tx.Amount)
		if tx.Location != "" {
			if count := a.locCounts[tx.Location]; count <= 1 {
				delete(a.locCounts, tx.Location)
			} else {
				a.locCounts[tx.Location] = count - 1
			}
		}
		a.head++
	}
	if a.head > 0 && a.head*2 >= len(a.txs) {
		a.txs = append([]model.Transaction{}, a.txs[a.head:]...)
		a.head = 0
	}
}

func (s *Store) evictOldestAccount() {
	var oldestAccount string
	var oldest time.Time
	for account, ts := range s.updatedAt {
		if oldestAccount == "" || ts.Before(oldest) {
			oldestAccount = account
			oldest = ts
		}
	}
	if oldestAccount != "" {
		delete(s.accounts, oldestAccount)
		delete(s.updatedAt, oldestAccount)
	}
}
