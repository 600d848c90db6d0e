package alerts

import (
	"errors"
	"sync"
	"time"

	"trustpay/internal/model"
)

var (
	ErrNotFound      = errors.New("alert not found")
	ErrBadTransition = errors.New("invalid alert status transition")
	ErrUnknownStatus = errors.New("unknown alert status")
)

var validReviewStatuses = map[model.AlertStatus]struct{}{
	model.StatusInvestigating: {},
	model.StatusResolved:      {},
	model.StatusFalsePositive: {},
}

// Store is a bounded in-memory buffer of alert records for the review API.
// The scoring engine creates records; only review actions move their status.
type Store struct {
	mu    sync.RWMutex
	buf   []model.AlertRecord
	byID  map[string]int
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{byID: make(map[string]int), limit: limit}
}

func (s *Store) Add(records ...model.AlertRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if len(s.buf) >= s.limit {
			evicted := s.buf[0]
			delete(s.byID, evicted.ID)
			copy(s.buf, s.buf[1:])
			s.buf = s.buf[:len(s.buf)-1]
			for id, i := range s.byID {
				s.byID[id] = i - 1
			}
		}
		s.byID[rec.ID] = len(s.buf)
		s.buf = append(s.buf, rec)
	}
}

// List returns up to limit of the most recent records, oldest first,
// optionally filtered by status and minimum severity.
func (s *Store) List(limit int, status model.AlertStatus, minSeverity model.Severity) []model.AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AlertRecord, 0)
	for _, rec := range s.buf {
		if status != "" && rec.Status != status {
			continue
		}
		if minSeverity != "" && !rec.Severity.AtLeast(minSeverity) {
			continue
		}
		out = append(out, rec)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Since returns records created at or after ts, oldest first, honoring the
// same status and severity filters as List.
func (s *Store) Since(ts time.Time, status model.AlertStatus, minSeverity model.Severity) []model.AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AlertRecord, 0)
	for _, rec := range s.buf {
		if rec.CreatedAt.Before(ts) {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		if minSeverity != "" && !rec.Severity.AtLeast(minSeverity) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (s *Store) Get(id string) (model.AlertRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return model.AlertRecord{}, false
	}
	return s.buf[i], true
}

// Transition applies a review action to an alert. Transitions out of a
// terminal status are rejected.
func (s *Store) Transition(id string, next model.AlertStatus) (model.AlertRecord, error) {
	if _, ok := validReviewStatuses[next]; !ok {
		return model.AlertRecord{}, ErrUnknownStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return model.AlertRecord{}, ErrNotFound
	}
	if !s.buf[i].CanTransition(next) {
		return model.AlertRecord{}, ErrBadTransition
	}
	s.buf[i].Status = next
	return s.buf[i], nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.byID = make(map[string]int)
}
