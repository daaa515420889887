package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jerome00253/RIB-Factory/internal/domain"
)

// ResultStore holds the ordered list of scan rows for the session. It is the
// single mutable shared resource: the processing queue writes through the
// mutation methods below, readers get snapshots. The mutex keeps the queue's
// sequencing guarantee valid on a multi-threaded runtime.
type ResultStore struct {
	mu   sync.RWMutex
	rows []*domain.WorkItem
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Append creates a pending row for file and returns its id. Row order is
// insertion order and never changes afterwards.
func (s *ResultStore) Append(file domain.SourceFile) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &domain.WorkItem{
		ID:        uuid.New().String(),
		File:      file,
		Status:    domain.ItemStatusPending,
		CreatedAt: time.Now(),
	}
	s.rows = append(s.rows, item)

	return item.ID
}

// AppendDerived appends a completed row at the current end of the list. Used
// for the second and later records of a multi-page document; the derived row
// shares the source file of the row that spawned it.
func (s *ResultStore) AppendDerived(file domain.SourceFile, result domain.ExtractionResult) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &domain.WorkItem{
		ID:        uuid.New().String(),
		File:      file,
		Status:    domain.ItemStatusDone,
		Result:    &result,
		CreatedAt: time.Now(),
	}
	s.rows = append(s.rows, item)

	return item.ID
}

// Claim transitions a pending row to processing and returns its snapshot,
// atomically. ErrScanNotFound means the row was removed while waiting; a
// single lock hold closes the window between lookup and transition.
func (s *ResultStore) Claim(id string) (domain.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return domain.WorkItem{}, domain.ErrScanNotFound
	}
	if item.Status != domain.ItemStatusPending {
		return domain.WorkItem{}, domain.ErrInvalidTransition
	}

	item.Status = domain.ItemStatusProcessing
	return *item, nil
}

// Complete transitions a processing row to done and attaches its first
// record in place: the row keeps its identity and position.
func (s *ResultStore) Complete(id string, result domain.ExtractionResult) error {
	return s.transition(id, domain.ItemStatusProcessing, func(item *domain.WorkItem) {
		item.Status = domain.ItemStatusDone
		item.Result = &result
	})
}

// CompleteEmpty transitions a processing row to done with no result: the
// analysis finished but yielded no records. Distinct from an error.
func (s *ResultStore) CompleteEmpty(id string) error {
	return s.transition(id, domain.ItemStatusProcessing, func(item *domain.WorkItem) {
		item.Status = domain.ItemStatusDone
	})
}

// Fail transitions a processing row to error and records the message.
func (s *ResultStore) Fail(id string, message string) error {
	return s.transition(id, domain.ItemStatusProcessing, func(item *domain.WorkItem) {
		item.Status = domain.ItemStatusError
		item.ErrorMessage = message
	})
}

func (s *ResultStore) transition(id string, from domain.ItemStatus, apply func(*domain.WorkItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return domain.ErrScanNotFound
	}
	if item.Status != from {
		return domain.ErrInvalidTransition
	}

	apply(item)
	return nil
}

func (s *ResultStore) find(id string) *domain.WorkItem {
	for _, item := range s.rows {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Get returns a snapshot of one row.
func (s *ResultStore) Get(id string) (domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.find(id)
	if item == nil {
		return domain.WorkItem{}, domain.ErrScanNotFound
	}
	return *item, nil
}

// List returns a snapshot of all rows in insertion order.
func (s *ResultStore) List() []domain.WorkItem {
	return s.Filter(func(domain.WorkItem) bool { return true })
}

// Filter returns a snapshot of the rows matching pred, preserving order. It
// never mutates the underlying list.
func (s *ResultStore) Filter(pred func(domain.WorkItem) bool) []domain.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WorkItem, 0, len(s.rows))
	for _, item := range s.rows {
		if pred(*item) {
			out = append(out, *item)
		}
	}
	return out
}

// Remove deletes one row by id. Removing an absent id is a no-op; other
// rows keep their identity and relative order.
func (s *ResultStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.rows {
		if item.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return
		}
	}
}

// RemoveMatching deletes every row matching pred and returns how many were
// removed.
func (s *ResultStore) RemoveMatching(pred func(domain.WorkItem) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	removed := 0
	for _, item := range s.rows {
		if pred(*item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.rows = kept

	return removed
}

// Clear removes all rows.
func (s *ResultStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = nil
}

func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rows)
}
