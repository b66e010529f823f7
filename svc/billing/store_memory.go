package billing

import (
	"context"
	"sync"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// MemoryStore is an in-process subscription.Store. It follows the same
// upsert rules as PGStore and serialises transactions with a mutex.
type MemoryStore struct {
	mu   sync.RWMutex
	tx   sync.Mutex
	rows map[string]*subscription.Record
}

var (
	_ subscription.Store      = (*MemoryStore)(nil)
	_ subscription.Transactor = (*MemoryStore)(nil)
)

// NewMemoryStore returns a store seeded with copies of rows.
func NewMemoryStore(rows ...*subscription.Record) *MemoryStore {
	s := &MemoryStore{rows: make(map[string]*subscription.Record, len(rows))}
	for _, r := range rows {
		s.rows[r.StripeSubscriptionID] = r.Select()
	}
	return s
}

func (s *MemoryStore) Upsert(_ context.Context, rec *subscription.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rows[rec.StripeSubscriptionID]
	if !ok {
		s.rows[rec.StripeSubscriptionID] = rec.Select()
		return nil
	}

	fields := rec.BuiltFields()
	if existing.CurrentPeriodStart == nil {
		fields[subscription.ColumnCurrentPeriodStart] = rec.CurrentPeriodStart
	}
	if existing.CurrentPeriodEnd == nil {
		fields[subscription.ColumnCurrentPeriodEnd] = rec.CurrentPeriodEnd
	}
	return existing.Apply(fields)
}

func (s *MemoryStore) Update(_ context.Context, id string, fields subscription.Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return subscription.ErrSubscriptionNotFound
	}
	// apply to a copy so a bad value leaves the row untouched
	next := row.Select()
	if err := next.Apply(fields); err != nil {
		return err
	}
	s.rows[id] = next
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string, columns ...subscription.Column) (*subscription.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return row.Select(columns...), nil
}

// WithinTx runs fn while holding the store's transaction lock.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store subscription.Store) error) error {
	s.tx.Lock()
	defer s.tx.Unlock()
	return fn(ctx, s)
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
