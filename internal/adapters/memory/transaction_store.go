package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// TransactionStore is a process-local TransactionStore. Contents are lost on restart.
type TransactionStore struct {
	mu      sync.RWMutex
	records map[string]*domain.PaymentRecord
	policy  domain.TransitionPolicy
	now     func() time.Time
}

var _ ports.TransactionStore = (*TransactionStore)(nil)

// NewTransactionStore creates an empty in-memory store
func NewTransactionStore(policy domain.TransitionPolicy) *TransactionStore {
	return &TransactionStore{
		records: make(map[string]*domain.PaymentRecord),
		policy:  policy,
		now:     time.Now,
	}
}

// Get returns a copy of the record for trackingID
func (s *TransactionStore) Get(_ context.Context, trackingID string) (*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[trackingID]
	if !ok {
		return nil, domain.ErrTxnNotFound
	}
	return rec.Clone(), nil
}

// Put inserts or merges record under a single write lock
func (s *TransactionStore) Put(_ context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, bool, error) {
	if record == nil || record.TrackingID == "" {
		return nil, false, domain.ErrTrackingIDMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.records[record.TrackingID]
	if !ok {
		rec := record.Clone()
		if !rec.Status.IsValid() {
			rec.Status = domain.PaymentStatusPending
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		s.records[rec.TrackingID] = rec
		return rec.Clone(), true, nil
	}

	statusChanged := s.policy.Apply(existing, record.Status)
	detailsChanged := existing.FillDetails(record)
	if statusChanged || detailsChanged {
		existing.UpdatedAt = now
	}
	return existing.Clone(), statusChanged || detailsChanged, nil
}

// MutateStatus merges status into an existing record
func (s *TransactionStore) MutateStatus(_ context.Context, trackingID string, status domain.PaymentStatus) (*domain.PaymentRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[trackingID]
	if !ok {
		return nil, false, domain.ErrTxnNotFound
	}
	changed := s.policy.Apply(existing, status)
	if changed {
		existing.UpdatedAt = s.now()
	}
	return existing.Clone(), changed, nil
}

// List returns all records ordered by creation time
func (s *TransactionStore) List(_ context.Context) ([]*domain.PaymentRecord, error) {
	s.mu.RLock()
	out := make([]*domain.PaymentRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TrackingID < out[j].TrackingID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Len returns the number of tracked records
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
