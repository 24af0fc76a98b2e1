package ports

import (
	"context"

	"github.com/kevin07696/stkpush-service/internal/domain"
)

// TransactionStore is the single source of truth for what the service
// currently believes about each tracking id.
//
// Every status write goes through the store's transition policy and is
// atomic per tracking id: a terminal status is never replaced by pending.
// Returned records are copies; mutating them does not affect the store.
type TransactionStore interface {
	// Get returns the record for trackingID, or domain.ErrTxnNotFound
	Get(ctx context.Context, trackingID string) (*domain.PaymentRecord, error)

	// Put inserts record when its tracking id is unseen. Otherwise the
	// incoming status is merged into the existing record and missing
	// phone/amount details are back-filled. The bool reports whether the
	// stored record changed.
	Put(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, bool, error)

	// MutateStatus merges status into an existing record. Returns
	// domain.ErrTxnNotFound when the tracking id is unseen.
	MutateStatus(ctx context.Context, trackingID string, status domain.PaymentStatus) (*domain.PaymentRecord, bool, error)

	// List returns a snapshot of all tracked records
	List(ctx context.Context) ([]*domain.PaymentRecord, error)
}
