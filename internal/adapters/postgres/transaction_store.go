package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

const (
	selectColumns = `tracking_id, status, phone, amount, source, created_at, updated_at`

	insertRecordSQL = `
INSERT INTO payment_records (tracking_id, status, phone, amount, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (tracking_id) DO NOTHING`

	selectRecordSQL          = `SELECT ` + selectColumns + ` FROM payment_records WHERE tracking_id = $1`
	selectRecordForUpdateSQL = selectRecordSQL + ` FOR UPDATE`
	listRecordsSQL           = `SELECT ` + selectColumns + ` FROM payment_records ORDER BY created_at, tracking_id`

	updateRecordSQL = `
UPDATE payment_records
SET status = $2, phone = $3, amount = $4, updated_at = $5
WHERE tracking_id = $1`
)

// TransactionStore is a TransactionStore backed by PostgreSQL.
// Merges run in a transaction holding a row lock, so a webhook and a poll
// refresh for the same tracking id are serialized by the database.
type TransactionStore struct {
	db     *DB
	policy domain.TransitionPolicy
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.TransactionStore = (*TransactionStore)(nil)

// NewTransactionStore creates a PostgreSQL-backed store
func NewTransactionStore(db *DB, policy domain.TransitionPolicy, logger *zap.Logger) *TransactionStore {
	return &TransactionStore{
		db:     db,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the record for trackingID
func (s *TransactionStore) Get(ctx context.Context, trackingID string) (*domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.db.config.QueryTimeout)
	defer cancel()

	rec, err := scanRecord(s.db.pool.QueryRow(ctx, selectRecordSQL, trackingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTxnNotFound
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "failed to load payment record", err)
	}
	return rec, nil
}

// Put inserts record, or merges it into the existing row under a row lock
func (s *TransactionStore) Put(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, bool, error) {
	if record == nil || record.TrackingID == "" {
		return nil, false, domain.ErrTrackingIDMissing
	}

	ctx, cancel := context.WithTimeout(ctx, s.db.config.QueryTimeout)
	defer cancel()

	var (
		result  *domain.PaymentRecord
		changed bool
	)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		now := s.now()
		status := record.Status
		if !status.IsValid() {
			status = domain.PaymentStatusPending
		}
		createdAt := record.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		tag, err := tx.Exec(ctx, insertRecordSQL,
			record.TrackingID, string(status), record.Phone, record.Amount, string(record.Source), createdAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			result = record.Clone()
			result.Status = status
			result.CreatedAt = createdAt
			result.UpdatedAt = createdAt
			changed = true
			return nil
		}

		existing, err := scanRecord(tx.QueryRow(ctx, selectRecordForUpdateSQL, record.TrackingID))
		if err != nil {
			return err
		}
		statusChanged := s.policy.Apply(existing, record.Status)
		detailsChanged := existing.FillDetails(record)
		changed = statusChanged || detailsChanged
		if changed {
			existing.UpdatedAt = now
			if err := updateRecord(ctx, tx, existing); err != nil {
				return err
			}
		}
		result = existing
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to put payment record",
			zap.String("tracking_id", record.TrackingID),
			zap.Error(err),
		)
		return nil, false, domain.WrapError(domain.ErrorCodeStoreError, "failed to store payment record", err)
	}
	return result, changed, nil
}

// MutateStatus merges status into an existing row under a row lock
func (s *TransactionStore) MutateStatus(ctx context.Context, trackingID string, status domain.PaymentStatus) (*domain.PaymentRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.db.config.QueryTimeout)
	defer cancel()

	var (
		result  *domain.PaymentRecord
		changed bool
	)
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := scanRecord(tx.QueryRow(ctx, selectRecordForUpdateSQL, trackingID))
		if err != nil {
			return err
		}
		changed = s.policy.Apply(existing, status)
		if changed {
			existing.UpdatedAt = s.now()
			if err := updateRecord(ctx, tx, existing); err != nil {
				return err
			}
		}
		result = existing
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, domain.ErrTxnNotFound
	}
	if err != nil {
		return nil, false, domain.WrapError(domain.ErrorCodeStoreError, "failed to update payment status", err)
	}
	return result, changed, nil
}

// List returns all records ordered by creation time
func (s *TransactionStore) List(ctx context.Context) ([]*domain.PaymentRecord, error) {
	rows, err := s.db.pool.Query(ctx, listRecordsSQL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "failed to list payment records", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentRecord, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "failed to scan payment records", err)
	}
	return records, nil
}

func updateRecord(ctx context.Context, tx pgx.Tx, rec *domain.PaymentRecord) error {
	_, err := tx.Exec(ctx, updateRecordSQL,
		rec.TrackingID, string(rec.Status), rec.Phone, rec.Amount, rec.UpdatedAt)
	return err
}

func scanRecord(row pgx.Row) (*domain.PaymentRecord, error) {
	var (
		rec    domain.PaymentRecord
		status string
		source string
	)
	if err := row.Scan(&rec.TrackingID, &status, &rec.Phone, &rec.Amount, &source, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = domain.PaymentStatus(status)
	rec.Source = domain.RecordSource(source)
	return &rec, nil
}
