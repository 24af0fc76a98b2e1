package postgres

import (
	"context"
	"fmt"
)

const createPaymentRecordsTable = `
CREATE TABLE IF NOT EXISTS payment_records (
	tracking_id TEXT PRIMARY KEY,
	status      TEXT NOT NULL CHECK (status IN ('pending', 'success', 'failed')),
	phone       TEXT NOT NULL DEFAULT '',
	amount      BIGINT NOT NULL DEFAULT 0,
	source      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the payment_records table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, createPaymentRecordsTable); err != nil {
		return fmt.Errorf("create payment_records table: %w", err)
	}
	return nil
}
