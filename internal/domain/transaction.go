package domain

import (
	"strings"
	"time"
)

// PaymentStatus is the reconciled state of an STK push payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // Initial state, overwritable
	PaymentStatusSuccess PaymentStatus = "success" // Terminal
	PaymentStatusFailed  PaymentStatus = "failed"  // Terminal
)

// RecoveredPhone marks a record rebuilt from the provider transaction list,
// where the subscriber phone is not known.
const RecoveredPhone = "Recovered"

// RecordSource tells where a record was first seen
type RecordSource string

const (
	SourceInitiation RecordSource = "initiation"
	SourceWebhook    RecordSource = "webhook"
	SourceRecovery   RecordSource = "recovery"
)

// IsTerminal returns true for success and failed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// IsValid returns true if s is one of the three known statuses
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// NormalizeStatus maps any provider status vocabulary onto PaymentStatus.
// Webhook payloads use success/failed/pending, the transaction list API uses
// completed/failed/pending and a few spellings of cancelled. Unknown values,
// including the empty string, are treated as pending.
func NormalizeStatus(raw string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "completed":
		return PaymentStatusSuccess
	case "failed", "failure", "cancelled", "canceled":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// PaymentRecord is what the service currently believes about one tracking id
type PaymentRecord struct {
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	TrackingID string        `json:"tracking_id"`
	Phone      string        `json:"phone"`
	Status     PaymentStatus `json:"status"`
	Source     RecordSource  `json:"source"`
	Amount     int64         `json:"amount"`
}

// Clone returns a copy safe to hand out of a store
func (r *PaymentRecord) Clone() *PaymentRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// IsRecovered returns true if the record was materialized from the provider
// list without subscriber details
func (r *PaymentRecord) IsRecovered() bool {
	return r.Phone == RecoveredPhone
}

// FillDetails copies phone and amount from other where r has none. It never
// touches the status.
func (r *PaymentRecord) FillDetails(other *PaymentRecord) bool {
	if other == nil {
		return false
	}
	changed := false
	if (r.Phone == "" || r.IsRecovered()) && other.Phone != "" && !other.IsRecovered() {
		r.Phone = other.Phone
		changed = true
	}
	if r.Amount == 0 && other.Amount > 0 {
		r.Amount = other.Amount
		changed = true
	}
	return changed
}

// NewPendingRecord creates the seed record stored right after a push is accepted
func NewPendingRecord(trackingID, phone string, amount int64, now time.Time) *PaymentRecord {
	return &PaymentRecord{
		TrackingID: trackingID,
		Status:     PaymentStatusPending,
		Phone:      phone,
		Amount:     amount,
		Source:     SourceInitiation,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewRecoveredRecord creates a record rebuilt from the provider list
func NewRecoveredRecord(trackingID string, status PaymentStatus, now time.Time) *PaymentRecord {
	return &PaymentRecord{
		TrackingID: trackingID,
		Status:     status,
		Phone:      RecoveredPhone,
		Source:     SourceRecovery,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
