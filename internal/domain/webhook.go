package domain

import (
	"strings"
	"time"
)

// WebhookEvent is a verified, decoded provider notification about one payment
type WebhookEvent struct {
	Event      string // e.g. payment.success; informational only
	TrackingID string
	RawStatus  string // provider vocabulary, normalized by Record
	Phone      string
	Currency   string
	Timestamp  string
	Amount     int64
}

// Record converts the event into a PaymentRecord for a create-or-merge write.
// The phone loses its leading '+' to match the form stored by initiation.
func (e *WebhookEvent) Record(now time.Time) *PaymentRecord {
	return &PaymentRecord{
		TrackingID: e.TrackingID,
		Status:     NormalizeStatus(e.RawStatus),
		Phone:      strings.TrimLeft(e.Phone, "+"),
		Amount:     e.Amount,
		Source:     SourceWebhook,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
