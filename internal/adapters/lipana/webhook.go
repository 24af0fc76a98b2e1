package lipana

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/stkpush-service/internal/domain"
)

// webhookPayload is the body Lipana POSTs to the webhook endpoint:
//
//	{"event": "payment.success",
//	 "data": {"transactionId": "txn_123456", "amount": 5000, "currency": "KES",
//	          "status": "success", "phone": "+254712345678",
//	          "timestamp": "2024-01-15T10:30:00Z"}}
type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		TransactionID    json.RawMessage `json:"transactionId"`
		TransactionIDAlt json.RawMessage `json:"transaction_id"`
		Amount           json.RawMessage `json:"amount"`
		Currency         string          `json:"currency"`
		Status           string          `json:"status"`
		Phone            string          `json:"phone"`
		Timestamp        string          `json:"timestamp"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a verified webhook body. Invalid JSON yields
// domain.ErrMalformedBody and a payload without a transaction id yields
// domain.ErrTrackingIDMissing. A missing or non-numeric amount becomes 0.
func ParseWebhookEvent(raw []byte) (*domain.WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.ErrMalformedBody.Wrap(err)
	}

	trackingID := scalarString(payload.Data.TransactionID)
	if trackingID == "" {
		trackingID = scalarString(payload.Data.TransactionIDAlt)
	}
	if trackingID == "" {
		return nil, domain.ErrTrackingIDMissing
	}

	return &domain.WebhookEvent{
		Event:      payload.Event,
		TrackingID: trackingID,
		RawStatus:  payload.Data.Status,
		Phone:      payload.Data.Phone,
		Currency:   payload.Data.Currency,
		Timestamp:  payload.Data.Timestamp,
		Amount:     wholeUnits(payload.Data.Amount),
	}, nil
}

// wholeUnits truncates a JSON number, or numeric string, to whole currency units
func wholeUnits(raw json.RawMessage) int64 {
	s := scalarString(raw)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.IntPart()
}
