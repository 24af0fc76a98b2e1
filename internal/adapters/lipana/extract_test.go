package lipana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTrackingID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		wantKey string
		wantOK  bool
	}{
		{
			name:    "data_transactionId",
			body:    `{"success":true,"data":{"transactionId":"txn_1","status":"pending"}}`,
			wantID:  "txn_1",
			wantKey: "transactionId",
			wantOK:  true,
		},
		{
			name:    "data_snake_case",
			body:    `{"data":{"transaction_id":"txn_2"}}`,
			wantID:  "txn_2",
			wantKey: "transaction_id",
			wantOK:  true,
		},
		{
			name:    "legacy_checkout_request_id",
			body:    `{"data":{"checkoutRequestID":"ws_CO_123"}}`,
			wantID:  "ws_CO_123",
			wantKey: "checkoutRequestID",
			wantOK:  true,
		},
		{
			name:    "legacy_snake_case",
			body:    `{"data":{"checkout_request_id":"ws_CO_456"}}`,
			wantID:  "ws_CO_456",
			wantKey: "checkout_request_id",
			wantOK:  true,
		},
		{
			name:    "priority_order",
			body:    `{"data":{"checkoutRequestID":"ws_CO_1","transaction_id":"txn_b","transactionId":"txn_a"}}`,
			wantID:  "txn_a",
			wantKey: "transactionId",
			wantOK:  true,
		},
		{
			name:    "empty_value_falls_through",
			body:    `{"data":{"transactionId":"","transaction_id":"txn_c"}}`,
			wantID:  "txn_c",
			wantKey: "transaction_id",
			wantOK:  true,
		},
		{
			name:    "root_object_without_data",
			body:    `{"transactionId":"txn_root"}`,
			wantID:  "txn_root",
			wantKey: "transactionId",
			wantOK:  true,
		},
		{
			name:    "numeric_id",
			body:    `{"data":{"transactionId":12345}}`,
			wantID:  "12345",
			wantKey: "transactionId",
			wantOK:  true,
		},
		{name: "no_known_field", body: `{"data":{"id":"x"}}`},
		{name: "null_data_no_root_id", body: `{"data":null}`},
		{name: "not_json", body: `<html>oops</html>`},
		{name: "array_body", body: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, key, ok := ExtractTrackingID([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestTrackingIDRules_Order(t *testing.T) {
	assert.Equal(t, []string{"transactionId", "transaction_id", "checkoutRequestID", "checkout_request_id"}, TrackingIDRules)
}
