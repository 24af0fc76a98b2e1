package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/adapters/memory"
	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/test/mocks"
)

func setupInitiator(t *testing.T) (*Initiator, *mocks.MockPushGateway, *memory.TransactionStore) {
	t.Helper()
	gateway := mocks.NewMockPushGateway("txn_123456")
	store := memory.NewTransactionStore(domain.FirstTerminalWins)
	return NewInitiator(DefaultConfig(), gateway, store, zap.NewNop()), gateway, store
}

func TestInitiator_Initiate(t *testing.T) {
	ctx := context.Background()
	initiator, gateway, store := setupInitiator(t)

	id, err := initiator.Initiate(ctx, InitiateRequest{Phone: "0712345678", Amount: "50.9"})
	require.NoError(t, err)
	assert.Equal(t, "txn_123456", id)

	require.Equal(t, 1, gateway.CallCount())
	assert.Equal(t, "254712345678", gateway.Requests[0].Phone)
	assert.Equal(t, int64(50), gateway.Requests[0].Amount, "amount is truncated to whole units")

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, rec.Status)
	assert.Equal(t, "254712345678", rec.Phone)
	assert.Equal(t, int64(50), rec.Amount)
	assert.Equal(t, domain.SourceInitiation, rec.Source)
}

// TestInitiator_Validation tests that bad input never reaches the provider
func TestInitiator_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     InitiateRequest
		wantErr error
		message string
	}{
		{name: "missing_phone", req: InitiateRequest{Amount: "50"}, wantErr: domain.ErrPhoneRequired},
		{name: "blank_phone", req: InitiateRequest{Phone: "  ", Amount: "50"}, wantErr: domain.ErrPhoneRequired},
		{name: "missing_amount", req: InitiateRequest{Phone: "0712345678"}, wantErr: domain.ErrAmountRequired},
		{name: "non_numeric_amount", req: InitiateRequest{Phone: "0712345678", Amount: "ten"}, wantErr: domain.ErrAmountInvalid},
		{
			name:    "below_minimum",
			req:     InitiateRequest{Phone: "0712345678", Amount: "5"},
			wantErr: domain.ErrAmountTooLow,
			message: "Minimum payment amount is KES 10",
		},
		{name: "amount_beyond_int64", req: InitiateRequest{Phone: "0712345678", Amount: "1e20"}, wantErr: domain.ErrAmountInvalid},
		{name: "amount_wraps_negative", req: InitiateRequest{Phone: "0712345678", Amount: "1e19"}, wantErr: domain.ErrAmountInvalid},
		{name: "large_negative_amount", req: InitiateRequest{Phone: "0712345678", Amount: "-1e19"}, wantErr: domain.ErrAmountInvalid},
		{
			name:    "fraction_truncated_below_minimum",
			req:     InitiateRequest{Phone: "0712345678", Amount: "9.99"},
			wantErr: domain.ErrAmountTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initiator, gateway, _ := setupInitiator(t)

			_, err := initiator.Initiate(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsValidationError(err))
			if tt.message != "" {
				assert.Equal(t, tt.message, domain.GetErrorMessage(err))
			}
			assert.Equal(t, 0, gateway.CallCount())
		})
	}
}

func TestInitiator_GatewayFailure(t *testing.T) {
	initiator, gateway, store := setupInitiator(t)
	gateway.SetError(domain.ErrGatewayTimedOut)

	_, err := initiator.Initiate(context.Background(), InitiateRequest{Phone: "+254712345678", Amount: json.Number("100")})
	assert.ErrorIs(t, err, domain.ErrGatewayTimedOut)

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is tracked when the push was not accepted")
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{" 0712345678 ", "254712345678"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in, DefaultCountryCode))
		})
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "254******678", maskPhone("254712345678"))
	assert.Equal(t, "***", maskPhone("123"))
}
