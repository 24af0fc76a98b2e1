package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/pkg/observability"
)

const (
	DefaultMinAmount   = 10
	DefaultCountryCode = "254"
	DefaultCurrency    = "KES"
)

// InitiateRequest is the body of POST /pay. Amount is kept as a json.Number
// so both 50 and "50" are accepted.
type InitiateRequest struct {
	Phone  string      `json:"phone"`
	Amount json.Number `json:"amount"`
}

// Config holds initiator settings
type Config struct {
	MinAmount   int64
	CountryCode string
	Currency    string
}

// DefaultConfig returns the Kenyan defaults
func DefaultConfig() Config {
	return Config{
		MinAmount:   DefaultMinAmount,
		CountryCode: DefaultCountryCode,
		Currency:    DefaultCurrency,
	}
}

// Initiator validates payment requests, asks the provider for an STK push
// and seeds the store with a pending record
type Initiator struct {
	config  Config
	gateway ports.PushGateway
	store   ports.TransactionStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewInitiator creates a new payment initiator
func NewInitiator(config Config, gateway ports.PushGateway, store ports.TransactionStore, logger *zap.Logger) *Initiator {
	return &Initiator{
		config:  config,
		gateway: gateway,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Initiate starts a payment and returns its tracking id. Validation
// failures never reach the provider.
func (i *Initiator) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	start := time.Now()

	phone, amount, err := i.validate(req)
	if err != nil {
		observability.RecordInitiation("validation_error", 0, time.Since(start).Seconds())
		return "", err
	}

	result, err := i.gateway.InitiatePush(ctx, &ports.PushRequest{Phone: phone, Amount: amount})
	if err != nil {
		observability.RecordInitiation(initiationOutcome(err), amount, time.Since(start).Seconds())
		i.logger.Error("STK push initiation failed",
			zap.String("phone", maskPhone(phone)),
			zap.Int64("amount", amount),
			zap.String("error_code", string(domain.GetErrorCode(err))),
			zap.Error(err))
		return "", err
	}

	// The push is already queued at the provider; a store failure here must
	// not hide the tracking id from the caller.
	if _, _, err := i.store.Put(ctx, domain.NewPendingRecord(result.TrackingID, phone, amount, i.now())); err != nil {
		i.logger.Error("Failed to seed pending record",
			zap.String("tracking_id", result.TrackingID),
			zap.Error(err))
	} else {
		observability.RecordStatusTransition(domain.PaymentStatusPending.String(), string(domain.SourceInitiation))
	}

	observability.RecordInitiation("accepted", amount, time.Since(start).Seconds())
	i.logger.Info("Payment initiated",
		zap.String("tracking_id", result.TrackingID),
		zap.String("matched_key", result.MatchedKey),
		zap.String("phone", maskPhone(phone)),
		zap.Int64("amount", amount))

	return result.TrackingID, nil
}

func (i *Initiator) validate(req InitiateRequest) (string, int64, error) {
	if strings.TrimSpace(req.Phone) == "" {
		return "", 0, domain.ErrPhoneRequired
	}

	raw := strings.TrimSpace(req.Amount.String())
	if raw == "" {
		return "", 0, domain.ErrAmountRequired
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return "", 0, domain.ErrAmountInvalid.Wrap(err)
	}

	whole := value.Truncate(0)
	if !whole.BigInt().IsInt64() {
		return "", 0, domain.ErrAmountInvalid.WithDetail("amount", raw)
	}

	amount := whole.IntPart()
	if amount < i.config.MinAmount {
		return "", 0, domain.NewDomainError(domain.ErrorCodeValidationAmountTooLow,
			fmt.Sprintf("Minimum payment amount is %s %d", i.config.Currency, i.config.MinAmount)).
			WithDetail("min_amount", i.config.MinAmount)
	}

	return NormalizePhone(req.Phone, i.config.CountryCode), amount, nil
}

// NormalizePhone converts local and international spellings to the
// international form without '+': "0712…", "712…", "+254712…" and
// "254712…" all become "254712…".
func NormalizePhone(phone, countryCode string) string {
	p := strings.TrimSpace(phone)
	p = strings.TrimLeft(p, "+")
	p = strings.TrimLeft(p, "0")
	if !strings.HasPrefix(p, countryCode) {
		p = countryCode + p
	}
	return p
}

func initiationOutcome(err error) string {
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeGatewayTimeout:
		return "gateway_timeout"
	case domain.ErrorCodeGatewayProtocolViolation:
		return "protocol_violation"
	default:
		return "gateway_error"
	}
}

// maskPhone keeps the country prefix and last three digits
func maskPhone(phone string) string {
	if len(phone) <= 6 {
		return "***"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}
