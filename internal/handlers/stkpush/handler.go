package stkpush

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/adapters/lipana"
	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/internal/services/payment"
	"github.com/kevin07696/stkpush-service/pkg/middleware"
	"github.com/kevin07696/stkpush-service/pkg/observability"
)

const maxBodyBytes = 1 << 20

// Initiator starts STK push payments
type Initiator interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (string, error)
}

// Reconciler owns the reconciled payment state
type Reconciler interface {
	ApplyWebhook(ctx context.Context, event *domain.WebhookEvent) (*domain.PaymentRecord, error)
	ResolveStatus(ctx context.Context, trackingID string) (*domain.PaymentRecord, error)
	Snapshot(ctx context.Context) ([]*domain.PaymentRecord, error)
}

// Handler serves the public payment API: checkout, status polling,
// the provider webhook and webhook diagnostics
type Handler struct {
	initiator     Initiator
	reconciler    Reconciler
	webhookURLs   ports.WebhookURLResolver
	webhookSecret []byte
	logger        *zap.Logger
}

// NewHandler creates a new payment API handler
func NewHandler(
	initiator Initiator,
	reconciler Reconciler,
	webhookURLs ports.WebhookURLResolver,
	webhookSecret string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		initiator:     initiator,
		reconciler:    reconciler,
		webhookURLs:   webhookURLs,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
	}
}

// Register mounts every route on mux
func (h *Handler) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		label   string
		handler http.HandlerFunc
	}{
		{"POST /pay", "/pay", h.Pay},
		{"GET /status/{trackingId}", "/status/{trackingId}", h.Status},
		{"POST /webhook", "/webhook", h.Webhook},
		{"GET /webhook-info", "/webhook-info", h.WebhookInfo},
		{"GET /healthz", "/healthz", h.Healthz},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, observability.HTTPMetricsMiddleware(rt.label, rt.handler))
	}
}

type payRequest struct {
	Phone  string          `json:"phone"`
	Amount json.RawMessage `json:"amount"`
}

type payResponse struct {
	TrackingID string `json:"trackingId"`
}

// Pay handles POST /pay
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var body payRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, r, domain.ErrMalformedBody.Wrap(err))
		return
	}

	trackingID, err := h.initiator.Initiate(r.Context(), payment.InitiateRequest{
		Phone:  body.Phone,
		Amount: json.Number(amountLiteral(body.Amount)),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payResponse{TrackingID: trackingID})
}

type statusResponse struct {
	Status string `json:"status"`
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
}

// Status handles GET /status/{trackingId}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("trackingId")

	rec, err := h.reconciler.ResolveStatus(r.Context(), trackingID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status: rec.Status.String(),
		Phone:  rec.Phone,
		Amount: rec.Amount,
	})
}

// Webhook handles POST /webhook. The signature is checked over the exact
// bytes received before anything is decoded.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		observability.RecordWebhook("malformed")
		h.writeError(w, r, domain.ErrMalformedBody.Wrap(err))
		return
	}

	signature := r.Header.Get(lipana.SignatureHeader)
	if signature == "" {
		observability.RecordWebhook("signature_missing")
		h.writeError(w, r, domain.ErrSignatureMissing)
		return
	}
	if !lipana.VerifySignature(raw, signature, h.webhookSecret) {
		observability.RecordWebhook("signature_invalid")
		h.writeError(w, r, domain.ErrSignatureInvalid)
		return
	}

	event, err := lipana.ParseWebhookEvent(raw)
	if err != nil {
		observability.RecordWebhook("malformed")
		h.writeError(w, r, err)
		return
	}

	if _, err := h.reconciler.ApplyWebhook(r.Context(), event); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type transactionSummary struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type webhookInfoResponse struct {
	WebhookURL          string                        `json:"webhook_url"`
	Source              string                        `json:"source"`
	Reachable           bool                          `json:"reachable"`
	Warning             string                        `json:"warning,omitempty"`
	Instruction         string                        `json:"instruction"`
	TrackedTransactions int                           `json:"tracked_transactions"`
	Transactions        map[string]transactionSummary `json:"transactions"`
}

// WebhookInfo handles GET /webhook-info
func (h *Handler) WebhookInfo(w http.ResponseWriter, r *http.Request) {
	target := h.webhookURLs.ResolveWebhookURL(r.Context())

	records, err := h.reconciler.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	transactions := make(map[string]transactionSummary, len(records))
	for _, rec := range records {
		transactions[rec.TrackingID] = transactionSummary{Status: rec.Status.String(), Amount: rec.Amount}
	}

	writeJSON(w, http.StatusOK, webhookInfoResponse{
		WebhookURL:          target.URL,
		Source:              target.Source,
		Reachable:           target.Reachable,
		Warning:             target.Warning,
		Instruction:         "Set this URL as the webhook endpoint in the Lipana dashboard",
		TrackedTransactions: len(records),
		Transactions:        transactions,
	})
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorStatus maps error codes to HTTP statuses. Unlisted codes are 500.
var errorStatus = map[domain.ErrorCode]int{
	domain.ErrorCodeValidationMissingField:   http.StatusBadRequest,
	domain.ErrorCodeValidationAmountInvalid:  http.StatusBadRequest,
	domain.ErrorCodeValidationAmountTooLow:   http.StatusBadRequest,
	domain.ErrorCodeValidationMalformedBody:  http.StatusBadRequest,
	domain.ErrorCodeGatewayError:             http.StatusBadGateway,
	domain.ErrorCodeGatewayProtocolViolation: http.StatusBadGateway,
	domain.ErrorCodeGatewayTimeout:           http.StatusGatewayTimeout,
	domain.ErrorCodeAuthSignatureMissing:     http.StatusUnauthorized,
	domain.ErrorCodeAuthSignatureInvalid:     http.StatusUnauthorized,
	domain.ErrorCodeTxnNotFound:              http.StatusNotFound,
}

// HTTPStatus returns the response status for err
func HTTPStatus(err error) int {
	if status, ok := errorStatus[domain.GetErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)

	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("error_code", string(domain.GetErrorCode(err))),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("Request failed", fields...)
	case status == http.StatusNotFound:
		h.logger.Debug("Request failed", fields...)
	default:
		h.logger.Warn("Request failed", fields...)
	}

	if domain.IsNotFoundError(err) {
		writeJSON(w, status, map[string]string{"status": "not_found"})
		return
	}

	message := domain.GetErrorMessage(err)
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		message = "Request body too large"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// amountLiteral accepts 50, 50.5 and "50" and returns "" for absent or null
func amountLiteral(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return strings.TrimSpace(unquoted)
		}
	}
	return s
}
