package lipana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// pushRequest is the body of POST /transactions/push-stk
type pushRequest struct {
	Phone  string `json:"phone"` // +254XXXXXXXXX
	Amount int64  `json:"amount"`
}

// InitiatePush implements PushGateway.InitiatePush.
//
// Errors: GATEWAY_TIMEOUT when the call runs past the initiation timeout,
// GATEWAY_ERROR for network failures and non-2xx answers (carrying the
// provider's message when it sent one), GATEWAY_PROTOCOL_VIOLATION when a
// 2xx answer has no tracking id.
func (c *Client) InitiatePush(ctx context.Context, req *ports.PushRequest) (*ports.PushResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.InitiateTimeout)
	defer cancel()

	payload, err := json.Marshal(pushRequest{Phone: "+" + req.Phone, Amount: req.Amount})
	if err != nil {
		return nil, domain.ErrInternalError.Wrap(fmt.Errorf("failed to marshal push request: %w", err))
	}

	c.logger.Info("Initiating STK push",
		ports.String("phone", "+"+req.Phone),
		ports.Int64("amount", req.Amount),
	)

	statusCode, body, err := c.do(ctx, http.MethodPost, pushPath, nil, payload)
	if err != nil {
		if isTimeout(ctx, err) {
			c.logger.Error("Lipana push timed out", ports.Err(err))
			return nil, domain.ErrGatewayTimedOut.Wrap(err)
		}
		c.logger.Error("Network error calling Lipana", ports.Err(err))
		return nil, domain.ErrGatewayUnreachable.Wrap(err)
	}

	if !isSuccess(statusCode) {
		c.logger.Error("Lipana push rejected",
			ports.Int("status_code", statusCode),
			ports.String("body", string(body)),
		)
		statusErr := &StatusError{StatusCode: statusCode, Body: body}
		if msg := providerMessage(body); msg != "" {
			return nil, domain.WrapError(domain.ErrorCodeGatewayError, msg, statusErr).
				WithDetail("status_code", statusCode)
		}
		return nil, domain.ErrGatewayError.Wrap(statusErr).WithDetail("status_code", statusCode)
	}

	trackingID, key, ok := ExtractTrackingID(body)
	if !ok {
		c.logger.Error("Lipana response missing transactionId",
			ports.String("body", string(body)),
		)
		return nil, domain.ErrGatewayProtocol.WithDetail("body", string(body))
	}

	c.logger.Info("STK push queued",
		ports.String("tracking_id", trackingID),
		ports.String("matched_key", key),
	)

	return &ports.PushResult{TrackingID: trackingID, MatchedKey: key}, nil
}
