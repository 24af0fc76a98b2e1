package ports

import "context"

// PushRequest asks the provider to send an STK push prompt to a phone
type PushRequest struct {
	Phone  string // international format without '+', e.g. 254712345678
	Amount int64  // whole currency units
}

// PushResult is the provider's acknowledgement of a push request
type PushResult struct {
	TrackingID string
	MatchedKey string // response field the tracking id was read from
}

// PushGateway initiates STK push payments.
// Errors are *domain.DomainError values classified as gateway error,
// gateway timeout or protocol violation.
type PushGateway interface {
	InitiatePush(ctx context.Context, req *PushRequest) (*PushResult, error)
}
