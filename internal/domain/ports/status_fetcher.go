package ports

import (
	"context"

	"github.com/kevin07696/stkpush-service/internal/domain"
)

// FetchOutcome classifies the result of a remote status lookup
type FetchOutcome int

const (
	// FetchNotFound means the scan completed without a match inside the page budget
	FetchNotFound FetchOutcome = iota
	// FetchFound means a matching transaction was found
	FetchFound
	// FetchTransportFailure means the provider could not be reached or answered with an error
	FetchTransportFailure
)

func (o FetchOutcome) String() string {
	switch o {
	case FetchFound:
		return "found"
	case FetchNotFound:
		return "not_found"
	case FetchTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// FetchResult is what a StatusFetcher learned about one tracking id
type FetchResult struct {
	Err          error // set for FetchTransportFailure
	Outcome      FetchOutcome
	Status       domain.PaymentStatus // set for FetchFound, already normalized
	PagesScanned int
}

// Found returns true when the lookup matched a transaction
func (r FetchResult) Found() bool {
	return r.Outcome == FetchFound
}

// StatusFetcher looks up the provider-side status of a transaction.
// Implementations never return an error: failures are reported as
// FetchTransportFailure so callers can degrade to "no data".
type StatusFetcher interface {
	FetchStatus(ctx context.Context, trackingID string) FetchResult
}
