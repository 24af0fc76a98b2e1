package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy of the service
//
//	HTTP Handler (45s)
//	  ↓
//	Payment initiation call (30s)
//	  ↓
//	Status fetch, whole paginated scan (5s)
//	  ↓
//	Tunnel agent lookup (3s)
//
// A status poll must stay well under the browser's poll interval, so the
// fetch budget is short; initiation waits for the provider to queue the push.
type TimeoutConfig struct {
	HTTPHandler  time.Duration
	Initiate     time.Duration
	StatusFetch  time.Duration
	TunnelLookup time.Duration
	Shutdown     time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:  45 * time.Second,
		Initiate:     30 * time.Second,
		StatusFetch:  5 * time.Second,
		TunnelLookup: 3 * time.Second,
		Shutdown:     15 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:  3 * time.Second,
		Initiate:     2 * time.Second,
		StatusFetch:  500 * time.Millisecond,
		TunnelLookup: 200 * time.Millisecond,
		Shutdown:     time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ShutdownContext creates a context for graceful server shutdown
func (tc *TimeoutConfig) ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Shutdown)
}
