package lipana

import "time"

// DefaultBaseURL is the production Lipana API
const DefaultBaseURL = "https://api.lipana.dev/v1"

const (
	pushPath         = "/transactions/push-stk"
	transactionsPath = "/transactions"

	apiKeyHeader = "x-api-key"

	// Upper bound on a response body read into memory
	maxResponseBytes = 1 << 20
)

// Config contains configuration for the Lipana API client
type Config struct {
	BaseURL string
	APIKey  string

	// Transaction list scan
	PageSize int
	MaxPages int

	InitiateTimeout    time.Duration
	StatusFetchTimeout time.Duration
}

// DefaultConfig returns the production configuration for apiKey
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:            DefaultBaseURL,
		APIKey:             apiKey,
		PageSize:           100,
		MaxPages:           3,
		InitiateTimeout:    30 * time.Second,
		StatusFetchTimeout: 5 * time.Second,
	}
}
