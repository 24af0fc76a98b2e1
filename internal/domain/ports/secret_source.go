package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value   string
	Version string
}

// SecretSource retrieves named secrets (provider API key, webhook secret)
// from a secret manager backend
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (*Secret, error)
}
