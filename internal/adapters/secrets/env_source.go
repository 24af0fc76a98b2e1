package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// envSource reads secrets from environment variables.
// For local development; the name is the variable name.
type envSource struct {
	lookup func(string) (string, bool)
}

// NewEnvSource creates a SecretSource backed by the process environment
func NewEnvSource() ports.SecretSource {
	return &envSource{lookup: os.LookupEnv}
}

// GetSecret returns the trimmed value of the environment variable name
func (s *envSource) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	value, ok := s.lookup(name)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrSecretNotFound, name)
	}
	return &ports.Secret{Value: value, Version: "env"}, nil
}
