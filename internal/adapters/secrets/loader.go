package secrets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/pkg/resilience"
)

// ErrSecretNotFound is returned when a secret does not exist or is empty
var ErrSecretNotFound = errors.New("secret not found")

const loadAttempts = 3

// ProviderSecretNames names the Lipana credentials in a SecretSource
type ProviderSecretNames struct {
	APIKey        string
	WebhookSecret string
}

// ProviderSecrets holds the Lipana credentials the service needs to start
type ProviderSecrets struct {
	APIKey        string
	WebhookSecret string
}

// LoadProviderSecrets fetches both Lipana credentials from source. Transient
// failures are retried with backoff; a missing secret fails immediately.
func LoadProviderSecrets(ctx context.Context, source ports.SecretSource, names ProviderSecretNames, logger *zap.Logger) (*ProviderSecrets, error) {
	apiKey, err := loadSecret(ctx, source, names.APIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("load Lipana secret key: %w", err)
	}

	webhookSecret, err := loadSecret(ctx, source, names.WebhookSecret, logger)
	if err != nil {
		return nil, fmt.Errorf("load Lipana webhook secret: %w", err)
	}

	return &ProviderSecrets{
		APIKey:        apiKey.Value,
		WebhookSecret: webhookSecret.Value,
	}, nil
}

func loadSecret(ctx context.Context, source ports.SecretSource, name string, logger *zap.Logger) (*ports.Secret, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: no secret name configured", ErrSecretNotFound)
	}

	var secret *ports.Secret
	attempt := 0
	err := resilience.Retry(ctx, loadAttempts, resilience.SecretFetchBackoff(),
		func(err error) bool { return !errors.Is(err, ErrSecretNotFound) },
		func(ctx context.Context) error {
			attempt++
			s, err := source.GetSecret(ctx, name)
			if err != nil {
				logger.Warn("Secret fetch failed",
					zap.String("name", name),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				return err
			}
			secret = s
			return nil
		})
	if err != nil {
		return nil, err
	}

	logger.Info("Secret loaded",
		zap.String("name", name),
		zap.String("version", secret.Version),
	)
	return secret, nil
}
