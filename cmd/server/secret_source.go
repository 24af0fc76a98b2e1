package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/adapters/secrets"
	"github.com/kevin07696/stkpush-service/internal/config"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

// initSecretSource selects where the Lipana credentials are read from.
// Supports:
//   - env (development): LIPANA_SECRET_KEY and LIPANA_WEBHOOK_SECRET
//   - aws: AWS Secrets Manager in AWS_REGION, optional AWS_SECRETS_ENDPOINT for LocalStack
//   - vault: HashiCorp Vault KV v2 at VAULT_ADDR using VAULT_TOKEN
func initSecretSource(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretSource, error) {
	switch cfg.Backend {
	case config.SecretsBackendAWS:
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Endpoint = cfg.AWSEndpoint

		source, err := secrets.NewAWSSecretsManagerSource(ctx, awsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init AWS Secrets Manager: %w", err)
		}
		logger.Info("AWS Secrets Manager initialized",
			zap.String("region", awsCfg.Region),
			zap.Duration("cache_ttl", awsCfg.CacheTTL),
		)
		return source, nil

	case config.SecretsBackendVault:
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress, cfg.VaultToken)
		vaultCfg.MountPath = cfg.VaultMountPath

		source, err := secrets.NewVaultSource(ctx, vaultCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init Vault: %w", err)
		}
		logger.Info("Vault secret source initialized",
			zap.String("address", vaultCfg.Address),
			zap.String("mount_path", vaultCfg.MountPath),
		)
		return source, nil

	default:
		logger.Warn("Reading Lipana credentials from the environment - NOT for production use!",
			zap.String("secrets_backend", cfg.Backend),
		)
		return secrets.NewEnvSource(), nil
	}
}
