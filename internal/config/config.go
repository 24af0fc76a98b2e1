package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kevin07696/stkpush-service/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Lipana         LipanaConfig
	Payment        PaymentConfig
	Reconciliation ReconciliationConfig
	Store          StoreConfig
	Secrets        SecretsConfig
	Tunnel         TunnelConfig
	RateLimit      RateLimitConfig
	Logger         LoggerConfig
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	Port           int
	MetricsPort    int
	GRPCHealthPort int // 0 disables the gRPC health service
	// TrustProxy keys rate limiting on X-Forwarded-For. Enable only behind
	// ngrok or a load balancer that overwrites the header.
	TrustProxy bool
}

// LipanaConfig holds Lipana API configuration
type LipanaConfig struct {
	BaseURL            string
	InitiateTimeout    time.Duration
	StatusFetchTimeout time.Duration
	PageSize           int
	MaxPages           int
}

// PaymentConfig holds checkout rules
type PaymentConfig struct {
	MinAmount   int64
	CountryCode string
	Currency    string
}

// ReconciliationConfig holds the status merge rule
type ReconciliationConfig struct {
	MergePolicy domain.TransitionPolicy
}

// StoreConfig selects the transaction store backend
type StoreConfig struct {
	Backend     string // memory or postgres
	DatabaseURL string
}

// SecretsConfig selects where Lipana credentials come from
type SecretsConfig struct {
	Backend string // env, aws or vault

	// Names of the two credentials in the backend. For env these are
	// variable names.
	APIKeyName        string
	WebhookSecretName string

	AWSRegion   string
	AWSEndpoint string

	VaultAddress   string
	VaultToken     string
	VaultMountPath string
}

// TunnelConfig controls webhook URL discovery
type TunnelConfig struct {
	PublicURL string
	AgentURL  string
}

// RateLimitConfig holds per-client limits for the public API
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Environment string
}

// IsProduction reports whether production logging and headers apply
func (c LoggerConfig) IsProduction() bool {
	return c.Environment == "production"
}

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"

	SecretsBackendEnv   = "env"
	SecretsBackendAWS   = "aws"
	SecretsBackendVault = "vault"
)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	policy, err := domain.ParseTransitionPolicy(getEnv("STATUS_MERGE_POLICY", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("PORT", 3000),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			GRPCHealthPort: getEnvAsInt("GRPC_HEALTH_PORT", 0),
			TrustProxy:     getEnvAsBool("TRUST_PROXY", false),
		},
		Lipana: LipanaConfig{
			BaseURL:            strings.TrimRight(getEnv("LIPANA_API_BASE", "https://api.lipana.dev/v1"), "/"),
			InitiateTimeout:    getEnvAsDuration("INITIATE_TIMEOUT", 30*time.Second),
			StatusFetchTimeout: getEnvAsDuration("STATUS_FETCH_TIMEOUT", 5*time.Second),
			PageSize:           getEnvAsInt("STATUS_PAGE_SIZE", 100),
			MaxPages:           getEnvAsInt("STATUS_MAX_PAGES", 3),
		},
		Payment: PaymentConfig{
			MinAmount:   int64(getEnvAsInt("MIN_PAYMENT_AMOUNT", 10)),
			CountryCode: getEnv("COUNTRY_CODE", "254"),
			Currency:    getEnv("CURRENCY", "KES"),
		},
		Reconciliation: ReconciliationConfig{
			MergePolicy: policy,
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", StoreBackendMemory),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Secrets: SecretsConfig{
			Backend:        getEnv("SECRETS_BACKEND", SecretsBackendEnv),
			AWSRegion:      getEnv("AWS_REGION", "eu-west-1"),
			AWSEndpoint:    getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:   getEnv("VAULT_ADDR", "http://localhost:8200"),
			VaultToken:     getEnv("VAULT_TOKEN", ""),
			VaultMountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		Tunnel: TunnelConfig{
			PublicURL: strings.TrimRight(getEnv("WEBHOOK_PUBLIC_URL", ""), "/"),
			AgentURL:  getEnv("NGROK_API_URL", "http://localhost:4040"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
	}

	if cfg.Secrets.Backend == SecretsBackendEnv {
		cfg.Secrets.APIKeyName = "LIPANA_SECRET_KEY"
		cfg.Secrets.WebhookSecretName = "LIPANA_WEBHOOK_SECRET"
	} else {
		cfg.Secrets.APIKeyName = getEnv("LIPANA_SECRET_KEY_PATH", "stkpush/lipana-secret-key")
		cfg.Secrets.WebhookSecretName = getEnv("LIPANA_WEBHOOK_SECRET_PATH", "stkpush/lipana-webhook-secret")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Lipana.PageSize <= 0 {
		return fmt.Errorf("STATUS_PAGE_SIZE must be positive")
	}
	if c.Lipana.MaxPages <= 0 {
		return fmt.Errorf("STATUS_MAX_PAGES must be positive")
	}
	if c.Payment.MinAmount < 1 {
		return fmt.Errorf("MIN_PAYMENT_AMOUNT must be at least 1")
	}

	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Secrets.Backend {
	case SecretsBackendEnv:
		for _, key := range []string{c.Secrets.APIKeyName, c.Secrets.WebhookSecretName} {
			if strings.TrimSpace(os.Getenv(key)) == "" {
				return fmt.Errorf("%s is required", key)
			}
		}
	case SecretsBackendAWS:
	case SecretsBackendVault:
		if c.Secrets.VaultToken == "" {
			return fmt.Errorf("VAULT_TOKEN is required when SECRETS_BACKEND=vault")
		}
	default:
		return fmt.Errorf("unknown SECRETS_BACKEND %q", c.Secrets.Backend)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
