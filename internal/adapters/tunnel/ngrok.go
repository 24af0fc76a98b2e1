package tunnel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

const (
	webhookPath = "/webhook"
	tunnelsPath = "/api/tunnels"

	// DefaultAgentURL is the local ngrok agent API
	DefaultAgentURL = "http://localhost:4040"

	localWarning = "not publicly reachable, set WEBHOOK_PUBLIC_URL"
)

// Config controls how the public webhook URL is worked out
type Config struct {
	// PublicURL is an explicit public base URL; it wins over tunnel discovery
	PublicURL string
	// AgentURL is the ngrok agent API base URL; empty disables discovery
	AgentURL      string
	LocalPort     int
	LookupTimeout time.Duration
}

// Resolver implements ports.WebhookURLResolver: explicit URL, then the first
// https ngrok tunnel, then a local URL flagged as unreachable
type Resolver struct {
	config Config
	client *resty.Client
	logger *zap.Logger
}

var _ ports.WebhookURLResolver = (*Resolver)(nil)

// NewResolver creates a webhook URL resolver. httpClient may be nil.
func NewResolver(cfg Config, httpClient *http.Client, logger *zap.Logger) *Resolver {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 3 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	client := resty.NewWithClient(httpClient).
		SetTimeout(cfg.LookupTimeout).
		SetHeader("Accept", "application/json")

	return &Resolver{config: cfg, client: client, logger: logger}
}

type tunnelList struct {
	Tunnels []struct {
		Name      string `json:"name"`
		Proto     string `json:"proto"`
		PublicURL string `json:"public_url"`
	} `json:"tunnels"`
}

// ResolveWebhookURL never fails; lookup problems fall through to the local URL
func (r *Resolver) ResolveWebhookURL(ctx context.Context) ports.WebhookURL {
	if base := strings.TrimRight(strings.TrimSpace(r.config.PublicURL), "/"); base != "" {
		return ports.WebhookURL{URL: base + webhookPath, Source: "config", Reachable: true}
	}

	if publicURL, err := r.lookupTunnel(ctx); err != nil {
		r.logger.Debug("Tunnel lookup failed", zap.Error(err))
	} else if publicURL != "" {
		return ports.WebhookURL{
			URL:       strings.TrimRight(publicURL, "/") + webhookPath,
			Source:    "tunnel",
			Reachable: true,
		}
	}

	return ports.WebhookURL{
		URL:     fmt.Sprintf("http://localhost:%d%s", r.config.LocalPort, webhookPath),
		Source:  "local",
		Warning: localWarning,
	}
}

// lookupTunnel returns the public URL of the first https tunnel, or ""
func (r *Resolver) lookupTunnel(ctx context.Context) (string, error) {
	if r.config.AgentURL == "" {
		return "", nil
	}

	var list tunnelList
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&list).
		Get(strings.TrimRight(r.config.AgentURL, "/") + tunnelsPath)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("tunnel agent returned HTTP %d", resp.StatusCode())
	}

	for _, t := range list.Tunnels {
		if t.Proto == "https" && t.PublicURL != "" {
			return t.PublicURL, nil
		}
	}
	return "", nil
}
