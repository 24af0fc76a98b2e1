package ports

import "context"

// WebhookURL is the address the provider should deliver webhooks to
type WebhookURL struct {
	URL       string `json:"webhook_url"`
	Source    string `json:"source"` // config, tunnel or local
	Reachable bool   `json:"reachable"`
	Warning   string `json:"warning,omitempty"`
}

// WebhookURLResolver works out the externally reachable webhook URL
type WebhookURLResolver interface {
	ResolveWebhookURL(ctx context.Context) WebhookURL
}
