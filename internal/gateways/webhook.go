package gateways

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/httpclient"
)

// WebhookGateway posts callback events to the business verifier's endpoint.
type WebhookGateway struct {
	client       *httpclient.Client
	callbackURL  string
	apiKeyHeader string
	apiKeyValue  string
}

// NewWebhook creates a WebhookGateway. The api key header is optional and
// only sent when both name and value are configured.
func NewWebhook(client *httpclient.Client, callbackURL, apiKeyHeader, apiKeyValue string) *WebhookGateway {
	return &WebhookGateway{
		client:       client,
		callbackURL:  callbackURL,
		apiKeyHeader: apiKeyHeader,
		apiKeyValue:  apiKeyValue,
	}
}

// Deliver posts one event. Any transport error or non-2xx answer is a
// delivery failure and the event stays queued.
func (g *WebhookGateway) Deliver(ctx context.Context, event *domain.CallbackEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	headers := map[string]string{}
	if g.apiKeyHeader != "" && g.apiKeyValue != "" {
		headers[g.apiKeyHeader] = g.apiKeyValue
	}
	if _, err := g.client.Post(ctx, g.callbackURL, "application/json", body, headers); err != nil {
		return errors.Wrap(err, "webhook delivery failed")
	}
	return nil
}
