package finicity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-connect/core"
)

// RedirectHandler resolves the hosted connect window's browser redirect.
type RedirectHandler struct {
	AggregatorKey string
}

func NewRedirectHandler(aggregatorKey string) RedirectHandler {
	aggregatorKey = strings.TrimSpace(strings.ToLower(aggregatorKey))
	if aggregatorKey == "" {
		aggregatorKey = defaultAggregatorKey
	}
	return RedirectHandler{AggregatorKey: aggregatorKey}
}

func (h RedirectHandler) HandleOAuthRedirect(_ context.Context, req core.InboundRequest) (core.CorrelationOutcome, error) {
	token := strings.TrimSpace(req.Query["state"])
	if token == "" {
		token = strings.TrimSpace(req.Query["customer_reference"])
	}
	if token == "" {
		return core.CorrelationOutcome{}, fmt.Errorf("finicity: redirect is missing the state parameter")
	}

	outcome := core.CorrelationOutcome{
		Token:        token,
		ConnectionID: strings.TrimSpace(req.Query["account_id"]),
		Metadata:     map[string]any{"aggregator": h.AggregatorKey, "surface": "redirect"},
	}
	switch strings.ToLower(strings.TrimSpace(req.Query["code"])) {
	case "", "success", "complete", "100":
		outcome.Status = core.ConnectionStatusConnected
	case "exit", "cancel", "201":
		outcome.Status = core.ConnectionStatusDenied
		outcome.Reason = strings.TrimSpace(req.Query["reason"])
	default:
		outcome.Status = core.ConnectionStatusFailed
		outcome.Reason = strings.TrimSpace(req.Query["reason"])
	}
	return outcome, nil
}

// WebhookHandler resolves the same token out of band. The vendor may send
// both the redirect and this event; the correlator accepts whichever
// arrives, in either order.
type WebhookHandler struct {
	AggregatorKey string
}

func NewWebhookHandler(aggregatorKey string) WebhookHandler {
	aggregatorKey = strings.TrimSpace(strings.ToLower(aggregatorKey))
	if aggregatorKey == "" {
		aggregatorKey = defaultAggregatorKey
	}
	return WebhookHandler{AggregatorKey: aggregatorKey}
}

type connectEvent struct {
	EventType string `json:"eventType"`
	Payload   struct {
		CustomerReference string `json:"customerReference"`
		AccountID         string `json:"accountId"`
		Reason            string `json:"reason"`
	} `json:"payload"`
}

func (h WebhookHandler) HandleWebhook(_ context.Context, req core.InboundRequest) (core.CorrelationOutcome, error) {
	if len(req.Body) == 0 {
		return core.CorrelationOutcome{}, fmt.Errorf("finicity: webhook body is empty")
	}
	var event connectEvent
	if err := json.Unmarshal(req.Body, &event); err != nil {
		return core.CorrelationOutcome{}, fmt.Errorf("finicity: webhook payload is not valid json: %w", err)
	}

	token := strings.TrimSpace(event.Payload.CustomerReference)
	if token == "" {
		return core.CorrelationOutcome{}, fmt.Errorf("finicity: webhook is missing the correlation token")
	}

	outcome := core.CorrelationOutcome{
		Token:        token,
		ConnectionID: strings.TrimSpace(event.Payload.AccountID),
		Reason:       strings.TrimSpace(event.Payload.Reason),
		Metadata:     map[string]any{"aggregator": h.AggregatorKey, "surface": "webhook"},
	}
	switch strings.ToLower(strings.TrimSpace(event.EventType)) {
	case "added", "done", "success":
		outcome.Status = core.ConnectionStatusConnected
	case "exit", "cancel", "user_exit":
		outcome.Status = core.ConnectionStatusDenied
	default:
		outcome.Status = core.ConnectionStatusFailed
	}
	return outcome, nil
}
