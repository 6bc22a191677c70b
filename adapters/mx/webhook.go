package mx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-connect/core"
)

// WebhookHandler normalizes vendor member-status events into correlation
// outcomes. Only connection status events resolve a pending flow; other
// event types are acknowledged and dropped.
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

type memberStatusEvent struct {
	Type             string `json:"type"`
	Action           string `json:"action"`
	RequestID        string `json:"request_id"`
	State            string `json:"state"`
	MemberGUID       string `json:"member_guid"`
	UserGUID         string `json:"user_guid"`
	ConnectionStatus string `json:"connection_status"`
	ErrorReason      string `json:"error_reason"`
}

func (h WebhookHandler) HandleWebhook(_ context.Context, req core.InboundRequest) (core.CorrelationOutcome, error) {
	if len(req.Body) == 0 {
		return core.CorrelationOutcome{}, fmt.Errorf("mx: webhook body is empty")
	}
	var event memberStatusEvent
	if err := json.Unmarshal(req.Body, &event); err != nil {
		return core.CorrelationOutcome{}, fmt.Errorf("mx: webhook payload is not valid json: %w", err)
	}

	eventType := strings.ToUpper(strings.TrimSpace(event.Type))
	if eventType != "" && eventType != "CONNECTION_STATUS_UPDATED" && eventType != "MEMBER_STATUS_UPDATED" {
		return core.CorrelationOutcome{}, fmt.Errorf("mx: webhook event %q does not resolve a connection", event.Type)
	}

	token := strings.TrimSpace(event.RequestID)
	if token == "" {
		token = strings.TrimSpace(event.State)
	}
	if token == "" {
		return core.CorrelationOutcome{}, fmt.Errorf("mx: webhook is missing the correlation token")
	}

	status := NormalizeStatus(event.ConnectionStatus)
	return core.CorrelationOutcome{
		Token:        token,
		Status:       webhookTerminalStatus(status),
		ConnectionID: strings.TrimSpace(event.MemberGUID),
		Reason:       strings.TrimSpace(event.ErrorReason),
		Metadata: map[string]any{
			"aggregator": h.AggregatorKey,
			"surface":    "webhook",
			"user_guid":  event.UserGUID,
		},
	}, nil
}

// webhookTerminalStatus collapses the vendor vocabulary onto the three
// outcomes an oauth flow can end in.
func webhookTerminalStatus(status core.ConnectionStatus) core.ConnectionStatus {
	switch status {
	case core.ConnectionStatusConnected, core.ConnectionStatusReconnected, core.ConnectionStatusUpdated:
		return core.ConnectionStatusConnected
	case core.ConnectionStatusDenied, core.ConnectionStatusRejected:
		return core.ConnectionStatusDenied
	default:
		return core.ConnectionStatusFailed
	}
}
