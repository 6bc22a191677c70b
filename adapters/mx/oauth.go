package mx

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-connect/core"
)

// RedirectHandler extracts a correlation outcome from the browser redirect
// the vendor issues when the OAuth window closes. The state query parameter
// carries the correlation token minted on CreateConnection.
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
		token = strings.TrimSpace(req.Query["request_id"])
	}
	if token == "" {
		return core.CorrelationOutcome{}, fmt.Errorf("mx: redirect is missing the state parameter")
	}

	outcome := core.CorrelationOutcome{
		Token:        token,
		ConnectionID: strings.TrimSpace(req.Query["member_guid"]),
		Metadata: map[string]any{
			"aggregator": h.AggregatorKey,
			"surface":    "redirect",
		},
	}

	switch strings.ToLower(strings.TrimSpace(req.Query["status"])) {
	case "", "success", "connected":
		if reason := strings.TrimSpace(req.Query["error_reason"]); reason != "" {
			outcome.Status = redirectErrorStatus(reason)
			outcome.Reason = reason
			return outcome, nil
		}
		outcome.Status = core.ConnectionStatusConnected
	case "denied", "cancelled", "canceled":
		outcome.Status = core.ConnectionStatusDenied
		outcome.Reason = strings.TrimSpace(req.Query["error_reason"])
	default:
		outcome.Status = core.ConnectionStatusFailed
		outcome.Reason = strings.TrimSpace(req.Query["error_reason"])
	}
	return outcome, nil
}

func redirectErrorStatus(reason string) core.ConnectionStatus {
	switch strings.ToLower(reason) {
	case "denied", "cancelled", "canceled", "user_cancelled":
		return core.ConnectionStatusDenied
	default:
		return core.ConnectionStatusFailed
	}
}
