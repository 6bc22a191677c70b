package testbank

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-connect/core"
)

// RedirectHandler simulates the vendor redirect: ?state=<token>&code=success
// resolves CONNECTED, anything else FAILED/DENIED.
type RedirectHandler struct {
	Adapter *Adapter
}

func (h RedirectHandler) HandleOAuthRedirect(_ context.Context, req core.InboundRequest) (core.CorrelationOutcome, error) {
	token := strings.TrimSpace(req.Query["state"])
	if token == "" {
		return core.CorrelationOutcome{}, fmt.Errorf("testbank: redirect is missing the state parameter")
	}

	status := core.ConnectionStatusConnected
	reason := ""
	switch strings.ToLower(strings.TrimSpace(req.Query["code"])) {
	case "", "success":
	case "denied":
		status = core.ConnectionStatusDenied
		reason = "user declined"
	default:
		status = core.ConnectionStatusFailed
		reason = strings.TrimSpace(req.Query["code"])
	}

	if h.Adapter != nil {
		// best effort; the correlation record is authoritative for polls
		_ = h.Adapter.CompleteOAuth(token, status, reason)
	}
	return core.CorrelationOutcome{
		Token:        token,
		Status:       status,
		ConnectionID: token,
		Reason:       reason,
		Metadata:     map[string]any{"surface": "redirect"},
	}, nil
}

// DataSource serves canned, deterministic payloads.
type DataSource struct{}

func (DataSource) GetAccounts(_ context.Context, req core.DataRequest) (map[string]any, error) {
	return map[string]any{
		"accounts": []map[string]any{
			{"id": "tb-acct-1", "name": "Checking", "balance": 1250.75, "connection_id": req.ConnectionID},
			{"id": "tb-acct-2", "name": "Savings", "balance": 9800.00, "connection_id": req.ConnectionID},
		},
	}, nil
}

func (DataSource) GetIdentity(_ context.Context, req core.DataRequest) (map[string]any, error) {
	return map[string]any{
		"customers": []map[string]any{
			{"id": req.UserID, "name": "Test User", "email": "test.user@example.com"},
		},
	}, nil
}

func (DataSource) GetTransactions(_ context.Context, req core.DataRequest) (map[string]any, error) {
	return map[string]any{
		"transactions": []map[string]any{
			{"id": "tb-txn-1", "account_id": "tb-acct-1", "amount": -42.50, "description": "Coffee Supply Co"},
			{"id": "tb-txn-2", "account_id": "tb-acct-1", "amount": 1500.00, "description": "Payroll"},
		},
	}, nil
}
