package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// stubAdapter is the configurable test double used across the core tests.
// Unset hooks fall back to benign defaults.
type stubAdapter struct {
	id string

	resolveUserID        func(ctx context.Context, userID string, failIfNotFound bool) (string, error)
	getInstitution       func(ctx context.Context, institutionID string) (Institution, error)
	listInstitutionCreds func(ctx context.Context, institutionID string) ([]Credential, error)
	listConnections      func(ctx context.Context, userID string) ([]Connection, error)
	listConnectionCreds  func(ctx context.Context, connectionID string, userID string) ([]Credential, error)
	createConnection     func(ctx context.Context, req CreateConnectionRequest, userID string) (Connection, error)
	updateConnection     func(ctx context.Context, req UpdateConnectionRequest, userID string) (Connection, error)
	getConnectionByID    func(ctx context.Context, connectionID string, userID string) (Connection, error)
	getConnectionStatus  func(ctx context.Context, req ConnectionStatusRequest) (Connection, error)
	answerChallenge      func(ctx context.Context, req AnswerChallengeRequest, jobID string, userID string) (bool, error)
	deleteConnection     func(ctx context.Context, connectionID string, userID string) error
	deleteUser           func(ctx context.Context, userID string) error

	resolveUserCalls   int
	statusCalls        int
	lastResolvedFailIf bool
}

func (a *stubAdapter) ID() string { return a.id }

func (a *stubAdapter) ResolveUserID(ctx context.Context, userID string, failIfNotFound bool) (string, error) {
	a.resolveUserCalls++
	a.lastResolvedFailIf = failIfNotFound
	if a.resolveUserID != nil {
		return a.resolveUserID(ctx, userID, failIfNotFound)
	}
	return "native-" + userID, nil
}

func (a *stubAdapter) GetInstitutionByID(ctx context.Context, institutionID string) (Institution, error) {
	if a.getInstitution != nil {
		return a.getInstitution(ctx, institutionID)
	}
	return Institution{ID: institutionID, Name: "Test Bank", Aggregator: a.id}, nil
}

func (a *stubAdapter) ListInstitutionCredentials(ctx context.Context, institutionID string) ([]Credential, error) {
	if a.listInstitutionCreds != nil {
		return a.listInstitutionCreds(ctx, institutionID)
	}
	return []Credential{{ID: "cred-1", Label: "Username", FieldName: "username", FieldType: "text"}}, nil
}

func (a *stubAdapter) ListConnections(ctx context.Context, userID string) ([]Connection, error) {
	if a.listConnections != nil {
		return a.listConnections(ctx, userID)
	}
	return nil, nil
}

func (a *stubAdapter) ListConnectionCredentials(ctx context.Context, connectionID string, userID string) ([]Credential, error) {
	if a.listConnectionCreds != nil {
		return a.listConnectionCreds(ctx, connectionID, userID)
	}
	return nil, nil
}

func (a *stubAdapter) CreateConnection(ctx context.Context, req CreateConnectionRequest, userID string) (Connection, error) {
	if a.createConnection != nil {
		return a.createConnection(ctx, req, userID)
	}
	return Connection{ID: "conn-1", InstitutionID: req.InstitutionID, Status: ConnectionStatusCreated}, nil
}

func (a *stubAdapter) UpdateConnection(ctx context.Context, req UpdateConnectionRequest, userID string) (Connection, error) {
	if a.updateConnection != nil {
		return a.updateConnection(ctx, req, userID)
	}
	return Connection{ID: req.ConnectionID, Status: ConnectionStatusConnected}, nil
}

func (a *stubAdapter) GetConnectionByID(ctx context.Context, connectionID string, userID string) (Connection, error) {
	if a.getConnectionByID != nil {
		return a.getConnectionByID(ctx, connectionID, userID)
	}
	return Connection{ID: connectionID, Status: ConnectionStatusConnected}, nil
}

func (a *stubAdapter) GetConnectionStatus(ctx context.Context, req ConnectionStatusRequest) (Connection, error) {
	a.statusCalls++
	if a.getConnectionStatus != nil {
		return a.getConnectionStatus(ctx, req)
	}
	return Connection{ID: req.ConnectionID, Status: ConnectionStatusConnected}, nil
}

func (a *stubAdapter) AnswerChallenge(ctx context.Context, req AnswerChallengeRequest, jobID string, userID string) (bool, error) {
	if a.answerChallenge != nil {
		return a.answerChallenge(ctx, req, jobID, userID)
	}
	return true, nil
}

func (a *stubAdapter) DeleteConnection(ctx context.Context, connectionID string, userID string) error {
	if a.deleteConnection != nil {
		return a.deleteConnection(ctx, connectionID, userID)
	}
	return nil
}

func (a *stubAdapter) DeleteUser(ctx context.Context, userID string) error {
	if a.deleteUser != nil {
		return a.deleteUser(ctx, userID)
	}
	return nil
}

type stubDataSource struct {
	getAccounts     func(ctx context.Context, req DataRequest) (map[string]any, error)
	getIdentity     func(ctx context.Context, req DataRequest) (map[string]any, error)
	getTransactions func(ctx context.Context, req DataRequest) (map[string]any, error)
}

func (d stubDataSource) GetAccounts(ctx context.Context, req DataRequest) (map[string]any, error) {
	if d.getAccounts != nil {
		return d.getAccounts(ctx, req)
	}
	return map[string]any{"accounts": []any{}}, nil
}

func (d stubDataSource) GetIdentity(ctx context.Context, req DataRequest) (map[string]any, error) {
	if d.getIdentity != nil {
		return d.getIdentity(ctx, req)
	}
	return map[string]any{"customers": []any{}}, nil
}

func (d stubDataSource) GetTransactions(ctx context.Context, req DataRequest) (map[string]any, error) {
	if d.getTransactions != nil {
		return d.getTransactions(ctx, req)
	}
	return map[string]any{"transactions": []any{}}, nil
}

func newTestRegistry(t *testing.T, entries ...AdapterEntry) *AdapterRegistry {
	t.Helper()
	registry := NewAdapterRegistry()
	for _, entry := range entries {
		if err := registry.Register(entry); err != nil {
			t.Fatalf("register adapter: %v", err)
		}
	}
	return registry
}

func newTestService(t *testing.T, options ...Option) *Service {
	t.Helper()
	svc, err := NewService(Config{}, options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

type failingCorrelationStore struct{}

func (failingCorrelationStore) Set(context.Context, PendingCorrelationRecord, time.Duration) error {
	return fmt.Errorf("store write rejected")
}

func (failingCorrelationStore) Get(context.Context, string) (PendingCorrelationRecord, error) {
	return PendingCorrelationRecord{}, fmt.Errorf("%w: unavailable", ErrCorrelationNotFound)
}
