package testbank

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-connect/core"
)

const (
	defaultAggregatorKey = "testbank"

	// InstitutionCredentials is the fixed institution for the credential
	// flow; InstitutionOAuth drives the oauth window flow.
	InstitutionCredentials = "testbank"
	InstitutionOAuth       = "testbank_oauth"

	// Magic credential values steer the deterministic outcomes.
	PasswordChallenge = "challenge"
	PasswordDenied    = "denied"
	PasswordError     = "error"
)

// Adapter is a fully in-memory deterministic aggregator used by tests and
// local widget development. It is registered in place of a live adapter by
// configuration.
type Adapter struct {
	aggregatorKey string
	oauthBaseURL  string
	now           func() time.Time

	mu          sync.Mutex
	users       map[string]string
	connections map[string]*core.Connection
	sequence    int
}

type Config struct {
	AggregatorKey string
	OAuthBaseURL  string
	Now           func() time.Time
}

func New(cfg Config) *Adapter {
	key := strings.TrimSpace(strings.ToLower(cfg.AggregatorKey))
	if key == "" {
		key = defaultAggregatorKey
	}
	base := strings.TrimSpace(cfg.OAuthBaseURL)
	if base == "" {
		base = "https://testbank.localhost/oauth/authorize"
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Adapter{
		aggregatorKey: key,
		oauthBaseURL:  base,
		now:           now,
		users:         map[string]string{},
		connections:   map[string]*core.Connection{},
	}
}

func (a *Adapter) ID() string { return a.aggregatorKey }

func (a *Adapter) ResolveUserID(_ context.Context, userID string, failIfNotFound bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if resolved, ok := a.users[userID]; ok {
		return resolved, nil
	}
	if failIfNotFound {
		return "", fmt.Errorf("%w: %s", core.ErrUserNotResolved, userID)
	}
	resolved := "tb-" + userID
	a.users[userID] = resolved
	return resolved, nil
}

func (a *Adapter) GetInstitutionByID(_ context.Context, institutionID string) (core.Institution, error) {
	switch institutionID {
	case InstitutionCredentials:
		return core.Institution{
			ID: InstitutionCredentials, Name: "Test Bank", Aggregator: a.aggregatorKey,
		}, nil
	case InstitutionOAuth:
		return core.Institution{
			ID: InstitutionOAuth, Name: "Test Bank (OAuth)", Aggregator: a.aggregatorKey, OAuth: true,
		}, nil
	default:
		return core.Institution{}, fmt.Errorf("testbank: institution %q not found", institutionID)
	}
}

func (a *Adapter) ListInstitutionCredentials(_ context.Context, institutionID string) ([]core.Credential, error) {
	if institutionID == InstitutionOAuth {
		return []core.Credential{}, nil
	}
	return []core.Credential{
		{ID: "tb-username", Label: "Username", FieldName: "username", FieldType: "text"},
		{ID: "tb-password", Label: "Password", FieldName: "password", FieldType: "password"},
	}, nil
}

func (a *Adapter) ListConnections(_ context.Context, userID string) ([]core.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	connections := []core.Connection{}
	for _, connection := range a.connections {
		if connection.UserID == userID {
			connections = append(connections, *connection)
		}
	}
	return connections, nil
}

func (a *Adapter) ListConnectionCredentials(_ context.Context, connectionID string, _ string) ([]core.Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.connections[connectionID]; !ok {
		return nil, fmt.Errorf("testbank: connection %q not found", connectionID)
	}
	return []core.Credential{
		{ID: "tb-username", Label: "Username", FieldName: "username", FieldType: "text"},
	}, nil
}

func (a *Adapter) CreateConnection(_ context.Context, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequence++
	id := fmt.Sprintf("tb-conn-%d", a.sequence)

	connection := &core.Connection{
		ID:            id,
		Aggregator:    a.aggregatorKey,
		UserID:        userID,
		InstitutionID: req.InstitutionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.InstitutionID == InstitutionOAuth {
		connection.IsOAuth = true
		connection.Status = core.ConnectionStatusPending
		connection.OAuthWindowURI = a.oauthBaseURL + "?state=" + id
		a.connections[id] = connection
		return *connection, nil
	}

	switch passwordValue(req.Credentials) {
	case PasswordChallenge:
		connection.Status = core.ConnectionStatusChallenged
		connection.Challenges = []core.Challenge{{
			ID:       "tb-mfa",
			Type:     core.ChallengeTypeToken,
			Question: "Enter the one-time code",
		}}
	case PasswordDenied:
		connection.Status = core.ConnectionStatusDenied
		connection.ErrorMessage = "invalid credentials"
	case PasswordError:
		return core.Connection{}, fmt.Errorf("testbank: simulated upstream failure")
	default:
		connection.Status = core.ConnectionStatusConnected
	}
	a.connections[id] = connection
	return *connection, nil
}

func (a *Adapter) UpdateConnection(_ context.Context, req core.UpdateConnectionRequest, _ string) (core.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	connection, ok := a.connections[req.ConnectionID]
	if !ok {
		return core.Connection{}, fmt.Errorf("testbank: connection %q not found", req.ConnectionID)
	}
	connection.UpdatedAt = a.now()
	return *connection, nil
}

func (a *Adapter) GetConnectionByID(_ context.Context, connectionID string, _ string) (core.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	connection, ok := a.connections[connectionID]
	if !ok {
		return core.Connection{}, fmt.Errorf("testbank: connection %q not found", connectionID)
	}
	return *connection, nil
}

func (a *Adapter) GetConnectionStatus(ctx context.Context, req core.ConnectionStatusRequest) (core.Connection, error) {
	return a.GetConnectionByID(ctx, req.ConnectionID, req.UserID)
}

func (a *Adapter) AnswerChallenge(_ context.Context, req core.AnswerChallengeRequest, _ string, _ string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	connection, ok := a.connections[req.ConnectionID]
	if !ok {
		return false, fmt.Errorf("testbank: connection %q not found", req.ConnectionID)
	}
	if connection.Status != core.ConnectionStatusChallenged {
		return false, fmt.Errorf("testbank: connection %q has no outstanding challenge", req.ConnectionID)
	}
	for _, challenge := range req.Challenges {
		if err := challenge.ValidateResponse(challenge.Response); err != nil {
			return false, err
		}
	}
	connection.Status = core.ConnectionStatusConnected
	connection.Challenges = nil
	connection.ErrorMessage = ""
	connection.UpdatedAt = a.now()
	return true, nil
}

func (a *Adapter) DeleteConnection(_ context.Context, connectionID string, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.connections[connectionID]; !ok {
		return fmt.Errorf("testbank: connection %q not found", connectionID)
	}
	delete(a.connections, connectionID)
	return nil
}

func (a *Adapter) DeleteUser(_ context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for widgetID, resolved := range a.users {
		if resolved == userID {
			delete(a.users, widgetID)
		}
	}
	for id, connection := range a.connections {
		if connection.UserID == userID {
			delete(a.connections, id)
		}
	}
	return nil
}

// CompleteOAuth marks a pending oauth connection terminal; the inbound
// redirect/webhook handlers below call it so local flows behave like the
// live ones.
func (a *Adapter) CompleteOAuth(connectionID string, status core.ConnectionStatus, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	connection, ok := a.connections[connectionID]
	if !ok {
		return fmt.Errorf("testbank: connection %q not found", connectionID)
	}
	connection.Status = status
	connection.ErrorMessage = strings.TrimSpace(reason)
	if status == core.ConnectionStatusConnected {
		connection.OAuthWindowURI = ""
		connection.ErrorMessage = ""
	}
	connection.UpdatedAt = a.now()
	return nil
}

func passwordValue(credentials []core.Credential) string {
	for _, credential := range credentials {
		if credential.FieldName == "password" {
			return strings.TrimSpace(strings.ToLower(credential.Value))
		}
	}
	return ""
}
