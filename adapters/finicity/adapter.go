package finicity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-connect/core"
)

const defaultAggregatorKey = "finicity"

type Customer struct {
	ID       string
	Username string
}

type Account struct {
	ID            string
	CustomerID    string
	InstitutionID string
	Status        string
	OAuthURL      string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ConnectURLRequest struct {
	CustomerID       string
	InstitutionID    string
	CorrelationToken string
	WebhookURL       string
	RedirectURL      string
}

type Institution struct {
	ID       string
	Name     string
	URL      string
	BrandURL string
	OAuth    bool
}

// Client wraps the vendor API behind the adapter; the connect-URL flow is
// the vendor's hosted OAuth experience.
type Client interface {
	ResolveCustomer(ctx context.Context, userID string) (string, bool, error)
	CreateCustomer(ctx context.Context, userID string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	GetInstitution(ctx context.Context, institutionID string) (Institution, error)
	GenerateConnectURL(ctx context.Context, req ConnectURLRequest) (string, error)
	ListAccounts(ctx context.Context, customerID string) ([]Account, error)
	GetAccount(ctx context.Context, accountID string, customerID string) (Account, error)
	DeleteAccount(ctx context.Context, accountID string, customerID string) error
}

type Config struct {
	AggregatorKey   string
	CallbackBaseURL string
	WebhookBaseURL  string
	Client          Client
	TokenGenerator  func() string
}

// Adapter implements the capability contract over the vendor's hosted
// connect flow. Both the browser redirect and the out-of-band webhook can
// resolve the same correlation token; the correlator treats whichever
// arrives as authoritative.
type Adapter struct {
	cfg Config
}

func New(cfg Config) (*Adapter, error) {
	cfg.AggregatorKey = strings.TrimSpace(strings.ToLower(cfg.AggregatorKey))
	if cfg.AggregatorKey == "" {
		cfg.AggregatorKey = defaultAggregatorKey
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("finicity: vendor client is required")
	}
	cfg.CallbackBaseURL = strings.TrimSpace(cfg.CallbackBaseURL)
	cfg.WebhookBaseURL = strings.TrimSpace(cfg.WebhookBaseURL)
	if cfg.TokenGenerator == nil {
		cfg.TokenGenerator = core.GenerateCorrelationToken
	}
	return &Adapter{cfg: cfg}, nil
}

func (a *Adapter) ID() string {
	if a == nil {
		return ""
	}
	return a.cfg.AggregatorKey
}

func (a *Adapter) ResolveUserID(ctx context.Context, userID string, failIfNotFound bool) (string, error) {
	customerID, found, err := a.cfg.Client.ResolveCustomer(ctx, userID)
	if err != nil {
		return "", err
	}
	if found {
		return customerID, nil
	}
	if failIfNotFound {
		return "", fmt.Errorf("%w: %s", core.ErrUserNotResolved, userID)
	}
	return a.cfg.Client.CreateCustomer(ctx, userID)
}

func (a *Adapter) GetInstitutionByID(ctx context.Context, institutionID string) (core.Institution, error) {
	institution, err := a.cfg.Client.GetInstitution(ctx, institutionID)
	if err != nil {
		return core.Institution{}, err
	}
	return core.Institution{
		ID:         institution.ID,
		Name:       institution.Name,
		URL:        institution.URL,
		LogoURL:    institution.BrandURL,
		Aggregator: a.cfg.AggregatorKey,
		OAuth:      institution.OAuth,
	}, nil
}

// ListInstitutionCredentials reports an empty template set: the hosted
// connect flow collects credentials inside the vendor window.
func (a *Adapter) ListInstitutionCredentials(_ context.Context, _ string) ([]core.Credential, error) {
	return []core.Credential{}, nil
}

func (a *Adapter) ListConnections(ctx context.Context, userID string) ([]core.Connection, error) {
	accounts, err := a.cfg.Client.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	connections := make([]core.Connection, 0, len(accounts))
	for _, account := range accounts {
		connections = append(connections, a.connectionFromAccount(account))
	}
	return connections, nil
}

func (a *Adapter) ListConnectionCredentials(_ context.Context, _ string, _ string) ([]core.Credential, error) {
	return []core.Credential{}, nil
}

func (a *Adapter) CreateConnection(ctx context.Context, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
	token := a.cfg.TokenGenerator()
	connectURL, err := a.cfg.Client.GenerateConnectURL(ctx, ConnectURLRequest{
		CustomerID:       userID,
		InstitutionID:    req.InstitutionID,
		CorrelationToken: token,
		WebhookURL:       a.webhookURL(),
		RedirectURL:      a.redirectURL(),
	})
	if err != nil {
		return core.Connection{}, err
	}
	return core.Connection{
		ID:             token,
		Aggregator:     a.cfg.AggregatorKey,
		UserID:         userID,
		InstitutionID:  req.InstitutionID,
		Status:         core.ConnectionStatusPending,
		IsOAuth:        true,
		OAuthWindowURI: connectURL,
	}, nil
}

// UpdateConnection re-issues the hosted connect window for repair flows.
func (a *Adapter) UpdateConnection(ctx context.Context, req core.UpdateConnectionRequest, userID string) (core.Connection, error) {
	account, err := a.cfg.Client.GetAccount(ctx, req.ConnectionID, userID)
	if err != nil {
		return core.Connection{}, err
	}
	token := a.cfg.TokenGenerator()
	connectURL, err := a.cfg.Client.GenerateConnectURL(ctx, ConnectURLRequest{
		CustomerID:       userID,
		InstitutionID:    account.InstitutionID,
		CorrelationToken: token,
		WebhookURL:       a.webhookURL(),
		RedirectURL:      a.redirectURL(),
	})
	if err != nil {
		return core.Connection{}, err
	}
	return core.Connection{
		ID:             token,
		Aggregator:     a.cfg.AggregatorKey,
		UserID:         userID,
		InstitutionID:  account.InstitutionID,
		Status:         core.ConnectionStatusPending,
		IsOAuth:        true,
		OAuthWindowURI: connectURL,
	}, nil
}

func (a *Adapter) GetConnectionByID(ctx context.Context, connectionID string, userID string) (core.Connection, error) {
	account, err := a.cfg.Client.GetAccount(ctx, connectionID, userID)
	if err != nil {
		return core.Connection{}, err
	}
	return a.connectionFromAccount(account), nil
}

func (a *Adapter) GetConnectionStatus(ctx context.Context, req core.ConnectionStatusRequest) (core.Connection, error) {
	return a.GetConnectionByID(ctx, req.ConnectionID, req.UserID)
}

func (a *Adapter) AnswerChallenge(_ context.Context, req core.AnswerChallengeRequest, _ string, _ string) (bool, error) {
	return false, fmt.Errorf("finicity: challenges are handled inside the hosted connect window, connection %s", req.ConnectionID)
}

func (a *Adapter) DeleteConnection(ctx context.Context, connectionID string, userID string) error {
	return a.cfg.Client.DeleteAccount(ctx, connectionID, userID)
}

func (a *Adapter) DeleteUser(ctx context.Context, userID string) error {
	return a.cfg.Client.DeleteCustomer(ctx, userID)
}

func (a *Adapter) connectionFromAccount(account Account) core.Connection {
	status := core.ConnectionStatus(strings.ToUpper(strings.TrimSpace(account.Status)))
	if status == "" {
		status = core.ConnectionStatusCreated
	}
	return core.Connection{
		ID:             account.ID,
		Aggregator:     a.cfg.AggregatorKey,
		UserID:         account.CustomerID,
		InstitutionID:  account.InstitutionID,
		Status:         status,
		IsOAuth:        account.OAuthURL != "",
		OAuthWindowURI: account.OAuthURL,
		ErrorMessage:   account.ErrorMessage,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	}
}

func (a *Adapter) redirectURL() string {
	if a.cfg.CallbackBaseURL == "" {
		return ""
	}
	return strings.TrimRight(a.cfg.CallbackBaseURL, "/") + "/oauth/" + a.cfg.AggregatorKey + "/redirect_from"
}

func (a *Adapter) webhookURL() string {
	base := a.cfg.WebhookBaseURL
	if base == "" {
		base = a.cfg.CallbackBaseURL
	}
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/webhook/" + a.cfg.AggregatorKey
}
