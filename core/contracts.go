package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type CreateConnectionRequest struct {
	InstitutionID string
	Credentials   []Credential
	JobTypes      []string
	Metadata      map[string]any
}

type UpdateConnectionRequest struct {
	ConnectionID string
	JobTypes     []string
	Credentials  []Credential
	Metadata     map[string]any
}

type ConnectionStatusRequest struct {
	ConnectionID        string
	JobID               string
	SingleAccountSelect bool
	UserID              string
}

type AnswerChallengeRequest struct {
	ConnectionID string
	Challenges   []Challenge
}

// DataRequest addresses one normalized data pull through an adapter.
// AccountID, StartTime and EndTime are optional narrowing parameters.
type DataRequest struct {
	Aggregator   string
	ConnectionID string
	UserID       string
	AccountID    string
	StartTime    *time.Time
	EndTime      *time.Time
}

// InboundRequest is an external completion event: a browser redirect or a
// server-to-server webhook from an aggregator.
type InboundRequest struct {
	Aggregator string
	Surface    string
	Query      map[string]string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// InboundResult is what the dispatcher reports back to the HTTP layer.
type InboundResult struct {
	Accepted   bool
	StatusCode int
	Outcome    CorrelationOutcome
	Metadata   map[string]any
}

// CorrelationOutcome is the terminal result an adapter extracts from a
// redirect or webhook payload for one correlation token.
type CorrelationOutcome struct {
	Token        string
	Status       ConnectionStatus
	ConnectionID string
	Reason       string
	Metadata     map[string]any
}

type WidgetSessionRequest struct {
	UserID              string
	JobTypes            []string
	TargetOrigin        string
	Scheme              string
	OAuthReferralSource string
	SessionID           string
	Metadata            map[string]any
}

type WidgetSession struct {
	SessionID           string
	UserID              string
	JobTypes            []string
	TargetOrigin        string
	Scheme              string
	OAuthReferralSource string
}

// Adapter is the capability contract every aggregator module implements.
// Adapters return domain errors; they never format wire responses.
type Adapter interface {
	ID() string

	ResolveUserID(ctx context.Context, userID string, failIfNotFound bool) (string, error)
	GetInstitutionByID(ctx context.Context, institutionID string) (Institution, error)
	ListInstitutionCredentials(ctx context.Context, institutionID string) ([]Credential, error)
	ListConnections(ctx context.Context, userID string) ([]Connection, error)
	ListConnectionCredentials(ctx context.Context, connectionID string, userID string) ([]Credential, error)
	CreateConnection(ctx context.Context, req CreateConnectionRequest, userID string) (Connection, error)
	UpdateConnection(ctx context.Context, req UpdateConnectionRequest, userID string) (Connection, error)
	GetConnectionByID(ctx context.Context, connectionID string, userID string) (Connection, error)
	GetConnectionStatus(ctx context.Context, req ConnectionStatusRequest) (Connection, error)
	AnswerChallenge(ctx context.Context, req AnswerChallengeRequest, jobID string, userID string) (bool, error)
	DeleteConnection(ctx context.Context, connectionID string, userID string) error
	DeleteUser(ctx context.Context, userID string) error
}

// RedirectHandler extracts a correlation outcome from a browser redirect.
type RedirectHandler interface {
	HandleOAuthRedirect(ctx context.Context, req InboundRequest) (CorrelationOutcome, error)
}

// WebhookHandler extracts a correlation outcome from an out-of-band webhook.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, req InboundRequest) (CorrelationOutcome, error)
}

// DataSource serves the normalized data pulls behind the data and
// verifiable-credential endpoints.
type DataSource interface {
	GetAccounts(ctx context.Context, req DataRequest) (map[string]any, error)
	GetIdentity(ctx context.Context, req DataRequest) (map[string]any, error)
	GetTransactions(ctx context.Context, req DataRequest) (map[string]any, error)
}

// AdapterEntry bundles an adapter with its optional redirect/webhook/data
// handlers; one entry per aggregator key in the registry.
type AdapterEntry struct {
	Adapter  Adapter
	Redirect RedirectHandler
	Webhook  WebhookHandler
	Data     DataSource
}

type Registry interface {
	Register(entry AdapterEntry) error
	Get(aggregator string) (AdapterEntry, bool)
	List() []AdapterEntry
}

// CorrelationStore is the only mutable shared resource: get/set by key,
// TTL-capable, never scanned. Values are PendingCorrelationRecords.
type CorrelationStore interface {
	Set(ctx context.Context, record PendingCorrelationRecord, ttl time.Duration) error
	Get(ctx context.Context, token string) (PendingCorrelationRecord, error)
}

// ResolvedUserStore caches widget-user to aggregator-native user id
// mappings, keyed by aggregator plus user id.
type ResolvedUserStore interface {
	Get(ctx context.Context, aggregator string, userID string) (string, bool, error)
	Set(ctx context.Context, aggregator string, userID string, resolvedID string) error
}

// StoreProvider exposes the durable store set a repository factory builds.
type StoreProvider interface {
	CorrelationStore() CorrelationStore
	ResolvedUserStore() ResolvedUserStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// ConnectService is the orchestrator surface consumed by the command,
// query, inbound and transport packages.
type ConnectService interface {
	CreateConnection(ctx context.Context, aggregator string, req CreateConnectionRequest, userID string) (Connection, error)
	UpdateConnection(ctx context.Context, aggregator string, req UpdateConnectionRequest, userID string) (Connection, error)
	GetConnection(ctx context.Context, aggregator string, connectionID string, userID string) (Connection, error)
	GetConnectionStatus(ctx context.Context, aggregator string, req ConnectionStatusRequest) (Connection, error)
	AnswerChallenge(ctx context.Context, aggregator string, req AnswerChallengeRequest, jobID string, userID string) (bool, error)
	ListConnections(ctx context.Context, aggregator string, userID string) ([]Connection, error)
	ListConnectionCredentials(ctx context.Context, aggregator string, connectionID string, userID string) ([]Credential, error)
	GetInstitution(ctx context.Context, aggregator string, institutionID string) (Institution, error)
	ListInstitutionCredentials(ctx context.Context, aggregator string, institutionID string) ([]Credential, error)
	DeleteConnection(ctx context.Context, aggregator string, connectionID string, userID string) error
	DeleteUser(ctx context.Context, aggregator string, userID string) error
	StartWidgetSession(ctx context.Context, req WidgetSessionRequest) (WidgetSession, error)
	ResolveCorrelation(ctx context.Context, outcome CorrelationOutcome) (PendingCorrelationRecord, error)
	GetData(ctx context.Context, kind DataKind, req DataRequest) (map[string]any, error)
}

// DataKind names one of the normalized data products.
type DataKind string

const (
	DataKindAccounts     DataKind = "accounts"
	DataKindIdentity     DataKind = "identity"
	DataKindTransactions DataKind = "transactions"
)
