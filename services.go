package connect

import "github.com/goliatone/go-connect/core"

type Config = core.Config

type OAuthConfig = core.OAuthConfig

type WidgetConfig = core.WidgetConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type Registry = core.Registry
type CorrelationStore = core.CorrelationStore
type ResolvedUserStore = core.ResolvedUserStore
type AdapterEntry = core.AdapterEntry
type Adapter = core.Adapter
type RedirectHandler = core.RedirectHandler
type WebhookHandler = core.WebhookHandler
type DataSource = core.DataSource

type CreateConnectionRequest = core.CreateConnectionRequest
type UpdateConnectionRequest = core.UpdateConnectionRequest

type ConnectionStatusRequest = core.ConnectionStatusRequest

type AnswerChallengeRequest = core.AnswerChallengeRequest

type WidgetSessionRequest = core.WidgetSessionRequest

type DataRequest = core.DataRequest

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithRegistry          = core.WithRegistry
	WithCorrelationStore  = core.WithCorrelationStore
	WithResolvedUserStore = core.WithResolvedUserStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
