package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service is the connect orchestrator: it resolves the adapter for an
// aggregator key, memoizes user resolution, maps the public job-type
// vocabulary, dispatches, and normalizes errors. It also runs the
// OAuth/webhook correlation protocol on top of the correlation store.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	registry          Registry
	correlationStore  CorrelationStore
	resolvedUserStore ResolvedUserStore
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Registry          Registry
	CorrelationStore  CorrelationStore
	ResolvedUserStore ResolvedUserStore
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("connect", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connect"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewAdapterRegistry()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.correlationStore == nil || builder.resolvedUserStore == nil) && builder.repositoryFactory != nil {
		var storeProvider StoreProvider
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			storeProvider = built
		} else if direct, ok := builder.repositoryFactory.(StoreProvider); ok {
			storeProvider = direct
		}
		if storeProvider != nil {
			if builder.correlationStore == nil {
				builder.correlationStore = storeProvider.CorrelationStore()
			}
			if builder.resolvedUserStore == nil {
				builder.resolvedUserStore = storeProvider.ResolvedUserStore()
			}
		}
	}
	if builder.correlationStore == nil {
		builder.correlationStore = NewMemoryCorrelationStore(finalConfig.CorrelationTTL())
	}
	if builder.resolvedUserStore == nil {
		builder.resolvedUserStore = NewMemoryResolvedUserStore()
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		registry:          builder.registry,
		correlationStore:  builder.correlationStore,
		resolvedUserStore: builder.resolvedUserStore,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Registry:          s.registry,
		CorrelationStore:  s.correlationStore,
		ResolvedUserStore: s.resolvedUserStore,
	}
}

// CreateConnection dispatches to the aggregator's adapter. When the adapter
// starts an OAuth flow the pending correlation record is persisted before
// the connection is returned, so a completion event arriving before the
// caller sees the response still finds its record.
func (s *Service) CreateConnection(
	ctx context.Context,
	aggregator string,
	req CreateConnectionRequest,
	userID string,
) (connection Connection, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator":     aggregator,
		"user_id":        userID,
		"institution_id": req.InstitutionID,
	}
	defer func() {
		if connection.ID != "" {
			fields["connection_id"] = connection.ID
		}
		s.observeOperation(ctx, startedAt, "create_connection", err, fields)
	}()

	if strings.TrimSpace(req.InstitutionID) == "" {
		err = s.mapError(fmt.Errorf("core: institution id is required"))
		return Connection{}, err
	}
	jobTypes := req.JobTypes
	if len(jobTypes) == 0 {
		jobTypes = append([]string(nil), s.config.Widget.DefaultJobTypes...)
	}
	if _, err = MapJobTypes(jobTypes); err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	req.JobTypes = jobTypes

	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return Connection{}, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}

	connection, err = entry.Adapter.CreateConnection(ctx, req, resolvedUser)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	connection.Aggregator = strings.TrimSpace(aggregator)
	connection.UserID = userID

	if connection.IsOAuth && connection.Status == ConnectionStatusPending {
		record := PendingCorrelationRecord{
			Token:          connection.ID,
			Aggregator:     connection.Aggregator,
			UserID:         userID,
			JobTypes:       append([]string(nil), req.JobTypes...),
			OAuthWindowURI: connection.OAuthWindowURI,
			Metadata:       copyAnyMap(req.Metadata),
			CreatedAt:      time.Now().UTC(),
		}
		applyWidgetSessionMetadata(&record, req.Metadata)
		if saveErr := s.correlationStore.Set(ctx, record, s.config.CorrelationTTL()); saveErr != nil {
			err = s.mapError(saveErr)
			return Connection{}, err
		}
	}

	return connection, nil
}

func (s *Service) UpdateConnection(
	ctx context.Context,
	aggregator string,
	req UpdateConnectionRequest,
	userID string,
) (connection Connection, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator":    aggregator,
		"user_id":       userID,
		"connection_id": req.ConnectionID,
	}
	if len(req.JobTypes) > 0 {
		fields["job_type"] = strings.Join(req.JobTypes, ",")
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "update_connection", err, fields)
	}()

	if strings.TrimSpace(req.ConnectionID) == "" {
		err = s.mapError(fmt.Errorf("core: connection id is required"))
		return Connection{}, err
	}
	if len(req.JobTypes) > 0 {
		if _, err = MapJobTypes(req.JobTypes); err != nil {
			err = s.mapError(err)
			return Connection{}, err
		}
	}

	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return Connection{}, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}

	connection, err = entry.Adapter.UpdateConnection(ctx, req, resolvedUser)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	connection.Aggregator = strings.TrimSpace(aggregator)
	connection.UserID = userID

	if connection.IsOAuth && connection.Status == ConnectionStatusPending && connection.OAuthWindowURI != "" {
		record := PendingCorrelationRecord{
			Token:          connection.ID,
			Aggregator:     connection.Aggregator,
			UserID:         userID,
			JobTypes:       append([]string(nil), req.JobTypes...),
			OAuthWindowURI: connection.OAuthWindowURI,
			Metadata:       copyAnyMap(req.Metadata),
			CreatedAt:      time.Now().UTC(),
		}
		applyWidgetSessionMetadata(&record, req.Metadata)
		if saveErr := s.correlationStore.Set(ctx, record, s.config.CorrelationTTL()); saveErr != nil {
			err = s.mapError(saveErr)
			return Connection{}, err
		}
	}

	return connection, nil
}

func (s *Service) GetConnection(
	ctx context.Context,
	aggregator string,
	connectionID string,
	userID string,
) (Connection, error) {
	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return Connection{}, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		return Connection{}, s.mapError(err)
	}
	connection, err := entry.Adapter.GetConnectionByID(ctx, connectionID, resolvedUser)
	if err != nil {
		return Connection{}, s.mapError(err)
	}
	connection.Aggregator = strings.TrimSpace(aggregator)
	connection.UserID = userID
	return connection, nil
}

// GetConnectionStatus observes the current state of a connection. While an
// OAuth flow is in flight the correlation record answers the poll; once the
// record resolves, the terminal outcome is reported. Everything else goes
// to the adapter.
func (s *Service) GetConnectionStatus(
	ctx context.Context,
	aggregator string,
	req ConnectionStatusRequest,
) (connection Connection, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator":    aggregator,
		"user_id":       req.UserID,
		"connection_id": req.ConnectionID,
	}
	defer func() {
		fields["status"] = string(connection.Status)
		s.observeOperation(ctx, startedAt, "get_connection_status", err, fields)
	}()

	if strings.TrimSpace(req.ConnectionID) == "" {
		err = s.mapError(fmt.Errorf("core: connection id is required"))
		return Connection{}, err
	}

	if record, recordErr := s.correlationStore.Get(ctx, req.ConnectionID); recordErr == nil {
		connection = connectionFromCorrelation(record, req.UserID)
		return connection, nil
	}

	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return Connection{}, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, req.UserID, false)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	statusReq := req
	statusReq.UserID = resolvedUser
	connection, err = entry.Adapter.GetConnectionStatus(ctx, statusReq)
	if err != nil {
		err = s.mapError(err)
		return Connection{}, err
	}
	connection.Aggregator = strings.TrimSpace(aggregator)
	connection.UserID = req.UserID
	return connection, nil
}

func (s *Service) AnswerChallenge(
	ctx context.Context,
	aggregator string,
	req AnswerChallengeRequest,
	jobID string,
	userID string,
) (answered bool, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator":    aggregator,
		"user_id":       userID,
		"connection_id": req.ConnectionID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "answer_challenge", err, fields)
	}()

	if len(req.Challenges) == 0 {
		err = s.mapError(fmt.Errorf("core: at least one challenge response is required"))
		return false, err
	}
	for _, challenge := range req.Challenges {
		if validateErr := challenge.ValidateResponse(challenge.Response); validateErr != nil {
			err = s.mapError(validateErr)
			return false, err
		}
	}

	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return false, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		err = s.mapError(err)
		return false, err
	}
	answered, err = entry.Adapter.AnswerChallenge(ctx, req, jobID, resolvedUser)
	if err != nil {
		err = s.mapError(err)
		return false, err
	}
	return answered, nil
}

func (s *Service) ListConnections(ctx context.Context, aggregator string, userID string) ([]Connection, error) {
	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return nil, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		return nil, s.mapError(err)
	}
	connections, err := entry.Adapter.ListConnections(ctx, resolvedUser)
	if err != nil {
		return nil, s.mapError(err)
	}
	for i := range connections {
		connections[i].Aggregator = strings.TrimSpace(aggregator)
		connections[i].UserID = userID
	}
	return connections, nil
}

func (s *Service) ListConnectionCredentials(
	ctx context.Context,
	aggregator string,
	connectionID string,
	userID string,
) ([]Credential, error) {
	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return nil, err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		return nil, s.mapError(err)
	}
	credentials, err := entry.Adapter.ListConnectionCredentials(ctx, connectionID, resolvedUser)
	if err != nil {
		return nil, s.mapError(err)
	}
	return credentials, nil
}

func (s *Service) GetInstitution(ctx context.Context, aggregator string, institutionID string) (Institution, error) {
	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return Institution{}, err
	}
	institution, err := entry.Adapter.GetInstitutionByID(ctx, institutionID)
	if err != nil {
		return Institution{}, s.mapError(err)
	}
	return institution, nil
}

func (s *Service) ListInstitutionCredentials(
	ctx context.Context,
	aggregator string,
	institutionID string,
) ([]Credential, error) {
	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return nil, err
	}
	credentials, err := entry.Adapter.ListInstitutionCredentials(ctx, institutionID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return credentials, nil
}

func (s *Service) DeleteConnection(ctx context.Context, aggregator string, connectionID string, userID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator":    aggregator,
		"user_id":       userID,
		"connection_id": connectionID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_connection", err, fields)
	}()

	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, false)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if err = entry.Adapter.DeleteConnection(ctx, connectionID, resolvedUser); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, aggregator string, userID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator": aggregator,
		"user_id":    userID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_user", err, fields)
	}()

	entry, err := s.resolveAdapter(aggregator)
	if err != nil {
		return err
	}
	resolvedUser, err := s.resolveUser(ctx, aggregator, entry.Adapter, userID, true)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if err = entry.Adapter.DeleteUser(ctx, resolvedUser); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// StartWidgetSession validates and normalizes the widget session context
// that later rides along on the correlation record.
func (s *Service) StartWidgetSession(ctx context.Context, req WidgetSessionRequest) (session WidgetSession, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"user_id": req.UserID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "start_widget_session", err, fields)
	}()

	if strings.TrimSpace(req.TargetOrigin) == "" {
		err = s.mapError(goerrors.New("core: targetOrigin is required", goerrors.CategoryValidation).
			WithTextCode(ConnectErrorBadInput))
		return WidgetSession{}, err
	}
	jobTypes := req.JobTypes
	if len(jobTypes) == 0 {
		jobTypes = append([]string(nil), s.config.Widget.DefaultJobTypes...)
	}
	if _, err = MapJobTypes(jobTypes); err != nil {
		err = s.mapError(err)
		return WidgetSession{}, err
	}
	scheme := strings.TrimSpace(req.Scheme)
	if scheme == "" {
		scheme = s.config.Widget.Scheme
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session = WidgetSession{
		SessionID:           sessionID,
		UserID:              req.UserID,
		JobTypes:            jobTypes,
		TargetOrigin:        strings.TrimSpace(req.TargetOrigin),
		Scheme:              scheme,
		OAuthReferralSource: strings.TrimSpace(req.OAuthReferralSource),
	}
	return session, nil
}

// ResolveCorrelation is the single mutation both the redirect and webhook
// paths converge on. The record is read, mutated to its terminal outcome
// and written back; a second delivery for an already-terminal record is an
// idempotent overwrite (last write wins). Unknown tokens report
// ErrCorrelationNotFound and never panic.
func (s *Service) ResolveCorrelation(ctx context.Context, outcome CorrelationOutcome) (record PendingCorrelationRecord, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"token":  outcome.Token,
		"status": string(outcome.Status),
	}
	defer func() {
		if record.Aggregator != "" {
			fields["aggregator"] = record.Aggregator
		}
		s.observeOperation(ctx, startedAt, "resolve_correlation", err, fields)
	}()

	token := strings.TrimSpace(outcome.Token)
	if token == "" {
		err = s.mapError(fmt.Errorf("core: correlation token is required"))
		return PendingCorrelationRecord{}, err
	}
	record, err = s.correlationStore.Get(ctx, token)
	if err != nil {
		err = s.mapError(err)
		return PendingCorrelationRecord{}, err
	}

	status := outcome.Status
	if status == "" {
		status = ConnectionStatusFailed
	}
	record.Resolved = true
	record.FinalStatus = status
	record.ResolvedConnectionID = strings.TrimSpace(outcome.ConnectionID)
	record.ErrorReason = strings.TrimSpace(outcome.Reason)
	record.ResolvedAt = time.Now().UTC()
	if record.ResolvedConnectionID == "" {
		record.ResolvedConnectionID = token
	}

	if saveErr := s.correlationStore.Set(ctx, record, s.config.CorrelationTTL()); saveErr != nil {
		err = s.mapError(saveErr)
		return PendingCorrelationRecord{}, err
	}
	return record, nil
}

// GetData serves the normalized data pulls behind the data and VC
// endpoints. Adapter failures collapse to the mapped 400; no partial
// results.
func (s *Service) GetData(ctx context.Context, kind DataKind, req DataRequest) (payload map[string]any, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"aggregator":    req.Aggregator,
		"user_id":       req.UserID,
		"connection_id": req.ConnectionID,
		"data_kind":     string(kind),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_data", err, fields)
	}()

	entry, err := s.resolveAdapter(req.Aggregator)
	if err != nil {
		return nil, err
	}
	if entry.Data == nil {
		wrapped := s.errorFactory(
			fmt.Sprintf("aggregator %q does not serve %s data", req.Aggregator, kind),
			goerrors.CategoryOperation,
		).WithTextCode(ConnectErrorUpstreamFailed)
		err = wrapped.WithMetadata(map[string]any{"aggregator": req.Aggregator, "data_kind": string(kind)})
		return nil, err
	}
	resolvedUser, err := s.resolveUser(ctx, req.Aggregator, entry.Adapter, req.UserID, false)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	dataReq := req
	dataReq.UserID = resolvedUser

	switch kind {
	case DataKindAccounts:
		payload, err = entry.Data.GetAccounts(ctx, dataReq)
	case DataKindIdentity:
		payload, err = entry.Data.GetIdentity(ctx, dataReq)
	case DataKindTransactions:
		payload, err = entry.Data.GetTransactions(ctx, dataReq)
	default:
		err = fmt.Errorf("core: invalid data kind %q", kind)
	}
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return payload, nil
}

func (s *Service) resolveAdapter(aggregator string) (AdapterEntry, error) {
	if s == nil || s.registry == nil {
		return AdapterEntry{}, s.mapError(fmt.Errorf("core: registry unavailable"))
	}
	aggregator = strings.TrimSpace(aggregator)
	entry, ok := s.registry.Get(aggregator)
	if ok {
		return entry, nil
	}
	wrapped := s.errorFactory(
		fmt.Sprintf("aggregator %q is not registered", aggregator),
		goerrors.CategoryNotFound,
	).WithTextCode(ConnectErrorAggregatorNotFound)
	return AdapterEntry{}, wrapped.WithMetadata(map[string]any{"aggregator": aggregator})
}

// resolveUser runs ResolveUserID at most once per aggregator+user pair,
// memoizing the mapping in the resolved-user store.
func (s *Service) resolveUser(
	ctx context.Context,
	aggregator string,
	adapter Adapter,
	userID string,
	failIfNotFound bool,
) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("core: user id is required")
	}
	if s.resolvedUserStore != nil {
		if cached, ok, err := s.resolvedUserStore.Get(ctx, aggregator, userID); err == nil && ok {
			return cached, nil
		}
	}
	resolved, err := adapter.ResolveUserID(ctx, userID, failIfNotFound)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resolved) == "" {
		resolved = userID
	}
	if s.resolvedUserStore != nil {
		_ = s.resolvedUserStore.Set(ctx, aggregator, userID, resolved)
	}
	return resolved, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// connectionFromCorrelation projects a correlation record onto the
// connection snapshot a status poll observes.
func connectionFromCorrelation(record PendingCorrelationRecord, userID string) Connection {
	connection := Connection{
		ID:         record.Token,
		Aggregator: record.Aggregator,
		UserID:     userID,
		IsOAuth:    true,
		Status:     ConnectionStatusPending,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.CreatedAt,
	}
	if userID == "" {
		connection.UserID = record.UserID
	}
	if !record.Resolved {
		connection.OAuthWindowURI = record.OAuthWindowURI
		return connection
	}
	connection.Status = record.FinalStatus
	connection.ID = record.ResolvedConnectionID
	connection.ErrorMessage = record.ErrorReason
	connection.UpdatedAt = record.ResolvedAt
	connection.OAuthWindowURI = ""
	return connection
}

func applyWidgetSessionMetadata(record *PendingCorrelationRecord, metadata map[string]any) {
	if record == nil || metadata == nil {
		return
	}
	if value, ok := metadata["session_id"].(string); ok {
		record.SessionID = strings.TrimSpace(value)
	}
	if value, ok := metadata["target_origin"].(string); ok {
		record.TargetOrigin = strings.TrimSpace(value)
	}
	if value, ok := metadata["scheme"].(string); ok {
		record.Scheme = strings.TrimSpace(value)
	}
	if value, ok := metadata["oauth_referral_source"].(string); ok {
		record.OAuthReferralSource = strings.TrimSpace(value)
	}
}
