package query

import (
	"context"

	"github.com/goliatone/go-connect/core"
)

// ReadService is the subset of the connect orchestrator the query layer
// consumes.
type ReadService interface {
	GetConnection(ctx context.Context, aggregator string, connectionID string, userID string) (core.Connection, error)
	GetConnectionStatus(ctx context.Context, aggregator string, req core.ConnectionStatusRequest) (core.Connection, error)
	ListConnections(ctx context.Context, aggregator string, userID string) ([]core.Connection, error)
	ListConnectionCredentials(ctx context.Context, aggregator string, connectionID string, userID string) ([]core.Credential, error)
	GetInstitution(ctx context.Context, aggregator string, institutionID string) (core.Institution, error)
	ListInstitutionCredentials(ctx context.Context, aggregator string, institutionID string) ([]core.Credential, error)
	GetData(ctx context.Context, kind core.DataKind, req core.DataRequest) (map[string]any, error)
}

type GetConnectionQuery struct {
	service ReadService
}

func NewGetConnectionQuery(service ReadService) *GetConnectionQuery {
	return &GetConnectionQuery{service: service}
}

func (q *GetConnectionQuery) Query(ctx context.Context, msg GetConnectionMessage) (core.Connection, error) {
	if q == nil || q.service == nil {
		return core.Connection{}, queryDependencyError("query: connect service is required")
	}
	return q.service.GetConnection(ctx, msg.Aggregator, msg.ConnectionID, msg.UserID)
}

type GetConnectionStatusQuery struct {
	service ReadService
}

func NewGetConnectionStatusQuery(service ReadService) *GetConnectionStatusQuery {
	return &GetConnectionStatusQuery{service: service}
}

func (q *GetConnectionStatusQuery) Query(ctx context.Context, msg GetConnectionStatusMessage) (core.Connection, error) {
	if q == nil || q.service == nil {
		return core.Connection{}, queryDependencyError("query: connect service is required")
	}
	return q.service.GetConnectionStatus(ctx, msg.Aggregator, msg.Request)
}

type ListConnectionsQuery struct {
	service ReadService
}

func NewListConnectionsQuery(service ReadService) *ListConnectionsQuery {
	return &ListConnectionsQuery{service: service}
}

func (q *ListConnectionsQuery) Query(ctx context.Context, msg ListConnectionsMessage) ([]core.Connection, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: connect service is required")
	}
	return q.service.ListConnections(ctx, msg.Aggregator, msg.UserID)
}

type ListConnectionCredentialsQuery struct {
	service ReadService
}

func NewListConnectionCredentialsQuery(service ReadService) *ListConnectionCredentialsQuery {
	return &ListConnectionCredentialsQuery{service: service}
}

func (q *ListConnectionCredentialsQuery) Query(ctx context.Context, msg ListConnectionCredentialsMessage) ([]core.Credential, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: connect service is required")
	}
	return q.service.ListConnectionCredentials(ctx, msg.Aggregator, msg.ConnectionID, msg.UserID)
}

type GetInstitutionQuery struct {
	service ReadService
}

func NewGetInstitutionQuery(service ReadService) *GetInstitutionQuery {
	return &GetInstitutionQuery{service: service}
}

func (q *GetInstitutionQuery) Query(ctx context.Context, msg GetInstitutionMessage) (core.Institution, error) {
	if q == nil || q.service == nil {
		return core.Institution{}, queryDependencyError("query: connect service is required")
	}
	return q.service.GetInstitution(ctx, msg.Aggregator, msg.InstitutionID)
}

type ListInstitutionCredentialsQuery struct {
	service ReadService
}

func NewListInstitutionCredentialsQuery(service ReadService) *ListInstitutionCredentialsQuery {
	return &ListInstitutionCredentialsQuery{service: service}
}

func (q *ListInstitutionCredentialsQuery) Query(ctx context.Context, msg ListInstitutionCredentialsMessage) ([]core.Credential, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: connect service is required")
	}
	return q.service.ListInstitutionCredentials(ctx, msg.Aggregator, msg.InstitutionID)
}

type GetDataQuery struct {
	service ReadService
}

func NewGetDataQuery(service ReadService) *GetDataQuery {
	return &GetDataQuery{service: service}
}

func (q *GetDataQuery) Query(ctx context.Context, msg GetDataMessage) (map[string]any, error) {
	if q == nil || q.service == nil {
		return nil, queryDependencyError("query: connect service is required")
	}
	return q.service.GetData(ctx, msg.Kind, msg.Request)
}
