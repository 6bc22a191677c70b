package connect

import (
	"fmt"

	connectcommand "github.com/goliatone/go-connect/command"
	connectquery "github.com/goliatone/go-connect/query"
)

// CommandQueryService is the surface the facade wraps; *core.Service
// satisfies it.
type CommandQueryService interface {
	connectcommand.MutatingService
	connectquery.ReadService
}

type Commands struct {
	CreateConnection   *connectcommand.CreateConnectionCommand
	UpdateConnection   *connectcommand.UpdateConnectionCommand
	AnswerChallenge    *connectcommand.AnswerChallengeCommand
	DeleteConnection   *connectcommand.DeleteConnectionCommand
	DeleteUser         *connectcommand.DeleteUserCommand
	StartWidgetSession *connectcommand.StartWidgetSessionCommand
	ResolveCorrelation *connectcommand.ResolveCorrelationCommand
}

type Queries struct {
	GetConnection              *connectquery.GetConnectionQuery
	GetConnectionStatus        *connectquery.GetConnectionStatusQuery
	ListConnections            *connectquery.ListConnectionsQuery
	ListConnectionCredentials  *connectquery.ListConnectionCredentialsQuery
	GetInstitution             *connectquery.GetInstitutionQuery
	ListInstitutionCredentials *connectquery.ListInstitutionCredentialsQuery
	GetData                    *connectquery.GetDataQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("connect: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateConnection:   connectcommand.NewCreateConnectionCommand(service),
		UpdateConnection:   connectcommand.NewUpdateConnectionCommand(service),
		AnswerChallenge:    connectcommand.NewAnswerChallengeCommand(service),
		DeleteConnection:   connectcommand.NewDeleteConnectionCommand(service),
		DeleteUser:         connectcommand.NewDeleteUserCommand(service),
		StartWidgetSession: connectcommand.NewStartWidgetSessionCommand(service),
		ResolveCorrelation: connectcommand.NewResolveCorrelationCommand(service),
	}
	facade.queries = Queries{
		GetConnection:              connectquery.NewGetConnectionQuery(service),
		GetConnectionStatus:        connectquery.NewGetConnectionStatusQuery(service),
		ListConnections:            connectquery.NewListConnectionsQuery(service),
		ListConnectionCredentials:  connectquery.NewListConnectionCredentialsQuery(service),
		GetInstitution:             connectquery.NewGetInstitutionQuery(service),
		ListInstitutionCredentials: connectquery.NewListInstitutionCredentialsQuery(service),
		GetData:                    connectquery.NewGetDataQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
