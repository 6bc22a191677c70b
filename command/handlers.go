package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-connect/core"
)

// MutatingService is the subset of the connect orchestrator the command
// layer drives.
type MutatingService interface {
	CreateConnection(ctx context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error)
	UpdateConnection(ctx context.Context, aggregator string, req core.UpdateConnectionRequest, userID string) (core.Connection, error)
	AnswerChallenge(ctx context.Context, aggregator string, req core.AnswerChallengeRequest, jobID string, userID string) (bool, error)
	DeleteConnection(ctx context.Context, aggregator string, connectionID string, userID string) error
	DeleteUser(ctx context.Context, aggregator string, userID string) error
	StartWidgetSession(ctx context.Context, req core.WidgetSessionRequest) (core.WidgetSession, error)
	ResolveCorrelation(ctx context.Context, outcome core.CorrelationOutcome) (core.PendingCorrelationRecord, error)
}

type CreateConnectionCommand struct {
	service MutatingService
}

func NewCreateConnectionCommand(service MutatingService) *CreateConnectionCommand {
	return &CreateConnectionCommand{service: service}
}

func (c *CreateConnectionCommand) Execute(ctx context.Context, msg CreateConnectionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	out, err := c.service.CreateConnection(ctx, msg.Aggregator, msg.Request, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateConnectionCommand struct {
	service MutatingService
}

func NewUpdateConnectionCommand(service MutatingService) *UpdateConnectionCommand {
	return &UpdateConnectionCommand{service: service}
}

func (c *UpdateConnectionCommand) Execute(ctx context.Context, msg UpdateConnectionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	out, err := c.service.UpdateConnection(ctx, msg.Aggregator, msg.Request, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AnswerChallengeCommand struct {
	service MutatingService
}

func NewAnswerChallengeCommand(service MutatingService) *AnswerChallengeCommand {
	return &AnswerChallengeCommand{service: service}
}

func (c *AnswerChallengeCommand) Execute(ctx context.Context, msg AnswerChallengeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: challenge service is required")
	}
	out, err := c.service.AnswerChallenge(ctx, msg.Aggregator, msg.Request, msg.JobID, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteConnectionCommand struct {
	service MutatingService
}

func NewDeleteConnectionCommand(service MutatingService) *DeleteConnectionCommand {
	return &DeleteConnectionCommand{service: service}
}

func (c *DeleteConnectionCommand) Execute(ctx context.Context, msg DeleteConnectionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	return c.service.DeleteConnection(ctx, msg.Aggregator, msg.ConnectionID, msg.UserID)
}

type DeleteUserCommand struct {
	service MutatingService
}

func NewDeleteUserCommand(service MutatingService) *DeleteUserCommand {
	return &DeleteUserCommand{service: service}
}

func (c *DeleteUserCommand) Execute(ctx context.Context, msg DeleteUserMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	return c.service.DeleteUser(ctx, msg.Aggregator, msg.UserID)
}

type StartWidgetSessionCommand struct {
	service MutatingService
}

func NewStartWidgetSessionCommand(service MutatingService) *StartWidgetSessionCommand {
	return &StartWidgetSessionCommand{service: service}
}

func (c *StartWidgetSessionCommand) Execute(ctx context.Context, msg StartWidgetSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: widget session service is required")
	}
	out, err := c.service.StartWidgetSession(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResolveCorrelationCommand struct {
	service MutatingService
}

func NewResolveCorrelationCommand(service MutatingService) *ResolveCorrelationCommand {
	return &ResolveCorrelationCommand{service: service}
}

func (c *ResolveCorrelationCommand) Execute(ctx context.Context, msg ResolveCorrelationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: correlation service is required")
	}
	out, err := c.service.ResolveCorrelation(ctx, msg.Outcome)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
