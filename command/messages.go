package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-connect/core"
)

const (
	TypeCreateConnection   = "connect.command.connection.create"
	TypeUpdateConnection   = "connect.command.connection.update"
	TypeAnswerChallenge    = "connect.command.challenge.answer"
	TypeDeleteConnection   = "connect.command.connection.delete"
	TypeDeleteUser         = "connect.command.user.delete"
	TypeStartWidgetSession = "connect.command.widget_session.start"
	TypeResolveCorrelation = "connect.command.correlation.resolve"
)

type CreateConnectionMessage struct {
	Aggregator string
	UserID     string
	Request    core.CreateConnectionRequest
}

func (CreateConnectionMessage) Type() string { return TypeCreateConnection }

func (m CreateConnectionMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.InstitutionID) == "" {
		return fmt.Errorf("command: institution id is required")
	}
	return nil
}

type UpdateConnectionMessage struct {
	Aggregator string
	UserID     string
	Request    core.UpdateConnectionRequest
}

func (UpdateConnectionMessage) Type() string { return TypeUpdateConnection }

func (m UpdateConnectionMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.ConnectionID) == "" {
		return fmt.Errorf("command: connection id is required")
	}
	return nil
}

type AnswerChallengeMessage struct {
	Aggregator string
	UserID     string
	JobID      string
	Request    core.AnswerChallengeRequest
}

func (AnswerChallengeMessage) Type() string { return TypeAnswerChallenge }

func (m AnswerChallengeMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.ConnectionID) == "" {
		return fmt.Errorf("command: connection id is required")
	}
	if len(m.Request.Challenges) == 0 {
		return fmt.Errorf("command: at least one challenge response is required")
	}
	return nil
}

type DeleteConnectionMessage struct {
	Aggregator   string
	UserID       string
	ConnectionID string
}

func (DeleteConnectionMessage) Type() string { return TypeDeleteConnection }

func (m DeleteConnectionMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.ConnectionID) == "" {
		return fmt.Errorf("command: connection id is required")
	}
	return nil
}

type DeleteUserMessage struct {
	Aggregator string
	UserID     string
}

func (DeleteUserMessage) Type() string { return TypeDeleteUser }

func (m DeleteUserMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return nil
}

type StartWidgetSessionMessage struct {
	Request core.WidgetSessionRequest
}

func (StartWidgetSessionMessage) Type() string { return TypeStartWidgetSession }

func (m StartWidgetSessionMessage) Validate() error {
	if strings.TrimSpace(m.Request.TargetOrigin) == "" {
		return fmt.Errorf("command: targetOrigin is required")
	}
	return nil
}

type ResolveCorrelationMessage struct {
	Outcome core.CorrelationOutcome
}

func (ResolveCorrelationMessage) Type() string { return TypeResolveCorrelation }

func (m ResolveCorrelationMessage) Validate() error {
	if strings.TrimSpace(m.Outcome.Token) == "" {
		return fmt.Errorf("command: correlation token is required")
	}
	return nil
}

func requireAggregator(aggregator string) error {
	if strings.TrimSpace(aggregator) == "" {
		return fmt.Errorf("command: aggregator is required")
	}
	return nil
}
