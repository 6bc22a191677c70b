package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-connect/core"
)

const (
	TypeGetConnection              = "connect.query.connection.get"
	TypeGetConnectionStatus        = "connect.query.connection.status"
	TypeListConnections            = "connect.query.connection.list"
	TypeListConnectionCredentials  = "connect.query.connection.credentials"
	TypeGetInstitution             = "connect.query.institution.get"
	TypeListInstitutionCredentials = "connect.query.institution.credentials"
	TypeGetData                    = "connect.query.data.get"
)

type GetConnectionMessage struct {
	Aggregator   string
	ConnectionID string
	UserID       string
}

func (GetConnectionMessage) Type() string { return TypeGetConnection }

func (m GetConnectionMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.ConnectionID) == "" {
		return fmt.Errorf("query: connection id is required")
	}
	return nil
}

type GetConnectionStatusMessage struct {
	Aggregator string
	Request    core.ConnectionStatusRequest
}

func (GetConnectionStatusMessage) Type() string { return TypeGetConnectionStatus }

func (m GetConnectionStatusMessage) Validate() error {
	if strings.TrimSpace(m.Request.ConnectionID) == "" {
		return fmt.Errorf("query: connection id is required")
	}
	return nil
}

type ListConnectionsMessage struct {
	Aggregator string
	UserID     string
}

func (ListConnectionsMessage) Type() string { return TypeListConnections }

func (m ListConnectionsMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	return nil
}

type ListConnectionCredentialsMessage struct {
	Aggregator   string
	ConnectionID string
	UserID       string
}

func (ListConnectionCredentialsMessage) Type() string { return TypeListConnectionCredentials }

func (m ListConnectionCredentialsMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.ConnectionID) == "" {
		return fmt.Errorf("query: connection id is required")
	}
	return nil
}

type GetInstitutionMessage struct {
	Aggregator    string
	InstitutionID string
}

func (GetInstitutionMessage) Type() string { return TypeGetInstitution }

func (m GetInstitutionMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.InstitutionID) == "" {
		return fmt.Errorf("query: institution id is required")
	}
	return nil
}

type ListInstitutionCredentialsMessage struct {
	Aggregator    string
	InstitutionID string
}

func (ListInstitutionCredentialsMessage) Type() string { return TypeListInstitutionCredentials }

func (m ListInstitutionCredentialsMessage) Validate() error {
	if err := requireAggregator(m.Aggregator); err != nil {
		return err
	}
	if strings.TrimSpace(m.InstitutionID) == "" {
		return fmt.Errorf("query: institution id is required")
	}
	return nil
}

type GetDataMessage struct {
	Kind    core.DataKind
	Request core.DataRequest
}

func (GetDataMessage) Type() string { return TypeGetData }

func (m GetDataMessage) Validate() error {
	switch m.Kind {
	case core.DataKindAccounts, core.DataKindIdentity, core.DataKindTransactions:
	default:
		return fmt.Errorf("query: unknown data kind %q", m.Kind)
	}
	if err := requireAggregator(m.Request.Aggregator); err != nil {
		return err
	}
	return nil
}

func requireAggregator(aggregator string) error {
	if strings.TrimSpace(aggregator) == "" {
		return fmt.Errorf("query: aggregator is required")
	}
	return nil
}
