package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-connect/core"
)

var (
	_ gocmd.Querier[GetConnectionMessage, core.Connection]                = (*GetConnectionQuery)(nil)
	_ gocmd.Querier[GetConnectionStatusMessage, core.Connection]          = (*GetConnectionStatusQuery)(nil)
	_ gocmd.Querier[ListConnectionsMessage, []core.Connection]            = (*ListConnectionsQuery)(nil)
	_ gocmd.Querier[ListConnectionCredentialsMessage, []core.Credential]  = (*ListConnectionCredentialsQuery)(nil)
	_ gocmd.Querier[GetInstitutionMessage, core.Institution]              = (*GetInstitutionQuery)(nil)
	_ gocmd.Querier[ListInstitutionCredentialsMessage, []core.Credential] = (*ListInstitutionCredentialsQuery)(nil)
	_ gocmd.Querier[GetDataMessage, map[string]any]                       = (*GetDataQuery)(nil)
)
