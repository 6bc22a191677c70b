package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateConnectionMessage]   = (*CreateConnectionCommand)(nil)
	_ gocmd.Commander[UpdateConnectionMessage]   = (*UpdateConnectionCommand)(nil)
	_ gocmd.Commander[AnswerChallengeMessage]    = (*AnswerChallengeCommand)(nil)
	_ gocmd.Commander[DeleteConnectionMessage]   = (*DeleteConnectionCommand)(nil)
	_ gocmd.Commander[DeleteUserMessage]         = (*DeleteUserCommand)(nil)
	_ gocmd.Commander[StartWidgetSessionMessage] = (*StartWidgetSessionCommand)(nil)
	_ gocmd.Commander[ResolveCorrelationMessage] = (*ResolveCorrelationCommand)(nil)
)
