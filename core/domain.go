package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidConnectionStatusTransition = errors.New("core: invalid connection status transition")
	ErrChallengeShapeMismatch            = errors.New("core: challenge response shape mismatch")
	ErrInvalidJobType                    = errors.New("core: invalid job type")
	ErrCorrelationNotFound               = errors.New("core: correlation record not found")
	ErrUserNotResolved                   = errors.New("core: user not resolved")
)

// ConnectionStatus is the shared vocabulary reported by every aggregator
// adapter. Only a small subset participates in the orchestrated OAuth and
// challenge flows; the rest are vendor-reported and pass through untouched.
type ConnectionStatus string

const (
	ConnectionStatusCreated      ConnectionStatus = "CREATED"
	ConnectionStatusPrevented    ConnectionStatus = "PREVENTED"
	ConnectionStatusDenied       ConnectionStatus = "DENIED"
	ConnectionStatusChallenged   ConnectionStatus = "CHALLENGED"
	ConnectionStatusRejected     ConnectionStatus = "REJECTED"
	ConnectionStatusLocked       ConnectionStatus = "LOCKED"
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusImpeded      ConnectionStatus = "IMPEDED"
	ConnectionStatusReconnected  ConnectionStatus = "RECONNECTED"
	ConnectionStatusDegraded     ConnectionStatus = "DEGRADED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusDiscontinue  ConnectionStatus = "DISCONTINUE"
	ConnectionStatusClosed       ConnectionStatus = "CLOSED"
	ConnectionStatusDelayed      ConnectionStatus = "DELAYED"
	ConnectionStatusFailed       ConnectionStatus = "FAILED"
	ConnectionStatusUpdated      ConnectionStatus = "UPDATED"
	ConnectionStatusDisabled     ConnectionStatus = "DISABLED"
	ConnectionStatusImported     ConnectionStatus = "IMPORTED"
	ConnectionStatusResumed      ConnectionStatus = "RESUMED"
	ConnectionStatusExpired      ConnectionStatus = "EXPIRED"
	ConnectionStatusImpaired     ConnectionStatus = "IMPAIRED"
	ConnectionStatusPending      ConnectionStatus = "PENDING"
)

type ChallengeType string

const (
	ChallengeTypeQuestion     ChallengeType = "QUESTION"
	ChallengeTypeOptions      ChallengeType = "OPTIONS"
	ChallengeTypeImage        ChallengeType = "IMAGE"
	ChallengeTypeImageOptions ChallengeType = "IMAGE_OPTIONS"
	ChallengeTypeToken        ChallengeType = "TOKEN"
)

type ChallengeOption struct {
	Key   string
	Value string
}

type Challenge struct {
	ID       string
	Type     ChallengeType
	Question string
	Data     string
	Options  []ChallengeOption
	Response string
}

// ValidateResponse enforces the response shape the challenge type dictates:
// free text for QUESTION/TOKEN/IMAGE, one of the offered keys for
// OPTIONS/IMAGE_OPTIONS.
func (c Challenge) ValidateResponse(response string) error {
	response = strings.TrimSpace(response)
	if response == "" {
		return fmt.Errorf("%w: empty response for challenge %q", ErrChallengeShapeMismatch, c.ID)
	}
	switch c.Type {
	case ChallengeTypeQuestion, ChallengeTypeToken, ChallengeTypeImage:
		return nil
	case ChallengeTypeOptions, ChallengeTypeImageOptions:
		for _, option := range c.Options {
			if option.Key == response {
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not an offered option for challenge %q", ErrChallengeShapeMismatch, response, c.ID)
	default:
		return fmt.Errorf("%w: unknown challenge type %q", ErrChallengeShapeMismatch, c.Type)
	}
}

// Credential is either a template produced by ListInstitutionCredentials
// (no value) or a filled-in submission on create/update.
type Credential struct {
	ID        string
	Label     string
	FieldName string
	FieldType string
	Value     string
}

// Institution is owned by the directory collaborator; the core only
// references it.
type Institution struct {
	ID         string
	Name       string
	URL        string
	LogoURL    string
	Code       string
	Aggregator string
	OAuth      bool
}

// Connection is the central entity: one user's link to one institution via
// one aggregator, identified by a correlation token or the aggregator-native
// member id.
type Connection struct {
	ID             string
	Aggregator     string
	UserID         string
	InstitutionID  string
	Status         ConnectionStatus
	CurJobID       string
	IsOAuth        bool
	OAuthWindowURI string
	Challenges     []Challenge
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the cross-field invariants: CHALLENGED iff challenges are
// outstanding, and an oauth window URI only while an OAuth flow is open.
func (c Connection) Validate() error {
	challenged := c.Status == ConnectionStatusChallenged
	if challenged != (len(c.Challenges) > 0) {
		return fmt.Errorf("core: connection %q status %s does not match %d outstanding challenges", c.ID, c.Status, len(c.Challenges))
	}
	if c.OAuthWindowURI != "" && !c.IsOAuth {
		return fmt.Errorf("core: connection %q carries an oauth window uri without being an oauth connection", c.ID)
	}
	return nil
}

// TransitionTo applies a status change. Orchestrated statuses (the OAuth
// pending flow and the challenge round trip) are guarded by the transition
// map; vendor-reported statuses pass through as observed.
func (c *Connection) TransitionTo(status ConnectionStatus, reason string, now time.Time) error {
	if c == nil {
		return nil
	}
	if c.Status == status {
		c.UpdatedAt = now
		if strings.TrimSpace(reason) != "" {
			c.ErrorMessage = strings.TrimSpace(reason)
		}
		return nil
	}
	if isOrchestratedStatus(c.Status) && isOrchestratedStatus(status) && !connectionTransitionAllowed(c.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidConnectionStatusTransition, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		c.ErrorMessage = strings.TrimSpace(reason)
	}
	if status == ConnectionStatusConnected {
		c.ErrorMessage = ""
		c.OAuthWindowURI = ""
		c.Challenges = nil
	}
	if status == ConnectionStatusChallenged && len(c.Challenges) == 0 {
		return fmt.Errorf("core: connection %q cannot be CHALLENGED without challenges", c.ID)
	}
	return nil
}

func isOrchestratedStatus(status ConnectionStatus) bool {
	switch status {
	case ConnectionStatusCreated, ConnectionStatusPending, ConnectionStatusConnected,
		ConnectionStatusChallenged, ConnectionStatusDenied, ConnectionStatusFailed:
		return true
	default:
		return false
	}
}

func connectionTransitionAllowed(current, next ConnectionStatus) bool {
	allowed := map[ConnectionStatus]map[ConnectionStatus]struct{}{
		ConnectionStatusCreated: {
			ConnectionStatusPending:    {},
			ConnectionStatusConnected:  {},
			ConnectionStatusChallenged: {},
			ConnectionStatusDenied:     {},
			ConnectionStatusFailed:     {},
		},
		ConnectionStatusPending: {
			ConnectionStatusConnected: {},
			ConnectionStatusDenied:    {},
			ConnectionStatusFailed:    {},
		},
		ConnectionStatusConnected: {
			ConnectionStatusChallenged: {},
			ConnectionStatusPending:    {},
			ConnectionStatusFailed:     {},
		},
		ConnectionStatusChallenged: {
			ConnectionStatusConnected: {},
			ConnectionStatusFailed:    {},
			ConnectionStatusDenied:    {},
		},
		ConnectionStatusDenied: {
			ConnectionStatusPending: {},
		},
		ConnectionStatusFailed: {
			ConnectionStatusPending: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}
