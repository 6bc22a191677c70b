package mx

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-connect/core"
)

const defaultAggregatorKey = "mx"

// Member is the vendor-shaped connection record.
type Member struct {
	GUID             string
	UserGUID         string
	InstitutionCode  string
	ConnectionStatus string
	IsOAuth          bool
	OAuthWindowURI   string
	CurrentJobGUID   string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CredentialTemplate struct {
	GUID      string
	Label     string
	FieldName string
	FieldType string
}

type Institution struct {
	Code                 string
	Name                 string
	URL                  string
	MediumLogoURL        string
	SupportsOAuth        bool
	SupportsVerification bool
}

type CreateMemberRequest struct {
	UserGUID         string
	InstitutionCode  string
	CorrelationToken string
	RedirectURI      string
	Credentials      map[string]string
	Metadata         map[string]any
}

// Client is the wrapped vendor API. The signed HTTP plumbing lives behind
// this interface; the adapter owns token minting, URL construction and
// status normalization.
type Client interface {
	ResolveUser(ctx context.Context, userID string) (string, bool, error)
	CreateUser(ctx context.Context, userID string) (string, error)
	DeleteUser(ctx context.Context, userGUID string) error
	GetInstitution(ctx context.Context, institutionCode string) (Institution, error)
	ListInstitutionCredentials(ctx context.Context, institutionCode string) ([]CredentialTemplate, error)
	ListMembers(ctx context.Context, userGUID string) ([]Member, error)
	GetMember(ctx context.Context, memberGUID string, userGUID string) (Member, error)
	GetMemberStatus(ctx context.Context, memberGUID string, userGUID string) (Member, error)
	CreateMember(ctx context.Context, req CreateMemberRequest) (Member, error)
	UpdateMember(ctx context.Context, memberGUID string, req CreateMemberRequest) (Member, error)
	ListMemberCredentials(ctx context.Context, memberGUID string, userGUID string) ([]CredentialTemplate, error)
	DeleteMember(ctx context.Context, memberGUID string, userGUID string) error
}

type Config struct {
	AggregatorKey   string
	AuthorizeURL    string
	CallbackBaseURL string
	Client          Client
	TokenGenerator  func() string
	Now             func() time.Time
}

// Adapter implements the aggregator capability contract for the MX-style
// OAuth window flow: CreateConnection mints a correlation token, asks the
// vendor for a member whose OAuth window carries the token as its state
// parameter, and reports PENDING until the redirect or webhook resolves it.
type Adapter struct {
	cfg Config
}

func New(cfg Config) (*Adapter, error) {
	cfg.AggregatorKey = strings.TrimSpace(strings.ToLower(cfg.AggregatorKey))
	if cfg.AggregatorKey == "" {
		cfg.AggregatorKey = defaultAggregatorKey
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("mx: vendor client is required")
	}
	cfg.AuthorizeURL = strings.TrimSpace(cfg.AuthorizeURL)
	cfg.CallbackBaseURL = strings.TrimSpace(cfg.CallbackBaseURL)
	if cfg.TokenGenerator == nil {
		cfg.TokenGenerator = core.GenerateCorrelationToken
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Adapter{cfg: cfg}, nil
}

func (a *Adapter) ID() string {
	if a == nil {
		return ""
	}
	return a.cfg.AggregatorKey
}

func (a *Adapter) ResolveUserID(ctx context.Context, userID string, failIfNotFound bool) (string, error) {
	guid, found, err := a.cfg.Client.ResolveUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if found {
		return guid, nil
	}
	if failIfNotFound {
		return "", fmt.Errorf("%w: %s", core.ErrUserNotResolved, userID)
	}
	return a.cfg.Client.CreateUser(ctx, userID)
}

func (a *Adapter) GetInstitutionByID(ctx context.Context, institutionID string) (core.Institution, error) {
	institution, err := a.cfg.Client.GetInstitution(ctx, institutionID)
	if err != nil {
		return core.Institution{}, err
	}
	return core.Institution{
		ID:         institution.Code,
		Name:       institution.Name,
		URL:        institution.URL,
		LogoURL:    institution.MediumLogoURL,
		Code:       institution.Code,
		Aggregator: a.cfg.AggregatorKey,
		OAuth:      institution.SupportsOAuth,
	}, nil
}

func (a *Adapter) ListInstitutionCredentials(ctx context.Context, institutionID string) ([]core.Credential, error) {
	templates, err := a.cfg.Client.ListInstitutionCredentials(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	return credentialsFromTemplates(templates), nil
}

func (a *Adapter) ListConnections(ctx context.Context, userID string) ([]core.Connection, error) {
	members, err := a.cfg.Client.ListMembers(ctx, userID)
	if err != nil {
		return nil, err
	}
	connections := make([]core.Connection, 0, len(members))
	for _, member := range members {
		connections = append(connections, a.connectionFromMember(member))
	}
	return connections, nil
}

func (a *Adapter) ListConnectionCredentials(ctx context.Context, connectionID string, userID string) ([]core.Credential, error) {
	templates, err := a.cfg.Client.ListMemberCredentials(ctx, connectionID, userID)
	if err != nil {
		return nil, err
	}
	return credentialsFromTemplates(templates), nil
}

func (a *Adapter) CreateConnection(ctx context.Context, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
	token := a.cfg.TokenGenerator()
	member, err := a.cfg.Client.CreateMember(ctx, CreateMemberRequest{
		UserGUID:         userID,
		InstitutionCode:  req.InstitutionID,
		CorrelationToken: token,
		RedirectURI:      a.callbackURI(),
		Credentials:      credentialValues(req.Credentials),
		Metadata:         req.Metadata,
	})
	if err != nil {
		return core.Connection{}, err
	}

	connection := a.connectionFromMember(member)
	if connection.IsOAuth {
		connection.ID = token
		connection.Status = core.ConnectionStatusPending
		if connection.OAuthWindowURI == "" {
			connection.OAuthWindowURI = a.buildOAuthWindowURI(token, member.InstitutionCode)
		}
	}
	return connection, nil
}

func (a *Adapter) UpdateConnection(ctx context.Context, req core.UpdateConnectionRequest, userID string) (core.Connection, error) {
	member, err := a.cfg.Client.UpdateMember(ctx, req.ConnectionID, CreateMemberRequest{
		UserGUID:    userID,
		Credentials: credentialValues(req.Credentials),
		Metadata:    req.Metadata,
	})
	if err != nil {
		return core.Connection{}, err
	}
	return a.connectionFromMember(member), nil
}

func (a *Adapter) GetConnectionByID(ctx context.Context, connectionID string, userID string) (core.Connection, error) {
	member, err := a.cfg.Client.GetMember(ctx, connectionID, userID)
	if err != nil {
		return core.Connection{}, err
	}
	return a.connectionFromMember(member), nil
}

func (a *Adapter) GetConnectionStatus(ctx context.Context, req core.ConnectionStatusRequest) (core.Connection, error) {
	member, err := a.cfg.Client.GetMemberStatus(ctx, req.ConnectionID, req.UserID)
	if err != nil {
		return core.Connection{}, err
	}
	return a.connectionFromMember(member), nil
}

// AnswerChallenge is not part of the OAuth window flow; MX-style MFA is
// resolved inside the vendor-hosted window.
func (a *Adapter) AnswerChallenge(_ context.Context, req core.AnswerChallengeRequest, _ string, _ string) (bool, error) {
	return false, fmt.Errorf("mx: challenges are answered inside the oauth window, connection %s", req.ConnectionID)
}

func (a *Adapter) DeleteConnection(ctx context.Context, connectionID string, userID string) error {
	return a.cfg.Client.DeleteMember(ctx, connectionID, userID)
}

func (a *Adapter) DeleteUser(ctx context.Context, userID string) error {
	return a.cfg.Client.DeleteUser(ctx, userID)
}

func (a *Adapter) connectionFromMember(member Member) core.Connection {
	return core.Connection{
		ID:             member.GUID,
		Aggregator:     a.cfg.AggregatorKey,
		UserID:         member.UserGUID,
		InstitutionID:  member.InstitutionCode,
		Status:         NormalizeStatus(member.ConnectionStatus),
		CurJobID:       member.CurrentJobGUID,
		IsOAuth:        member.IsOAuth,
		OAuthWindowURI: member.OAuthWindowURI,
		ErrorMessage:   member.ErrorMessage,
		CreatedAt:      member.CreatedAt,
		UpdatedAt:      member.UpdatedAt,
	}
}

func (a *Adapter) buildOAuthWindowURI(token string, institutionCode string) string {
	if a.cfg.AuthorizeURL == "" {
		return ""
	}
	values := url.Values{}
	values.Set("state", token)
	values.Set("institution_code", institutionCode)
	if callback := a.callbackURI(); callback != "" {
		values.Set("redirect_uri", callback)
	}
	separator := "?"
	if strings.Contains(a.cfg.AuthorizeURL, "?") {
		separator = "&"
	}
	return a.cfg.AuthorizeURL + separator + values.Encode()
}

func (a *Adapter) callbackURI() string {
	if a.cfg.CallbackBaseURL == "" {
		return ""
	}
	return strings.TrimRight(a.cfg.CallbackBaseURL, "/") + "/oauth/" + a.cfg.AggregatorKey + "/redirect_from"
}

// NormalizeStatus folds the vendor's connection_status vocabulary onto the
// shared enum; anything unrecognized degrades to FAILED rather than leaking
// a vendor-only value.
func NormalizeStatus(raw string) core.ConnectionStatus {
	status := core.ConnectionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case core.ConnectionStatusCreated, core.ConnectionStatusPrevented, core.ConnectionStatusDenied,
		core.ConnectionStatusChallenged, core.ConnectionStatusRejected, core.ConnectionStatusLocked,
		core.ConnectionStatusConnected, core.ConnectionStatusImpeded, core.ConnectionStatusReconnected,
		core.ConnectionStatusDegraded, core.ConnectionStatusDisconnected, core.ConnectionStatusDiscontinue,
		core.ConnectionStatusClosed, core.ConnectionStatusDelayed, core.ConnectionStatusFailed,
		core.ConnectionStatusUpdated, core.ConnectionStatusDisabled, core.ConnectionStatusImported,
		core.ConnectionStatusResumed, core.ConnectionStatusExpired, core.ConnectionStatusImpaired,
		core.ConnectionStatusPending:
		return status
	default:
		return core.ConnectionStatusFailed
	}
}

func credentialsFromTemplates(templates []CredentialTemplate) []core.Credential {
	credentials := make([]core.Credential, 0, len(templates))
	for _, template := range templates {
		credentials = append(credentials, core.Credential{
			ID:        template.GUID,
			Label:     template.Label,
			FieldName: template.FieldName,
			FieldType: template.FieldType,
		})
	}
	return credentials
}

func credentialValues(credentials []core.Credential) map[string]string {
	if len(credentials) == 0 {
		return nil
	}
	values := make(map[string]string, len(credentials))
	for _, credential := range credentials {
		values[credential.FieldName] = credential.Value
	}
	return values
}
