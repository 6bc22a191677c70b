package sophtron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-connect/core"
)

const (
	defaultAggregatorKey   = "sophtron"
	defaultMaxPollAttempts = 5
	defaultPollInterval    = 2 * time.Second

	accountSelectChallengeID = "single_account_select"
)

// Member is the vendor-shaped connection record; jobs carry the MFA round
// trips.
type Member struct {
	ID            string
	CustomerID    string
	InstitutionID string
	Status        string
	JobID         string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type JobChallenge struct {
	ID       string
	Kind     string
	Question string
	Data     string
	Options  map[string]string
}

type JobStatus struct {
	JobID      string
	MemberID   string
	State      string
	JobType    string
	Challenge  *JobChallenge
	FailReason string
}

type Account struct {
	ID   string
	Name string
}

type CreateMemberRequest struct {
	CustomerID    string
	InstitutionID string
	Credentials   map[string]string
	JobTypes      core.MappedJobTypes
}

type CredentialTemplate struct {
	ID        string
	Label     string
	FieldName string
	FieldType string
}

type Institution struct {
	ID      string
	Name    string
	URL     string
	LogoURL string
}

// Client wraps the vendor API. Signed HTTP plumbing lives behind it; the
// adapter owns job polling, challenge mapping and the account-select round.
type Client interface {
	ResolveCustomer(ctx context.Context, userID string) (string, bool, error)
	CreateCustomer(ctx context.Context, userID string) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	GetInstitution(ctx context.Context, institutionID string) (Institution, error)
	ListInstitutionCredentials(ctx context.Context, institutionID string) ([]CredentialTemplate, error)
	ListMembers(ctx context.Context, customerID string) ([]Member, error)
	GetMember(ctx context.Context, memberID string, customerID string) (Member, error)
	ListMemberCredentials(ctx context.Context, memberID string, customerID string) ([]CredentialTemplate, error)
	CreateMember(ctx context.Context, req CreateMemberRequest) (Member, error)
	UpdateMember(ctx context.Context, memberID string, req CreateMemberRequest) (Member, error)
	DeleteMember(ctx context.Context, memberID string, customerID string) error
	GetJobStatus(ctx context.Context, jobID string) (JobStatus, error)
	AnswerJobChallenge(ctx context.Context, jobID string, answers map[string]string) (bool, error)
	ListDiscoveredAccounts(ctx context.Context, memberID string, customerID string) ([]Account, error)
}

type Config struct {
	AggregatorKey   string
	Client          Client
	MaxPollAttempts int
	PollInterval    time.Duration
	Sleep           func(ctx context.Context, d time.Duration) error
}

// Adapter implements the capability contract for the synchronous
// submit-and-poll flow: CreateConnection submits credentials and starts a
// vendor job; GetConnectionStatus polls that job with a bounded attempt
// count and surfaces MFA rounds as challenges.
type Adapter struct {
	cfg Config

	mu         sync.Mutex
	selections map[string]*accountSelectState
}

type accountSelectState struct {
	offered  bool
	resolved bool
	options  []core.ChallengeOption
}

func New(cfg Config) (*Adapter, error) {
	cfg.AggregatorKey = strings.TrimSpace(strings.ToLower(cfg.AggregatorKey))
	if cfg.AggregatorKey == "" {
		cfg.AggregatorKey = defaultAggregatorKey
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("sophtron: vendor client is required")
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Sleep == nil {
		cfg.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Adapter{cfg: cfg, selections: map[string]*accountSelectState{}}, nil
}

func (a *Adapter) ID() string {
	if a == nil {
		return ""
	}
	return a.cfg.AggregatorKey
}

func (a *Adapter) ResolveUserID(ctx context.Context, userID string, failIfNotFound bool) (string, error) {
	customerID, found, err := a.cfg.Client.ResolveCustomer(ctx, userID)
	if err != nil {
		return "", err
	}
	if found {
		return customerID, nil
	}
	if failIfNotFound {
		return "", fmt.Errorf("%w: %s", core.ErrUserNotResolved, userID)
	}
	return a.cfg.Client.CreateCustomer(ctx, userID)
}

func (a *Adapter) GetInstitutionByID(ctx context.Context, institutionID string) (core.Institution, error) {
	institution, err := a.cfg.Client.GetInstitution(ctx, institutionID)
	if err != nil {
		return core.Institution{}, err
	}
	return core.Institution{
		ID:         institution.ID,
		Name:       institution.Name,
		URL:        institution.URL,
		LogoURL:    institution.LogoURL,
		Aggregator: a.cfg.AggregatorKey,
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
	if len(req.Credentials) == 0 {
		return core.Connection{}, fmt.Errorf("sophtron: credentials are required")
	}
	mapped, err := core.MapJobTypes(req.JobTypes)
	if err != nil {
		return core.Connection{}, err
	}
	member, err := a.cfg.Client.CreateMember(ctx, CreateMemberRequest{
		CustomerID:    userID,
		InstitutionID: req.InstitutionID,
		Credentials:   credentialValues(req.Credentials),
		JobTypes:      mapped,
	})
	if err != nil {
		return core.Connection{}, err
	}
	return a.connectionFromMember(member), nil
}

func (a *Adapter) UpdateConnection(ctx context.Context, req core.UpdateConnectionRequest, userID string) (core.Connection, error) {
	mapped, err := core.MapJobTypes(req.JobTypes)
	if err != nil {
		return core.Connection{}, err
	}
	member, err := a.cfg.Client.UpdateMember(ctx, req.ConnectionID, CreateMemberRequest{
		CustomerID:  userID,
		Credentials: credentialValues(req.Credentials),
		JobTypes:    mapped,
	})
	if err != nil {
		return core.Connection{}, err
	}
	if mapped.Verification {
		a.resetAccountSelectOffer(req.ConnectionID)
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

// GetConnectionStatus polls the vendor job with a bounded attempt count.
// A challenge-bearing job reports CHALLENGED; an exhausted poll reports the
// member's last known status rather than blocking further.
func (a *Adapter) GetConnectionStatus(ctx context.Context, req core.ConnectionStatusRequest) (core.Connection, error) {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		member, err := a.cfg.Client.GetMember(ctx, req.ConnectionID, req.UserID)
		if err != nil {
			return core.Connection{}, err
		}
		jobID = member.JobID
		if jobID == "" {
			return a.connectionFromMember(member), nil
		}
	}

	for attempt := 0; attempt < a.cfg.MaxPollAttempts; attempt++ {
		job, err := a.cfg.Client.GetJobStatus(ctx, jobID)
		if err != nil {
			return core.Connection{}, err
		}
		switch strings.ToLower(strings.TrimSpace(job.State)) {
		case "queued", "running":
			if attempt == a.cfg.MaxPollAttempts-1 {
				return a.pendingConnection(req.ConnectionID, jobID), nil
			}
			if err := a.cfg.Sleep(ctx, a.cfg.PollInterval); err != nil {
				return core.Connection{}, err
			}
		case "challenge":
			return a.challengedConnection(req.ConnectionID, jobID, job.Challenge)
		case "success":
			return a.successConnection(ctx, req, jobID, job)
		case "denied":
			return a.terminalConnection(req.ConnectionID, jobID, core.ConnectionStatusDenied, job.FailReason), nil
		case "failed":
			return a.terminalConnection(req.ConnectionID, jobID, core.ConnectionStatusFailed, job.FailReason), nil
		default:
			return core.Connection{}, fmt.Errorf("sophtron: unknown job state %q for job %s", job.State, jobID)
		}
	}
	return a.pendingConnection(req.ConnectionID, jobID), nil
}

func (a *Adapter) AnswerChallenge(ctx context.Context, req core.AnswerChallengeRequest, jobID string, userID string) (bool, error) {
	if len(req.Challenges) == 0 {
		return false, fmt.Errorf("sophtron: at least one challenge response is required")
	}

	answers := map[string]string{}
	for _, challenge := range req.Challenges {
		if err := challenge.ValidateResponse(challenge.Response); err != nil {
			return false, err
		}
		if challenge.ID == accountSelectChallengeID {
			a.markAccountSelectResolved(req.ConnectionID)
			continue
		}
		answers[challenge.ID] = strings.TrimSpace(challenge.Response)
	}
	if len(answers) == 0 {
		return true, nil
	}
	return a.cfg.Client.AnswerJobChallenge(ctx, jobID, answers)
}

func (a *Adapter) DeleteConnection(ctx context.Context, connectionID string, userID string) error {
	a.mu.Lock()
	delete(a.selections, connectionID)
	a.mu.Unlock()
	return a.cfg.Client.DeleteMember(ctx, connectionID, userID)
}

func (a *Adapter) DeleteUser(ctx context.Context, userID string) error {
	return a.cfg.Client.DeleteCustomer(ctx, userID)
}

// successConnection decides whether a verification-capable job success must
// first surface the account-selection round. The OPTIONS challenge is
// offered once per verification cycle; a later cycle whose selection was
// already confirmed reports CONNECTED directly.
func (a *Adapter) successConnection(ctx context.Context, req core.ConnectionStatusRequest, jobID string, job JobStatus) (core.Connection, error) {
	verification := strings.Contains(strings.ToLower(job.JobType), "verification")
	if !req.SingleAccountSelect || !verification {
		return a.terminalConnection(req.ConnectionID, jobID, core.ConnectionStatusConnected, ""), nil
	}

	a.mu.Lock()
	state, ok := a.selections[req.ConnectionID]
	if !ok {
		state = &accountSelectState{}
		a.selections[req.ConnectionID] = state
	}
	resolved := state.resolved
	offered := state.offered
	cached := append([]core.ChallengeOption(nil), state.options...)
	a.mu.Unlock()

	if resolved {
		return a.terminalConnection(req.ConnectionID, jobID, core.ConnectionStatusConnected, ""), nil
	}
	if offered {
		return a.challengedConnectionFromOptions(req.ConnectionID, jobID, cached), nil
	}

	accounts, err := a.cfg.Client.ListDiscoveredAccounts(ctx, req.ConnectionID, req.UserID)
	if err != nil {
		return core.Connection{}, err
	}
	options := make([]core.ChallengeOption, 0, len(accounts))
	for _, account := range accounts {
		options = append(options, core.ChallengeOption{Key: account.ID, Value: account.Name})
	}

	a.mu.Lock()
	state.offered = true
	state.options = options
	a.mu.Unlock()

	return a.challengedConnectionFromOptions(req.ConnectionID, jobID, options), nil
}

func (a *Adapter) challengedConnection(connectionID string, jobID string, challenge *JobChallenge) (core.Connection, error) {
	if challenge == nil {
		return core.Connection{}, fmt.Errorf("sophtron: challenge job %s carried no challenge payload", jobID)
	}
	mapped, err := mapChallenge(*challenge)
	if err != nil {
		return core.Connection{}, err
	}
	connection := a.pendingConnection(connectionID, jobID)
	connection.Status = core.ConnectionStatusChallenged
	connection.Challenges = []core.Challenge{mapped}
	return connection, nil
}

func (a *Adapter) challengedConnectionFromOptions(connectionID string, jobID string, options []core.ChallengeOption) core.Connection {
	labels := make([]string, 0, len(options))
	for _, option := range options {
		labels = append(labels, option.Value)
	}
	connection := a.pendingConnection(connectionID, jobID)
	connection.Status = core.ConnectionStatusChallenged
	connection.Challenges = []core.Challenge{{
		ID:       accountSelectChallengeID,
		Type:     core.ChallengeTypeOptions,
		Question: "Select the account to verify",
		Data:     strings.Join(labels, ","),
		Options:  options,
	}}
	return connection
}

func (a *Adapter) pendingConnection(connectionID string, jobID string) core.Connection {
	return core.Connection{
		ID:         connectionID,
		Aggregator: a.cfg.AggregatorKey,
		Status:     core.ConnectionStatusPending,
		CurJobID:   jobID,
	}
}

func (a *Adapter) terminalConnection(connectionID string, jobID string, status core.ConnectionStatus, reason string) core.Connection {
	return core.Connection{
		ID:           connectionID,
		Aggregator:   a.cfg.AggregatorKey,
		Status:       status,
		CurJobID:     jobID,
		ErrorMessage: strings.TrimSpace(reason),
	}
}

func (a *Adapter) connectionFromMember(member Member) core.Connection {
	status := core.ConnectionStatus(strings.ToUpper(strings.TrimSpace(member.Status)))
	if status == "" {
		status = core.ConnectionStatusCreated
	}
	return core.Connection{
		ID:            member.ID,
		Aggregator:    a.cfg.AggregatorKey,
		UserID:        member.CustomerID,
		InstitutionID: member.InstitutionID,
		Status:        status,
		CurJobID:      member.JobID,
		ErrorMessage:  member.ErrorMessage,
		CreatedAt:     member.CreatedAt,
		UpdatedAt:     member.UpdatedAt,
	}
}

func (a *Adapter) markAccountSelectResolved(connectionID string) {
	a.mu.Lock()
	state, ok := a.selections[connectionID]
	if !ok {
		state = &accountSelectState{}
		a.selections[connectionID] = state
	}
	state.resolved = true
	a.mu.Unlock()
}

func (a *Adapter) resetAccountSelectOffer(connectionID string) {
	a.mu.Lock()
	if state, ok := a.selections[connectionID]; ok && !state.resolved {
		state.offered = false
		state.options = nil
	}
	a.mu.Unlock()
}

func mapChallenge(challenge JobChallenge) (core.Challenge, error) {
	mapped := core.Challenge{
		ID:       challenge.ID,
		Question: challenge.Question,
		Data:     challenge.Data,
	}
	switch strings.ToLower(strings.TrimSpace(challenge.Kind)) {
	case "question", "security_question":
		mapped.Type = core.ChallengeTypeQuestion
	case "token", "otp":
		mapped.Type = core.ChallengeTypeToken
	case "image", "captcha":
		mapped.Type = core.ChallengeTypeImage
	case "options":
		mapped.Type = core.ChallengeTypeOptions
	case "image_options":
		mapped.Type = core.ChallengeTypeImageOptions
	default:
		return core.Challenge{}, fmt.Errorf("sophtron: unknown challenge kind %q", challenge.Kind)
	}
	if mapped.Type == core.ChallengeTypeOptions || mapped.Type == core.ChallengeTypeImageOptions {
		for key, value := range challenge.Options {
			mapped.Options = append(mapped.Options, core.ChallengeOption{Key: key, Value: value})
		}
	}
	return mapped, nil
}

func credentialsFromTemplates(templates []CredentialTemplate) []core.Credential {
	credentials := make([]core.Credential, 0, len(templates))
	for _, template := range templates {
		credentials = append(credentials, core.Credential{
			ID:        template.ID,
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
