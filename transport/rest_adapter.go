package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-connect/core"
	"github.com/goliatone/go-connect/inbound"
	"github.com/goliatone/go-connect/vc"
	glog "github.com/goliatone/go-logger/glog"
)

const maxInboundBodyBytes = 1 << 20

// InboundDispatcher routes redirect and webhook deliveries. Satisfied by
// inbound.Dispatcher.
type InboundDispatcher interface {
	Dispatch(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

var _ InboundDispatcher = (*inbound.Dispatcher)(nil)

// Config wires the REST adapter. Service is required; Dispatcher enables
// the oauth and webhook routes, Bridge enables the /vc routes.
type Config struct {
	Service    core.ConnectService
	Dispatcher InboundDispatcher
	Bridge     *vc.Bridge
	Logger     core.Logger
}

// RESTAdapter is the HTTP face of the connect service. API routes speak
// JSON; the oauth redirect route answers with HTML for the browser popup;
// the webhook route always acknowledges with a small JSON body so vendors
// do not retry into a correlation mismatch.
type RESTAdapter struct {
	service    core.ConnectService
	dispatcher InboundDispatcher
	bridge     *vc.Bridge
	logger     core.Logger
}

func NewRESTAdapter(cfg Config) (*RESTAdapter, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("transport: service is required")
	}
	return &RESTAdapter{
		service:    cfg.Service,
		dispatcher: cfg.Dispatcher,
		bridge:     cfg.Bridge,
		logger:     glog.Ensure(cfg.Logger),
	}, nil
}

// Handler builds the route table. Aggregator and user identifiers travel
// in the query string for reads and deletes, and in the body for writes.
func (a *RESTAdapter) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /widget/session", a.handleStartWidgetSession)
	mux.HandleFunc("POST /connections", a.handleCreateConnection)
	mux.HandleFunc("GET /connections", a.handleListConnections)
	mux.HandleFunc("PUT /connections/{connectionID}", a.handleUpdateConnection)
	mux.HandleFunc("GET /connections/{connectionID}", a.handleGetConnection)
	mux.HandleFunc("DELETE /connections/{connectionID}", a.handleDeleteConnection)
	mux.HandleFunc("GET /connections/{connectionID}/status", a.handleConnectionStatus)
	mux.HandleFunc("POST /connections/{connectionID}/challenges", a.handleAnswerChallenge)
	mux.HandleFunc("GET /connections/{connectionID}/credentials", a.handleConnectionCredentials)
	mux.HandleFunc("GET /institutions/{institutionID}", a.handleGetInstitution)
	mux.HandleFunc("GET /institutions/{institutionID}/credentials", a.handleInstitutionCredentials)
	mux.HandleFunc("DELETE /users/{userID}", a.handleDeleteUser)
	mux.HandleFunc("GET /oauth/{aggregator}/redirect_from", a.handleOAuthRedirect)
	mux.HandleFunc("POST /webhook/{aggregator}", a.handleWebhook)
	mux.HandleFunc("POST /webhook/{aggregator}/{path...}", a.handleWebhook)
	mux.HandleFunc("GET /data/{aggregator}/{kind}", a.handleGetData)
	mux.HandleFunc("POST /data/{aggregator}/{kind}", a.handleGetData)
	mux.HandleFunc("GET /vc/{aggregator}/{kind}", a.handleGetVC)
	mux.HandleFunc("POST /vc/{aggregator}/{kind}", a.handleGetVC)

	return mux
}

type widgetSessionRequest struct {
	UserID              string         `json:"userId"`
	JobTypes            []string       `json:"jobTypes"`
	TargetOrigin        string         `json:"targetOrigin"`
	Scheme              string         `json:"scheme"`
	OAuthReferralSource string         `json:"oauthReferralSource"`
	SessionID           string         `json:"sessionId"`
	Metadata            map[string]any `json:"metadata"`
}

type widgetSessionResponse struct {
	SessionID           string   `json:"sessionId"`
	UserID              string   `json:"userId"`
	JobTypes            []string `json:"jobTypes"`
	TargetOrigin        string   `json:"targetOrigin"`
	Scheme              string   `json:"scheme"`
	OAuthReferralSource string   `json:"oauthReferralSource,omitempty"`
}

func (a *RESTAdapter) handleStartWidgetSession(w http.ResponseWriter, r *http.Request) {
	var req widgetSessionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	session, err := a.service.StartWidgetSession(r.Context(), core.WidgetSessionRequest{
		UserID:              req.UserID,
		JobTypes:            req.JobTypes,
		TargetOrigin:        req.TargetOrigin,
		Scheme:              req.Scheme,
		OAuthReferralSource: req.OAuthReferralSource,
		SessionID:           req.SessionID,
		Metadata:            req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, widgetSessionResponse{
		SessionID:           session.SessionID,
		UserID:              session.UserID,
		JobTypes:            session.JobTypes,
		TargetOrigin:        session.TargetOrigin,
		Scheme:              session.Scheme,
		OAuthReferralSource: session.OAuthReferralSource,
	})
}

type createConnectionRequest struct {
	Aggregator    string              `json:"aggregator"`
	UserID        string              `json:"userId"`
	InstitutionID string              `json:"institutionId"`
	Credentials   []credentialPayload `json:"credentials"`
	JobTypes      []string            `json:"jobTypes"`
	Metadata      map[string]any      `json:"metadata"`
}

func (a *RESTAdapter) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req createConnectionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	conn, err := a.service.CreateConnection(r.Context(), req.Aggregator, core.CreateConnectionRequest{
		InstitutionID: req.InstitutionID,
		Credentials:   credentialsFromPayload(req.Credentials),
		JobTypes:      req.JobTypes,
		Metadata:      req.Metadata,
	}, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, connectionToPayload(conn))
}

type updateConnectionRequest struct {
	Aggregator  string              `json:"aggregator"`
	UserID      string              `json:"userId"`
	JobTypes    []string            `json:"jobTypes"`
	Credentials []credentialPayload `json:"credentials"`
	Metadata    map[string]any      `json:"metadata"`
}

func (a *RESTAdapter) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	var req updateConnectionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	conn, err := a.service.UpdateConnection(r.Context(), req.Aggregator, core.UpdateConnectionRequest{
		ConnectionID: r.PathValue("connectionID"),
		JobTypes:     req.JobTypes,
		Credentials:  credentialsFromPayload(req.Credentials),
		Metadata:     req.Metadata,
	}, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connectionToPayload(conn))
}

func (a *RESTAdapter) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := a.service.GetConnection(r.Context(),
		r.URL.Query().Get("aggregator"),
		r.PathValue("connectionID"),
		r.URL.Query().Get("userId"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connectionToPayload(conn))
}

func (a *RESTAdapter) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	conn, err := a.service.GetConnectionStatus(r.Context(), query.Get("aggregator"), core.ConnectionStatusRequest{
		ConnectionID:        r.PathValue("connectionID"),
		JobID:               query.Get("jobId"),
		SingleAccountSelect: query.Get("singleAccountSelect") == "true",
		UserID:              query.Get("userId"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connectionToPayload(conn))
}

type answerChallengeRequest struct {
	Aggregator string             `json:"aggregator"`
	UserID     string             `json:"userId"`
	JobID      string             `json:"jobId"`
	Challenges []challengePayload `json:"challenges"`
}

func (a *RESTAdapter) handleAnswerChallenge(w http.ResponseWriter, r *http.Request) {
	var req answerChallengeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	answered, err := a.service.AnswerChallenge(r.Context(), req.Aggregator, core.AnswerChallengeRequest{
		ConnectionID: r.PathValue("connectionID"),
		Challenges:   challengesFromPayload(req.Challenges),
	}, req.JobID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"answered": answered})
}

func (a *RESTAdapter) handleListConnections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	connections, err := a.service.ListConnections(r.Context(), query.Get("aggregator"), query.Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	payload := make([]connectionPayload, 0, len(connections))
	for _, conn := range connections {
		payload = append(payload, connectionToPayload(conn))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": payload})
}

func (a *RESTAdapter) handleConnectionCredentials(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	credentials, err := a.service.ListConnectionCredentials(r.Context(),
		query.Get("aggregator"),
		r.PathValue("connectionID"),
		query.Get("userId"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": credentialsToPayload(credentials)})
}

func (a *RESTAdapter) handleGetInstitution(w http.ResponseWriter, r *http.Request) {
	institution, err := a.service.GetInstitution(r.Context(),
		r.URL.Query().Get("aggregator"),
		r.PathValue("institutionID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, institutionToPayload(institution))
}

func (a *RESTAdapter) handleInstitutionCredentials(w http.ResponseWriter, r *http.Request) {
	credentials, err := a.service.ListInstitutionCredentials(r.Context(),
		r.URL.Query().Get("aggregator"),
		r.PathValue("institutionID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": credentialsToPayload(credentials)})
}

func (a *RESTAdapter) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	err := a.service.DeleteConnection(r.Context(),
		query.Get("aggregator"),
		r.PathValue("connectionID"),
		query.Get("userId"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *RESTAdapter) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := a.service.DeleteUser(r.Context(),
		r.URL.Query().Get("aggregator"),
		r.PathValue("userID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOAuthRedirect terminates the vendor's browser hop. Every failure
// renders the same generic page; the distinction lives in the logs only.
func (a *RESTAdapter) handleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if a.dispatcher == nil {
		renderGenericErrorPage(w)
		return
	}
	result, err := a.dispatcher.Dispatch(r.Context(), core.InboundRequest{
		Aggregator: r.PathValue("aggregator"),
		Surface:    inbound.SurfaceRedirect,
		Query:      flattenQuery(r),
		Headers:    flattenHeaders(r),
	})
	if err != nil || !result.Accepted {
		renderGenericErrorPage(w)
		return
	}
	renderCompletionPage(w, result)
}

// handleWebhook acknowledges every delivery with the same small body.
// Vendors only need to know we received it; the correlation store holds
// the actual outcome.
func (a *RESTAdapter) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ack := map[string]bool{"acknowledged": true}
	if a.dispatcher == nil {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	result, err := a.dispatcher.Dispatch(r.Context(), core.InboundRequest{
		Aggregator: r.PathValue("aggregator"),
		Surface:    inbound.SurfaceWebhook,
		Query:      flattenQuery(r),
		Headers:    flattenHeaders(r),
		Body:       body,
	})
	status := http.StatusOK
	if err == nil && result.StatusCode != 0 {
		status = result.StatusCode
	}
	writeJSON(w, status, ack)
}

func (a *RESTAdapter) handleGetData(w http.ResponseWriter, r *http.Request) {
	kind, req, err := dataRequestFromHTTP(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	payload, err := a.service.GetData(r.Context(), kind, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *RESTAdapter) handleGetVC(w http.ResponseWriter, r *http.Request) {
	if a.bridge == nil {
		badRequest(w, "verifiable credentials are not enabled")
		return
	}
	kind, req, err := dataRequestFromHTTP(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	payload, err := a.bridge.Issue(r.Context(), a.service, kind, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type dataRequestBody struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	AccountID    string `json:"accountId"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
}

// dataRequestFromHTTP reads the narrowing parameters from the query
// string; a POST body overrides field by field.
func dataRequestFromHTTP(r *http.Request) (core.DataKind, core.DataRequest, error) {
	kind, err := parseDataKind(r.PathValue("kind"))
	if err != nil {
		return "", core.DataRequest{}, err
	}
	query := r.URL.Query()
	params := dataRequestBody{
		UserID:       query.Get("userId"),
		ConnectionID: query.Get("connectionId"),
		AccountID:    query.Get("accountId"),
		StartTime:    query.Get("startTime"),
		EndTime:      query.Get("endTime"),
	}
	if r.Method == http.MethodPost {
		var body dataRequestBody
		if err := decodeJSONBody(r, &body); err == nil {
			mergeDataParams(&params, body)
		}
	}

	req := core.DataRequest{
		Aggregator:   r.PathValue("aggregator"),
		ConnectionID: params.ConnectionID,
		UserID:       params.UserID,
		AccountID:    params.AccountID,
	}
	if req.StartTime, err = parseTimeParam(params.StartTime, "startTime"); err != nil {
		return "", core.DataRequest{}, err
	}
	if req.EndTime, err = parseTimeParam(params.EndTime, "endTime"); err != nil {
		return "", core.DataRequest{}, err
	}
	return kind, req, nil
}

func mergeDataParams(params *dataRequestBody, body dataRequestBody) {
	if body.UserID != "" {
		params.UserID = body.UserID
	}
	if body.ConnectionID != "" {
		params.ConnectionID = body.ConnectionID
	}
	if body.AccountID != "" {
		params.AccountID = body.AccountID
	}
	if body.StartTime != "" {
		params.StartTime = body.StartTime
	}
	if body.EndTime != "" {
		params.EndTime = body.EndTime
	}
}

func parseDataKind(raw string) (core.DataKind, error) {
	switch core.DataKind(strings.ToLower(strings.TrimSpace(raw))) {
	case core.DataKindAccounts:
		return core.DataKindAccounts, nil
	case core.DataKindIdentity:
		return core.DataKindIdentity, nil
	case core.DataKindTransactions:
		return core.DataKindTransactions, nil
	default:
		return "", fmt.Errorf("transport: unknown data kind %q", raw)
	}
}

func parseTimeParam(raw string, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid %s, expected RFC3339: %w", name, err)
	}
	return &parsed, nil
}

func decodeJSONBody(r *http.Request, target any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxInboundBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("transport: invalid request body: %w", err)
	}
	return nil
}

func flattenQuery(r *http.Request) map[string]string {
	values := r.URL.Query()
	if len(values) == 0 {
		return nil
	}
	flat := make(map[string]string, len(values))
	for key := range values {
		flat[key] = values.Get(key)
	}
	return flat
}

func flattenHeaders(r *http.Request) map[string]string {
	if len(r.Header) == 0 {
		return nil
	}
	flat := make(map[string]string, len(r.Header))
	for key := range r.Header {
		flat[strings.ToLower(key)] = r.Header.Get(key)
	}
	return flat
}
