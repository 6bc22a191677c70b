package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-connect/core"
	"github.com/goliatone/go-connect/vc"
	goerrors "github.com/goliatone/go-errors"
)

type stubService struct {
	createConnection   func(ctx context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error)
	getStatus          func(ctx context.Context, aggregator string, req core.ConnectionStatusRequest) (core.Connection, error)
	startWidgetSession func(ctx context.Context, req core.WidgetSessionRequest) (core.WidgetSession, error)
	getData            func(ctx context.Context, kind core.DataKind, req core.DataRequest) (map[string]any, error)
}

func (s *stubService) CreateConnection(ctx context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
	if s.createConnection != nil {
		return s.createConnection(ctx, aggregator, req, userID)
	}
	return core.Connection{}, nil
}

func (s *stubService) UpdateConnection(context.Context, string, core.UpdateConnectionRequest, string) (core.Connection, error) {
	return core.Connection{}, nil
}

func (s *stubService) GetConnection(context.Context, string, string, string) (core.Connection, error) {
	return core.Connection{}, nil
}

func (s *stubService) GetConnectionStatus(ctx context.Context, aggregator string, req core.ConnectionStatusRequest) (core.Connection, error) {
	if s.getStatus != nil {
		return s.getStatus(ctx, aggregator, req)
	}
	return core.Connection{}, nil
}

func (s *stubService) AnswerChallenge(context.Context, string, core.AnswerChallengeRequest, string, string) (bool, error) {
	return true, nil
}

func (s *stubService) ListConnections(context.Context, string, string) ([]core.Connection, error) {
	return nil, nil
}

func (s *stubService) ListConnectionCredentials(context.Context, string, string, string) ([]core.Credential, error) {
	return nil, nil
}

func (s *stubService) GetInstitution(context.Context, string, string) (core.Institution, error) {
	return core.Institution{}, nil
}

func (s *stubService) ListInstitutionCredentials(context.Context, string, string) ([]core.Credential, error) {
	return nil, nil
}

func (s *stubService) DeleteConnection(context.Context, string, string, string) error { return nil }
func (s *stubService) DeleteUser(context.Context, string, string) error               { return nil }

func (s *stubService) StartWidgetSession(ctx context.Context, req core.WidgetSessionRequest) (core.WidgetSession, error) {
	if s.startWidgetSession != nil {
		return s.startWidgetSession(ctx, req)
	}
	return core.WidgetSession{}, nil
}

func (s *stubService) ResolveCorrelation(context.Context, core.CorrelationOutcome) (core.PendingCorrelationRecord, error) {
	return core.PendingCorrelationRecord{}, nil
}

func (s *stubService) GetData(ctx context.Context, kind core.DataKind, req core.DataRequest) (map[string]any, error) {
	if s.getData != nil {
		return s.getData(ctx, kind, req)
	}
	return map[string]any{}, nil
}

type stubDispatcher struct {
	result core.InboundResult
	last   core.InboundRequest
}

func (d *stubDispatcher) Dispatch(_ context.Context, req core.InboundRequest) (core.InboundResult, error) {
	d.last = req
	return d.result, nil
}

func newTestAdapter(t *testing.T, cfg Config) *RESTAdapter {
	t.Helper()
	if cfg.Service == nil {
		cfg.Service = &stubService{}
	}
	adapter, err := NewRESTAdapter(cfg)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestWidgetSession_MissingTargetOriginIsBadRequest(t *testing.T) {
	service := &stubService{
		startWidgetSession: func(_ context.Context, req core.WidgetSessionRequest) (core.WidgetSession, error) {
			if req.TargetOrigin == "" {
				return core.WidgetSession{}, goerrors.New("core: targetOrigin is required", goerrors.CategoryValidation).
					WithTextCode(core.ConnectErrorBadInput).
					WithCode(http.StatusBadRequest)
			}
			return core.WidgetSession{SessionID: "sess-1", TargetOrigin: req.TargetOrigin}, nil
		},
	}
	adapter := newTestAdapter(t, Config{Service: service})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/widget/session", strings.NewReader(`{"userId":"user-1"}`))
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.StatusCode != http.StatusBadRequest || !strings.Contains(body.Message, "targetOrigin") {
		t.Fatalf("expected error naming targetOrigin, got %+v", body)
	}
}

func TestCreateConnection_RoundTrip(t *testing.T) {
	service := &stubService{
		createConnection: func(_ context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
			if aggregator != "mx" || userID != "user-1" || req.InstitutionID != "inst-1" {
				t.Fatalf("unexpected request: aggregator=%q user=%q institution=%q", aggregator, userID, req.InstitutionID)
			}
			return core.Connection{
				ID:             "token-1",
				Aggregator:     aggregator,
				UserID:         userID,
				Status:         core.ConnectionStatusPending,
				IsOAuth:        true,
				OAuthWindowURI: "https://vendor.example/oauth?state=token-1",
			}, nil
		},
	}
	adapter := newTestAdapter(t, Config{Service: service})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(
		`{"aggregator":"mx","userId":"user-1","institutionId":"inst-1","jobTypes":["aggregate"]}`,
	))
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var body connectionPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "token-1" || body.Status != "PENDING" || !body.IsOAuth || body.OAuthWindowURI == "" {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestConnectionStatus_QueryParamsForwarded(t *testing.T) {
	var captured core.ConnectionStatusRequest
	service := &stubService{
		getStatus: func(_ context.Context, _ string, req core.ConnectionStatusRequest) (core.Connection, error) {
			captured = req
			return core.Connection{ID: req.ConnectionID, Status: core.ConnectionStatusConnected}, nil
		},
	}
	adapter := newTestAdapter(t, Config{Service: service})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet,
		"/connections/member-1/status?aggregator=sophtron&userId=user-1&jobId=job-9&singleAccountSelect=true", nil)
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if captured.ConnectionID != "member-1" || captured.JobID != "job-9" || !captured.SingleAccountSelect || captured.UserID != "user-1" {
		t.Fatalf("unexpected status request: %+v", captured)
	}
}

func TestOAuthRedirect_PostsToStoredTargetOrigin(t *testing.T) {
	dispatcher := &stubDispatcher{result: core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Outcome: core.CorrelationOutcome{
			Token:        "token-1",
			Status:       core.ConnectionStatusConnected,
			ConnectionID: "member-1",
		},
		Metadata: map[string]any{
			"aggregator":    "mx",
			"session_id":    "sess-1",
			"target_origin": "https://app.example",
		},
	}}
	adapter := newTestAdapter(t, Config{Dispatcher: dispatcher})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/oauth/mx/redirect_from?state=token-1&status=success", nil)
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	html := recorder.Body.String()
	if !strings.Contains(html, "https://app.example") {
		t.Fatalf("expected stored target origin in page, got: %s", html)
	}
	if !strings.Contains(html, "oauthComplete/success") {
		t.Fatalf("expected success message type in page, got: %s", html)
	}
	if !strings.Contains(html, "window.close()") {
		t.Fatalf("expected close offer in page")
	}
	if dispatcher.last.Surface != "redirect" || dispatcher.last.Aggregator != "mx" {
		t.Fatalf("unexpected dispatch request: %+v", dispatcher.last)
	}
	if dispatcher.last.Query["state"] != "token-1" {
		t.Fatalf("expected query forwarded, got %+v", dispatcher.last.Query)
	}
}

func TestOAuthRedirect_RejectedRendersGenericPage(t *testing.T) {
	dispatcher := &stubDispatcher{result: core.InboundResult{
		Accepted:   false,
		StatusCode: http.StatusOK,
		Metadata:   map[string]any{"generic": true},
	}}
	adapter := newTestAdapter(t, Config{Dispatcher: dispatcher})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/oauth/plaid/redirect_from", nil)
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	html := recorder.Body.String()
	if !strings.Contains(html, "Error") {
		t.Fatalf("expected generic error page, got: %s", html)
	}
	if strings.Contains(html, "postMessage") {
		t.Fatalf("generic page must not post to an opener")
	}
}

func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	dispatcher := &stubDispatcher{result: core.InboundResult{
		Accepted:   false,
		StatusCode: http.StatusOK,
		Metadata:   map[string]any{"generic": true},
	}}
	adapter := newTestAdapter(t, Config{Dispatcher: dispatcher})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/webhook/mx",
		strings.NewReader(`{"type":"CONNECTION_STATUS_UPDATED","request_id":"expired-token"}`))
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 ack for unresolvable webhook, got %d", recorder.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !body["acknowledged"] {
		t.Fatalf("expected acknowledgement body, got %v", body)
	}
	if len(dispatcher.last.Body) == 0 {
		t.Fatalf("expected webhook body forwarded to dispatcher")
	}
}

func TestGetData_UnknownKindIsBadRequest(t *testing.T) {
	adapter := newTestAdapter(t, Config{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/data/mx/balances?userId=user-1", nil)
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown data kind, got %d", recorder.Code)
	}
}

func TestGetVC_ReturnsSignedCredential(t *testing.T) {
	bridge, err := vc.New(vc.Config{SigningKey: []byte("test-secret")})
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}
	service := &stubService{
		getData: func(_ context.Context, kind core.DataKind, req core.DataRequest) (map[string]any, error) {
			if kind != core.DataKindAccounts || req.UserID != "user-1" {
				t.Fatalf("unexpected data request: kind=%s req=%+v", kind, req)
			}
			return map[string]any{"accounts": []any{map[string]any{"id": "acct-1"}}}, nil
		},
	}
	adapter := newTestAdapter(t, Config{Service: service, Bridge: bridge})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/vc/mx/accounts?userId=user-1&connectionId=member-1", nil)
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	claims, err := bridge.Verify(body["jwt"])
	if err != nil {
		t.Fatalf("verify credential: %v", err)
	}
	if _, ok := claims["vc"]; !ok {
		t.Fatalf("expected vc claim, got %v", claims)
	}
}

func TestAdapterErrorsSurfaceMappedEnvelope(t *testing.T) {
	service := &stubService{
		createConnection: func(context.Context, string, core.CreateConnectionRequest, string) (core.Connection, error) {
			return core.Connection{}, goerrors.New("An unexpected error occurred", goerrors.CategoryExternal).
				WithTextCode(core.ConnectErrorUpstreamFailed).
				WithCode(http.StatusBadRequest)
		},
	}
	adapter := newTestAdapter(t, Config{Service: service})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(`{"aggregator":"mx"}`))
	adapter.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Message != "An unexpected error occurred" || body.TextCode != core.ConnectErrorUpstreamFailed {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}
