package connect_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	connect "github.com/goliatone/go-connect"
	"github.com/goliatone/go-connect/adapters/testbank"
	"github.com/goliatone/go-connect/core"
	"github.com/goliatone/go-connect/inbound"
	"github.com/goliatone/go-connect/transport"
	"github.com/goliatone/go-connect/vc"
)

// The widget flow exercised here is the composed stack: orchestrator,
// registry, inbound dispatcher, REST transport and VC bridge, with the
// deterministic test bank adapter standing in for a live aggregator.
func newWidgetStack(t *testing.T) *httptest.Server {
	t.Helper()

	adapter := testbank.New(testbank.Config{})
	registry := core.NewAdapterRegistry()
	if err := registry.Register(core.AdapterEntry{
		Adapter:  adapter,
		Redirect: testbank.RedirectHandler{Adapter: adapter},
		Data:     testbank.DataSource{},
	}); err != nil {
		t.Fatalf("register adapter: %v", err)
	}

	svc, err := connect.NewService(connect.DefaultConfig(), connect.WithRegistry(registry))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	bridge, err := vc.New(vc.Config{SigningKey: []byte("integration-secret")})
	if err != nil {
		t.Fatalf("new vc bridge: %v", err)
	}

	rest, err := transport.NewRESTAdapter(transport.Config{
		Service:    svc,
		Dispatcher: inbound.NewDispatcher(registry, svc, nil),
		Bridge:     bridge,
	})
	if err != nil {
		t.Fatalf("new rest adapter: %v", err)
	}

	server := httptest.NewServer(rest.Handler())
	t.Cleanup(server.Close)
	return server
}

func TestWidgetFlow_OAuthRoundTripOverHTTP(t *testing.T) {
	server := newWidgetStack(t)

	session := postJSON(t, server, "/widget/session", map[string]any{
		"userId":       "user-1",
		"targetOrigin": "https://app.example",
	}, http.StatusCreated)
	sessionID, _ := session["sessionId"].(string)
	if sessionID == "" {
		t.Fatalf("expected a session id, got %#v", session)
	}

	created := postJSON(t, server, "/connections", map[string]any{
		"aggregator":    "testbank",
		"userId":        "user-1",
		"institutionId": testbank.InstitutionOAuth,
		"metadata": map[string]any{
			"session_id":    sessionID,
			"target_origin": "https://app.example",
		},
	}, http.StatusCreated)
	if created["status"] != "PENDING" || created["isOauth"] != true {
		t.Fatalf("expected pending oauth connection, got %#v", created)
	}
	windowURI, _ := created["oauthWindowUri"].(string)
	parsed, err := url.Parse(windowURI)
	if err != nil {
		t.Fatalf("parse oauth window uri %q: %v", windowURI, err)
	}
	token := parsed.Query().Get("state")
	if token == "" || token != created["id"] {
		t.Fatalf("expected the window state to carry the connection id, got %q", windowURI)
	}

	// The widget polls by token while the popup is open.
	pending := getJSON(t, server,
		"/connections/"+token+"/status?aggregator=testbank&userId=user-1",
		http.StatusOK)
	if pending["status"] != "PENDING" {
		t.Fatalf("expected PENDING before the redirect, got %#v", pending)
	}

	page := getBody(t, server,
		"/oauth/testbank/redirect_from?state="+token+"&code=success",
		http.StatusOK)
	if !strings.Contains(page, "oauthComplete/success") || !strings.Contains(page, "https://app.example") {
		t.Fatalf("expected success completion page posting to the stored origin, got:\n%s", page)
	}

	connected := getJSON(t, server,
		"/connections/"+token+"/status?aggregator=testbank&userId=user-1",
		http.StatusOK)
	if connected["status"] != "CONNECTED" {
		t.Fatalf("expected CONNECTED after the redirect, got %#v", connected)
	}

	// A second delivery is an idempotent overwrite, not an error page.
	replay := getBody(t, server,
		"/oauth/testbank/redirect_from?state="+token+"&code=success",
		http.StatusOK)
	if !strings.Contains(replay, "oauthComplete/success") {
		t.Fatalf("expected replayed redirect to render the success page, got:\n%s", replay)
	}

	accounts := getJSON(t, server,
		"/data/testbank/accounts?userId=user-1&connectionId="+token,
		http.StatusOK)
	if _, ok := accounts["accounts"]; !ok {
		t.Fatalf("expected accounts payload, got %#v", accounts)
	}

	credential := getJSON(t, server,
		"/vc/testbank/accounts?userId=user-1&connectionId="+token,
		http.StatusOK)
	if raw, _ := credential["jwt"].(string); raw == "" {
		t.Fatalf("expected a signed credential, got %#v", credential)
	}
}

func TestWidgetFlow_CredentialChallengeRoundTripOverHTTP(t *testing.T) {
	server := newWidgetStack(t)

	created := postJSON(t, server, "/connections", map[string]any{
		"aggregator":    "testbank",
		"userId":        "user-2",
		"institutionId": testbank.InstitutionCredentials,
		"credentials": []map[string]any{
			{"fieldName": "username", "value": "jo"},
			{"fieldName": "password", "value": testbank.PasswordChallenge},
		},
	}, http.StatusCreated)
	if created["status"] != "CHALLENGED" {
		t.Fatalf("expected CHALLENGED connection, got %#v", created)
	}
	challenges, _ := created["challenges"].([]any)
	if len(challenges) != 1 {
		t.Fatalf("expected one outstanding challenge, got %#v", created)
	}
	challenge, _ := challenges[0].(map[string]any)
	connectionID, _ := created["id"].(string)

	answered := postJSON(t, server, "/connections/"+connectionID+"/challenges", map[string]any{
		"aggregator": "testbank",
		"userId":     "user-2",
		"challenges": []map[string]any{
			{"id": challenge["id"], "type": challenge["type"], "response": "123456"},
		},
	}, http.StatusOK)
	if answered["answered"] != true {
		t.Fatalf("expected the challenge answer to be accepted, got %#v", answered)
	}

	status := getJSON(t, server,
		"/connections/"+connectionID+"/status?aggregator=testbank&userId=user-2",
		http.StatusOK)
	if status["status"] != "CONNECTED" {
		t.Fatalf("expected CONNECTED after the answer, got %#v", status)
	}
}

func TestWidgetFlow_UnknownRedirectRendersGenericPage(t *testing.T) {
	server := newWidgetStack(t)

	page := getBody(t, server,
		"/oauth/testbank/redirect_from?state=never-issued&code=success",
		http.StatusOK)
	if !strings.Contains(page, "Error") || strings.Contains(page, "postMessage") {
		t.Fatalf("expected the generic error page for an unknown token, got:\n%s", page)
	}
}

func postJSON(t *testing.T, server *httptest.Server, path string, body map[string]any, wantStatus int) map[string]any {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	res, err := http.Post(server.URL+path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return decodeResponse(t, res, path, wantStatus)
}

func getJSON(t *testing.T, server *httptest.Server, path string, wantStatus int) map[string]any {
	t.Helper()
	res, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return decodeResponse(t, res, path, wantStatus)
}

func getBody(t *testing.T, server *httptest.Server, path string, wantStatus int) string {
	t.Helper()
	res, err := http.Get(server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read %s body: %v", path, err)
	}
	if res.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d: %s", path, res.StatusCode, wantStatus, raw)
	}
	return string(raw)
}

func decodeResponse(t *testing.T, res *http.Response, path string, wantStatus int) map[string]any {
	t.Helper()
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read %s body: %v", path, err)
	}
	if res.StatusCode != wantStatus {
		t.Fatalf("%s: status %d, want %d: %s", path, res.StatusCode, wantStatus, raw)
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode %s response %q: %v", path, raw, err)
	}
	return decoded
}
