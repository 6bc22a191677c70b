package testbank

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-connect/core"
)

func TestCredentialFlow_Deterministic(t *testing.T) {
	ctx := context.Background()
	adapter := New(Config{})

	conn, err := adapter.CreateConnection(ctx, core.CreateConnectionRequest{
		InstitutionID: InstitutionCredentials,
		Credentials:   []core.Credential{{FieldName: "username", Value: "u"}, {FieldName: "password", Value: "hunter2"}},
	}, "tb-user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conn.Status != core.ConnectionStatusConnected {
		t.Fatalf("expected CONNECTED for plain credentials, got %s", conn.Status)
	}
}

func TestCredentialFlow_ChallengeAndAnswer(t *testing.T) {
	ctx := context.Background()
	adapter := New(Config{})

	conn, err := adapter.CreateConnection(ctx, core.CreateConnectionRequest{
		InstitutionID: InstitutionCredentials,
		Credentials:   []core.Credential{{FieldName: "password", Value: PasswordChallenge}},
	}, "tb-user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conn.Status != core.ConnectionStatusChallenged || len(conn.Challenges) != 1 {
		t.Fatalf("expected challenge, got %+v", conn)
	}

	challenge := conn.Challenges[0]
	challenge.Response = "000000"
	answered, err := adapter.AnswerChallenge(ctx, core.AnswerChallengeRequest{
		ConnectionID: conn.ID,
		Challenges:   []core.Challenge{challenge},
	}, "", "tb-user-1")
	if err != nil || !answered {
		t.Fatalf("answer: answered=%v err=%v", answered, err)
	}

	resolved, err := adapter.GetConnectionByID(ctx, conn.ID, "tb-user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resolved.Status != core.ConnectionStatusConnected || len(resolved.Challenges) != 0 {
		t.Fatalf("expected CONNECTED after answer, got %+v", resolved)
	}
}

func TestOAuthFlow_RedirectCompletes(t *testing.T) {
	ctx := context.Background()
	adapter := New(Config{})

	conn, err := adapter.CreateConnection(ctx, core.CreateConnectionRequest{
		InstitutionID: InstitutionOAuth,
	}, "tb-user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conn.Status != core.ConnectionStatusPending || !strings.Contains(conn.OAuthWindowURI, "state="+conn.ID) {
		t.Fatalf("expected pending oauth connection with token in window uri, got %+v", conn)
	}

	handler := RedirectHandler{Adapter: adapter}
	outcome, err := handler.HandleOAuthRedirect(ctx, core.InboundRequest{
		Query: map[string]string{"state": conn.ID, "code": "success"},
	})
	if err != nil {
		t.Fatalf("redirect: %v", err)
	}
	if outcome.Status != core.ConnectionStatusConnected {
		t.Fatalf("expected CONNECTED outcome, got %s", outcome.Status)
	}

	resolved, err := adapter.GetConnectionByID(ctx, conn.ID, "tb-user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resolved.Status != core.ConnectionStatusConnected || resolved.OAuthWindowURI != "" {
		t.Fatalf("expected terminal connection, got %+v", resolved)
	}
}

func TestDeniedPasswordAndSimulatedFailure(t *testing.T) {
	ctx := context.Background()
	adapter := New(Config{})

	conn, err := adapter.CreateConnection(ctx, core.CreateConnectionRequest{
		InstitutionID: InstitutionCredentials,
		Credentials:   []core.Credential{{FieldName: "password", Value: PasswordDenied}},
	}, "tb-user-1")
	if err != nil {
		t.Fatalf("create denied: %v", err)
	}
	if conn.Status != core.ConnectionStatusDenied {
		t.Fatalf("expected DENIED, got %s", conn.Status)
	}

	if _, err := adapter.CreateConnection(ctx, core.CreateConnectionRequest{
		InstitutionID: InstitutionCredentials,
		Credentials:   []core.Credential{{FieldName: "password", Value: PasswordError}},
	}, "tb-user-1"); err == nil {
		t.Fatalf("expected simulated upstream failure")
	}
}

func TestDeleteUser_RemovesConnections(t *testing.T) {
	ctx := context.Background()
	adapter := New(Config{})

	resolved, err := adapter.ResolveUserID(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := adapter.CreateConnection(ctx, core.CreateConnectionRequest{
		InstitutionID: InstitutionCredentials,
		Credentials:   []core.Credential{{FieldName: "password", Value: "x"}},
	}, resolved); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := adapter.DeleteUser(ctx, resolved); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	connections, err := adapter.ListConnections(ctx, resolved)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(connections) != 0 {
		t.Fatalf("expected user's connections removed, got %d", len(connections))
	}
	if _, err := adapter.ResolveUserID(ctx, "user-1", true); err == nil {
		t.Fatalf("expected user mapping removed")
	}
}
