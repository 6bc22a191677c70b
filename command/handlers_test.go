package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-connect/core"
)

type stubMutatingService struct {
	createConnectionFn   func(ctx context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error)
	updateConnectionFn   func(ctx context.Context, aggregator string, req core.UpdateConnectionRequest, userID string) (core.Connection, error)
	answerChallengeFn    func(ctx context.Context, aggregator string, req core.AnswerChallengeRequest, jobID string, userID string) (bool, error)
	deleteConnectionFn   func(ctx context.Context, aggregator string, connectionID string, userID string) error
	deleteUserFn         func(ctx context.Context, aggregator string, userID string) error
	startWidgetSessionFn func(ctx context.Context, req core.WidgetSessionRequest) (core.WidgetSession, error)
	resolveCorrelationFn func(ctx context.Context, outcome core.CorrelationOutcome) (core.PendingCorrelationRecord, error)
}

func (s stubMutatingService) CreateConnection(ctx context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
	if s.createConnectionFn != nil {
		return s.createConnectionFn(ctx, aggregator, req, userID)
	}
	return core.Connection{}, nil
}

func (s stubMutatingService) UpdateConnection(ctx context.Context, aggregator string, req core.UpdateConnectionRequest, userID string) (core.Connection, error) {
	if s.updateConnectionFn != nil {
		return s.updateConnectionFn(ctx, aggregator, req, userID)
	}
	return core.Connection{}, nil
}

func (s stubMutatingService) AnswerChallenge(ctx context.Context, aggregator string, req core.AnswerChallengeRequest, jobID string, userID string) (bool, error) {
	if s.answerChallengeFn != nil {
		return s.answerChallengeFn(ctx, aggregator, req, jobID, userID)
	}
	return false, nil
}

func (s stubMutatingService) DeleteConnection(ctx context.Context, aggregator string, connectionID string, userID string) error {
	if s.deleteConnectionFn != nil {
		return s.deleteConnectionFn(ctx, aggregator, connectionID, userID)
	}
	return nil
}

func (s stubMutatingService) DeleteUser(ctx context.Context, aggregator string, userID string) error {
	if s.deleteUserFn != nil {
		return s.deleteUserFn(ctx, aggregator, userID)
	}
	return nil
}

func (s stubMutatingService) StartWidgetSession(ctx context.Context, req core.WidgetSessionRequest) (core.WidgetSession, error) {
	if s.startWidgetSessionFn != nil {
		return s.startWidgetSessionFn(ctx, req)
	}
	return core.WidgetSession{}, nil
}

func (s stubMutatingService) ResolveCorrelation(ctx context.Context, outcome core.CorrelationOutcome) (core.PendingCorrelationRecord, error) {
	if s.resolveCorrelationFn != nil {
		return s.resolveCorrelationFn(ctx, outcome)
	}
	return core.PendingCorrelationRecord{}, nil
}

func TestCreateConnectionCommand_DelegatesAndStoresResult(t *testing.T) {
	expected := core.Connection{ID: "token-1", Status: core.ConnectionStatusPending, IsOAuth: true}
	called := false

	svc := stubMutatingService{
		createConnectionFn: func(_ context.Context, aggregator string, req core.CreateConnectionRequest, userID string) (core.Connection, error) {
			called = true
			if aggregator != "mx" || userID != "user-1" || req.InstitutionID != "inst-1" {
				t.Fatalf("unexpected payload: %q %q %#v", aggregator, userID, req)
			}
			return expected, nil
		},
	}

	cmd := NewCreateConnectionCommand(svc)
	collector := gocmd.NewResult[core.Connection]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, CreateConnectionMessage{
		Aggregator: "mx",
		UserID:     "user-1",
		Request:    core.CreateConnectionRequest{InstitutionID: "inst-1"},
	})
	if err != nil {
		t.Fatalf("execute create connection: %v", err)
	}
	if !called {
		t.Fatalf("expected service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.Status != expected.Status {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("answer challenge", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			answerChallengeFn: func(_ context.Context, aggregator string, req core.AnswerChallengeRequest, jobID string, userID string) (bool, error) {
				called = true
				if aggregator != "sophtron" || jobID != "job-1" || req.ConnectionID != "member-1" {
					t.Fatalf("unexpected payload: %q %q %#v", aggregator, jobID, req)
				}
				return true, nil
			},
		}
		cmd := NewAnswerChallengeCommand(svc)
		collector := gocmd.NewResult[bool]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := cmd.Execute(ctx, AnswerChallengeMessage{
			Aggregator: "sophtron",
			JobID:      "job-1",
			Request: core.AnswerChallengeRequest{
				ConnectionID: "member-1",
				Challenges:   []core.Challenge{{ID: "mfa", Type: core.ChallengeTypeToken, Response: "000000"}},
			},
		})
		if err != nil {
			t.Fatalf("execute answer challenge: %v", err)
		}
		if !called {
			t.Fatalf("expected answer challenge invocation")
		}
		answered, ok := collector.Load()
		if !ok || !answered {
			t.Fatalf("expected stored answer result, got %v ok=%v", answered, ok)
		}
	})

	t.Run("delete user", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			deleteUserFn: func(_ context.Context, aggregator string, userID string) error {
				called = true
				if aggregator != "mx" || userID != "user-1" {
					t.Fatalf("unexpected payload: %q %q", aggregator, userID)
				}
				return nil
			},
		}
		cmd := NewDeleteUserCommand(svc)
		if err := cmd.Execute(context.Background(), DeleteUserMessage{Aggregator: "mx", UserID: "user-1"}); err != nil {
			t.Fatalf("execute delete user: %v", err)
		}
		if !called {
			t.Fatalf("expected delete user invocation")
		}
	})

	t.Run("resolve correlation", func(t *testing.T) {
		svc := stubMutatingService{
			resolveCorrelationFn: func(_ context.Context, outcome core.CorrelationOutcome) (core.PendingCorrelationRecord, error) {
				if outcome.Token != "token-1" {
					t.Fatalf("unexpected outcome: %#v", outcome)
				}
				return core.PendingCorrelationRecord{Token: outcome.Token, Resolved: true}, nil
			},
		}
		cmd := NewResolveCorrelationCommand(svc)
		collector := gocmd.NewResult[core.PendingCorrelationRecord]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := cmd.Execute(ctx, ResolveCorrelationMessage{Outcome: core.CorrelationOutcome{
			Token:  "token-1",
			Status: core.ConnectionStatusConnected,
		}})
		if err != nil {
			t.Fatalf("execute resolve correlation: %v", err)
		}
		record, ok := collector.Load()
		if !ok || !record.Resolved {
			t.Fatalf("expected resolved record stored, got %#v ok=%v", record, ok)
		}
	})
}

func TestCommands_ServiceErrorsPassThrough(t *testing.T) {
	svc := stubMutatingService{
		createConnectionFn: func(context.Context, string, core.CreateConnectionRequest, string) (core.Connection, error) {
			return core.Connection{}, fmt.Errorf("vendor exploded")
		},
	}
	cmd := NewCreateConnectionCommand(svc)
	err := cmd.Execute(context.Background(), CreateConnectionMessage{
		Aggregator: "mx",
		Request:    core.CreateConnectionRequest{InstitutionID: "inst-1"},
	})
	if err == nil {
		t.Fatalf("expected service error to surface")
	}
}

func TestMessages_Validate(t *testing.T) {
	cases := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{"create missing aggregator", CreateConnectionMessage{Request: core.CreateConnectionRequest{InstitutionID: "i"}}, true},
		{"create missing institution", CreateConnectionMessage{Aggregator: "mx"}, true},
		{"create valid", CreateConnectionMessage{Aggregator: "mx", Request: core.CreateConnectionRequest{InstitutionID: "i"}}, false},
		{"update missing connection", UpdateConnectionMessage{Aggregator: "mx"}, true},
		{"answer missing challenges", AnswerChallengeMessage{Aggregator: "mx", Request: core.AnswerChallengeRequest{ConnectionID: "c"}}, true},
		{"delete user missing id", DeleteUserMessage{Aggregator: "mx"}, true},
		{"widget session missing origin", StartWidgetSessionMessage{}, true},
		{"widget session valid", StartWidgetSessionMessage{Request: core.WidgetSessionRequest{TargetOrigin: "https://app.example"}}, false},
		{"resolve missing token", ResolveCorrelationMessage{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
