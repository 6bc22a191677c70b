package core

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestConnectErrorMapper_UnclassifiedBecomesGeneric400(t *testing.T) {
	mapped := connectErrorMapper(fmt.Errorf("mx: api token rejected with status 511"))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unclassified failure, got %d", mapped.Code)
	}
	if mapped.Message != genericErrorMessage {
		t.Fatalf("expected generic message, got %q", mapped.Message)
	}
	if mapped.TextCode != ConnectErrorUpstreamFailed {
		t.Fatalf("expected upstream text code, got %q", mapped.TextCode)
	}
}

func TestConnectErrorMapper_SentinelCategories(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{
			name:     "user not resolved",
			err:      fmt.Errorf("%w: user-1", ErrUserNotResolved),
			wantCode: http.StatusNotFound,
			wantText: ConnectErrorUserNotResolved,
		},
		{
			name:     "correlation not found",
			err:      fmt.Errorf("%w: token-1", ErrCorrelationNotFound),
			wantCode: http.StatusNotFound,
			wantText: ConnectErrorCorrelationNotFound,
		},
		{
			name:     "invalid job type",
			err:      fmt.Errorf("%w: %q", ErrInvalidJobType, "balances"),
			wantCode: http.StatusBadRequest,
			wantText: ConnectErrorBadInput,
		},
		{
			name:     "challenge shape mismatch",
			err:      fmt.Errorf("%w: empty response", ErrChallengeShapeMismatch),
			wantCode: http.StatusBadRequest,
			wantText: ConnectErrorBadInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := connectErrorMapper(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.Code != tc.wantCode {
				t.Fatalf("code: got %d want %d", mapped.Code, tc.wantCode)
			}
			if mapped.TextCode != tc.wantText {
				t.Fatalf("text code: got %q want %q", mapped.TextCode, tc.wantText)
			}
		})
	}
}

func TestConnectErrorMapper_MessageHeuristics(t *testing.T) {
	mapped := connectErrorMapper(fmt.Errorf(`aggregator "plaid" is not registered`))
	if mapped.Code != http.StatusNotFound || mapped.TextCode != ConnectErrorAggregatorNotFound {
		t.Fatalf("unexpected mapping for unregistered aggregator: %d %q", mapped.Code, mapped.TextCode)
	}

	mapped = connectErrorMapper(fmt.Errorf("core: institution id is required"))
	if mapped.Code != http.StatusBadRequest || mapped.TextCode != ConnectErrorBadInput {
		t.Fatalf("unexpected mapping for validation failure: %d %q", mapped.Code, mapped.TextCode)
	}
}

func TestConnectErrorMapper_PreservesRichErrors(t *testing.T) {
	original := goerrors.New("widget session expired", goerrors.CategoryValidation).
		WithTextCode("CONNECT_SESSION_EXPIRED")
	mapped := connectErrorMapper(original)
	if mapped.TextCode != "CONNECT_SESSION_EXPIRED" {
		t.Fatalf("expected original text code preserved, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected validation to fill in 400, got %d", mapped.Code)
	}
	if mapped.Message != "widget session expired" {
		t.Fatalf("expected original message preserved, got %q", mapped.Message)
	}
}

func TestConnectErrorMapper_NeverFiveHundred(t *testing.T) {
	samples := []error{
		fmt.Errorf("connection reset by peer"),
		fmt.Errorf("sophtron: job poll timed out"),
		goerrors.New("boom", goerrors.CategoryInternal),
		goerrors.New("", goerrors.CategoryExternal),
	}
	for _, sample := range samples {
		mapped := connectErrorMapper(sample)
		if mapped.Code >= http.StatusInternalServerError {
			t.Fatalf("mapped %v to %d; internal detail must not surface as 5xx", sample, mapped.Code)
		}
		if mapped.Message == "" {
			t.Fatalf("mapped %v to an empty message", sample)
		}
	}
}

func TestConnectErrorMapper_NilPassthrough(t *testing.T) {
	if mapped := connectErrorMapper(nil); mapped != nil {
		t.Fatalf("expected nil for nil input, got %v", mapped)
	}
}
