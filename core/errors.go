package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ConnectErrorBadInput            = "CONNECT_BAD_INPUT"
	ConnectErrorUserNotResolved     = "CONNECT_USER_NOT_RESOLVED"
	ConnectErrorAggregatorNotFound  = "CONNECT_AGGREGATOR_NOT_FOUND"
	ConnectErrorCorrelationNotFound = "CONNECT_CORRELATION_NOT_FOUND"
	ConnectErrorUpstreamFailed      = "CONNECT_UPSTREAM_FAILED"
	ConnectErrorInternal            = "CONNECT_INTERNAL_ERROR"
)

// genericErrorMessage is what unclassified failures surface as; internal
// detail never leaks to callers.
const genericErrorMessage = "An unexpected error occurred"

// connectErrorMapper is the single place adapter and store errors are
// normalized to the wire shape. Adapters throw; the orchestrator maps.
// Unclassified failures become 400 with the generic message, never a 500
// with internal detail.
func connectErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureConnectErrorEnvelope(richErr)
	}

	switch {
	case goerrors.Is(err, ErrUserNotResolved):
		return newConnectError(err.Error(), goerrors.CategoryNotFound, ConnectErrorUserNotResolved)
	case goerrors.Is(err, ErrCorrelationNotFound):
		return newConnectError(err.Error(), goerrors.CategoryNotFound, ConnectErrorCorrelationNotFound)
	case goerrors.Is(err, ErrInvalidJobType),
		goerrors.Is(err, ErrChallengeShapeMismatch),
		goerrors.Is(err, ErrInvalidConnectionStatusTransition):
		return newConnectError(err.Error(), goerrors.CategoryBadInput, ConnectErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "aggregator") && strings.Contains(msg, "not registered"):
		return newConnectError(err.Error(), goerrors.CategoryNotFound, ConnectErrorAggregatorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newConnectError(err.Error(), goerrors.CategoryBadInput, ConnectErrorBadInput)
	}

	return ensureConnectErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryExternal, genericErrorMessage).
			WithTextCode(ConnectErrorUpstreamFailed),
	)
}

func newConnectError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureConnectErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureConnectErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = connectHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultConnectTextCode(err.Category)
	}
	if strings.TrimSpace(err.Message) == "" {
		err.Message = genericErrorMessage
	}
	return err
}

func defaultConnectTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ConnectErrorBadInput
	case goerrors.CategoryNotFound:
		return ConnectErrorAggregatorNotFound
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return ConnectErrorUpstreamFailed
	default:
		return ConnectErrorInternal
	}
}

// connectHTTPStatus deliberately folds everything except not-found into
// 400: upstream vendor failures and unclassified errors surface as a bad
// request with a fixed body rather than a 500 carrying internals.
func connectHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
