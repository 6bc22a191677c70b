package inbound

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-connect/core"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	SurfaceRedirect = "redirect"
	SurfaceWebhook  = "webhook"
)

var errNoHandler = errors.New("inbound: no handler for surface")

// CorrelationResolver is the single mutation both completion paths feed.
type CorrelationResolver interface {
	ResolveCorrelation(ctx context.Context, outcome core.CorrelationOutcome) (core.PendingCorrelationRecord, error)
}

// Dispatcher routes an external completion event to the aggregator's
// redirect or webhook handler and resolves the correlation record. Double
// delivery is not deduplicated: the correlation store is last-write-wins
// and both deliveries converge on the same terminal record.
//
// An unknown aggregator, a missing handler, a malformed payload and a stale
// token all collapse to the same generic error result, so an external
// caller cannot distinguish "wrong aggregator" from "expired token".
type Dispatcher struct {
	registry core.Registry
	resolver CorrelationResolver
	logger   core.Logger
}

func NewDispatcher(registry core.Registry, resolver CorrelationResolver, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		resolver: resolver,
		logger:   glog.Ensure(logger),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if d == nil || d.registry == nil || d.resolver == nil {
		return genericErrorResult(req.Surface), nil
	}
	req.Aggregator = strings.TrimSpace(strings.ToLower(req.Aggregator))
	req.Surface = strings.TrimSpace(strings.ToLower(req.Surface))
	if req.Aggregator == "" || !isSupportedSurface(req.Surface) {
		d.logDrop(ctx, req, "unsupported inbound request", nil)
		return genericErrorResult(req.Surface), nil
	}

	entry, ok := d.registry.Get(req.Aggregator)
	if !ok {
		d.logDrop(ctx, req, "aggregator not registered", nil)
		return genericErrorResult(req.Surface), nil
	}

	outcome, err := d.extractOutcome(ctx, entry, req)
	if err != nil {
		d.logDrop(ctx, req, "outcome extraction failed", err)
		return genericErrorResult(req.Surface), nil
	}

	record, err := d.resolver.ResolveCorrelation(ctx, outcome)
	if err != nil {
		d.logDrop(ctx, req, "correlation resolution failed", err)
		return genericErrorResult(req.Surface), nil
	}

	metadata := map[string]any{
		"aggregator":    req.Aggregator,
		"surface":       req.Surface,
		"session_id":    record.SessionID,
		"target_origin": record.TargetOrigin,
		"scheme":        record.Scheme,
		"connection_id": record.ResolvedConnectionID,
	}
	if record.OAuthReferralSource != "" {
		metadata["oauth_referral_source"] = record.OAuthReferralSource
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Outcome:    outcome,
		Metadata:   metadata,
	}, nil
}

func (d *Dispatcher) extractOutcome(ctx context.Context, entry core.AdapterEntry, req core.InboundRequest) (core.CorrelationOutcome, error) {
	switch req.Surface {
	case SurfaceRedirect:
		if entry.Redirect == nil {
			return core.CorrelationOutcome{}, errNoHandler
		}
		return entry.Redirect.HandleOAuthRedirect(ctx, req)
	default:
		if entry.Webhook == nil {
			return core.CorrelationOutcome{}, errNoHandler
		}
		return entry.Webhook.HandleWebhook(ctx, req)
	}
}

func (d *Dispatcher) logDrop(ctx context.Context, req core.InboundRequest, message string, err error) {
	if d == nil || d.logger == nil {
		return
	}
	logger := d.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	args := []any{"aggregator", req.Aggregator, "surface", req.Surface}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	logger.Warn(message, args...)
}

// genericErrorResult is the uniform external response for anything that
// cannot be resolved. The transport renders it as the "Error" page for a
// browser or the small JSON ack for a webhook sender.
func genericErrorResult(surface string) core.InboundResult {
	return core.InboundResult{
		Accepted:   false,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"surface": strings.TrimSpace(strings.ToLower(surface)),
			"generic": true,
		},
	}
}

func isSupportedSurface(surface string) bool {
	switch surface {
	case SurfaceRedirect, SurfaceWebhook:
		return true
	default:
		return false
	}
}
