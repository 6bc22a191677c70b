// Package sqlstore is the durable store set behind the connect service:
// correlation records for suspended OAuth flows and the resolved-user
// cache, both on bun.
package sqlstore

import (
	"time"

	"github.com/goliatone/go-connect/core"
	"github.com/uptrace/bun"
)

type correlationRecord struct {
	bun.BaseModel `bun:"table:connect_correlation_records,alias:ccr"`

	Token                string         `bun:"token,pk"`
	Aggregator           string         `bun:"aggregator,notnull"`
	UserID               string         `bun:"user_id,notnull"`
	SessionID            string         `bun:"session_id"`
	JobTypes             []string       `bun:"job_types,type:jsonb,notnull"`
	Scheme               string         `bun:"scheme"`
	OAuthReferralSource  string         `bun:"oauth_referral_source"`
	TargetOrigin         string         `bun:"target_origin"`
	OAuthWindowURI       string         `bun:"oauth_window_uri"`
	Metadata             map[string]any `bun:"metadata,type:jsonb,notnull"`
	Resolved             bool           `bun:"resolved,notnull"`
	ResolvedConnectionID string         `bun:"resolved_connection_id"`
	FinalStatus          string         `bun:"final_status"`
	ErrorReason          string         `bun:"error_reason"`
	ResolvedAt           *time.Time     `bun:"resolved_at,nullzero"`
	CreatedAt            time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ExpiresAt            time.Time      `bun:"expires_at,notnull"`
}

func newCorrelationRecord(in core.PendingCorrelationRecord) *correlationRecord {
	record := &correlationRecord{
		Token:                in.Token,
		Aggregator:           in.Aggregator,
		UserID:               in.UserID,
		SessionID:            in.SessionID,
		JobTypes:             append([]string(nil), in.JobTypes...),
		Scheme:               in.Scheme,
		OAuthReferralSource:  in.OAuthReferralSource,
		TargetOrigin:         in.TargetOrigin,
		OAuthWindowURI:       in.OAuthWindowURI,
		Metadata:             copyAnyMap(in.Metadata),
		Resolved:             in.Resolved,
		ResolvedConnectionID: in.ResolvedConnectionID,
		FinalStatus:          string(in.FinalStatus),
		ErrorReason:          in.ErrorReason,
		CreatedAt:            in.CreatedAt,
		ExpiresAt:            in.ExpiresAt,
	}
	if !in.ResolvedAt.IsZero() {
		resolvedAt := in.ResolvedAt
		record.ResolvedAt = &resolvedAt
	}
	return record
}

func (r *correlationRecord) toDomain() core.PendingCorrelationRecord {
	out := core.PendingCorrelationRecord{
		Token:                r.Token,
		Aggregator:           r.Aggregator,
		UserID:               r.UserID,
		SessionID:            r.SessionID,
		JobTypes:             append([]string(nil), r.JobTypes...),
		Scheme:               r.Scheme,
		OAuthReferralSource:  r.OAuthReferralSource,
		TargetOrigin:         r.TargetOrigin,
		OAuthWindowURI:       r.OAuthWindowURI,
		Metadata:             copyAnyMap(r.Metadata),
		Resolved:             r.Resolved,
		ResolvedConnectionID: r.ResolvedConnectionID,
		FinalStatus:          core.ConnectionStatus(r.FinalStatus),
		ErrorReason:          r.ErrorReason,
		CreatedAt:            r.CreatedAt,
		ExpiresAt:            r.ExpiresAt,
	}
	if r.ResolvedAt != nil {
		out.ResolvedAt = *r.ResolvedAt
	}
	return out
}

type resolvedUserRecord struct {
	bun.BaseModel `bun:"table:connect_resolved_users,alias:cru"`

	ID         string    `bun:"id,pk"`
	Aggregator string    `bun:"aggregator,notnull,unique:uq_resolved_user"`
	UserID     string    `bun:"user_id,notnull,unique:uq_resolved_user"`
	ResolvedID string    `bun:"resolved_id,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
