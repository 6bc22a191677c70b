package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultCorrelationTTL        = 15 * time.Minute
	defaultCorrelationMaxEntries = 10_000
)

// PendingCorrelationRecord captures everything needed to resume a suspended
// OAuth/webhook flow after the external round trip: the widget session
// context written when the flow starts, and the outcome written once by the
// resolving redirect or webhook. It expires after a bounded TTL if never
// resolved.
type PendingCorrelationRecord struct {
	Token               string
	Aggregator          string
	UserID              string
	SessionID           string
	JobTypes            []string
	Scheme              string
	OAuthReferralSource string
	TargetOrigin        string
	OAuthWindowURI      string
	Metadata            map[string]any
	CreatedAt           time.Time
	ExpiresAt           time.Time

	Resolved             bool
	ResolvedConnectionID string
	FinalStatus          ConnectionStatus
	ErrorReason          string
	ResolvedAt           time.Time
}

// GenerateCorrelationToken mints the opaque token used as the OAuth state
// parameter and the correlation-store key.
func GenerateCorrelationToken() string {
	return uuid.NewString()
}

// MemoryCorrelationStore is the in-process CorrelationStore. Writes prune
// expired entries and enforce a bounded entry count; reads of absent or
// expired tokens report ErrCorrelationNotFound. Writes are last-write-wins
// with no optimistic concurrency check.
type MemoryCorrelationStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]PendingCorrelationRecord
}

func NewMemoryCorrelationStore(ttl time.Duration) *MemoryCorrelationStore {
	return NewMemoryCorrelationStoreWithLimits(ttl, defaultCorrelationMaxEntries)
}

func NewMemoryCorrelationStoreWithLimits(ttl time.Duration, maxEntries int) *MemoryCorrelationStore {
	if ttl <= 0 {
		ttl = defaultCorrelationTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCorrelationMaxEntries
	}
	return &MemoryCorrelationStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]PendingCorrelationRecord{},
	}
}

func (s *MemoryCorrelationStore) Set(_ context.Context, record PendingCorrelationRecord, ttl time.Duration) error {
	if s == nil {
		return fmt.Errorf("core: correlation store is not configured")
	}
	token := strings.TrimSpace(record.Token)
	if token == "" {
		return fmt.Errorf("core: correlation token is required")
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(ttl)
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.entries[token] = cloneCorrelationRecord(record)
	s.enforceLimitLocked()
	s.mu.Unlock()

	return nil
}

func (s *MemoryCorrelationStore) Get(_ context.Context, token string) (PendingCorrelationRecord, error) {
	if s == nil {
		return PendingCorrelationRecord{}, fmt.Errorf("core: correlation store is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return PendingCorrelationRecord{}, fmt.Errorf("core: correlation token is required")
	}

	s.mu.Lock()
	record, ok := s.entries[token]
	s.mu.Unlock()

	if !ok {
		return PendingCorrelationRecord{}, fmt.Errorf("%w: %s", ErrCorrelationNotFound, token)
	}
	if !record.ExpiresAt.IsZero() && time.Now().UTC().After(record.ExpiresAt) {
		return PendingCorrelationRecord{}, fmt.Errorf("%w: %s", ErrCorrelationNotFound, token)
	}
	return cloneCorrelationRecord(record), nil
}

func (s *MemoryCorrelationStore) pruneLocked(now time.Time) {
	for token, record := range s.entries {
		if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
			delete(s.entries, token)
		}
	}
}

func (s *MemoryCorrelationStore) enforceLimitLocked() {
	if len(s.entries) <= s.maxEntries {
		return
	}
	type aged struct {
		token     string
		createdAt time.Time
	}
	ordered := make([]aged, 0, len(s.entries))
	for token, record := range s.entries {
		ordered = append(ordered, aged{token: token, createdAt: record.CreatedAt})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].createdAt.Before(ordered[j].createdAt)
	})
	for _, entry := range ordered[:len(s.entries)-s.maxEntries] {
		delete(s.entries, entry.token)
	}
}

func cloneCorrelationRecord(record PendingCorrelationRecord) PendingCorrelationRecord {
	cloned := record
	cloned.JobTypes = append([]string(nil), record.JobTypes...)
	cloned.Metadata = copyAnyMap(record.Metadata)
	return cloned
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

// MemoryResolvedUserStore caches widget-user to aggregator-native id
// mappings so ResolveUserID runs once per session per aggregator.
type MemoryResolvedUserStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryResolvedUserStore() *MemoryResolvedUserStore {
	return &MemoryResolvedUserStore{entries: map[string]string{}}
}

func (s *MemoryResolvedUserStore) Get(_ context.Context, aggregator string, userID string) (string, bool, error) {
	if s == nil {
		return "", false, fmt.Errorf("core: resolved user store is not configured")
	}
	s.mu.RLock()
	resolved, ok := s.entries[resolvedUserKey(aggregator, userID)]
	s.mu.RUnlock()
	return resolved, ok, nil
}

func (s *MemoryResolvedUserStore) Set(_ context.Context, aggregator string, userID string, resolvedID string) error {
	if s == nil {
		return fmt.Errorf("core: resolved user store is not configured")
	}
	if strings.TrimSpace(resolvedID) == "" {
		return fmt.Errorf("core: resolved user id is required")
	}
	s.mu.Lock()
	s.entries[resolvedUserKey(aggregator, userID)] = strings.TrimSpace(resolvedID)
	s.mu.Unlock()
	return nil
}

func resolvedUserKey(aggregator string, userID string) string {
	return strings.TrimSpace(aggregator) + ":" + strings.TrimSpace(userID)
}
