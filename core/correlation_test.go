package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCorrelationStore_RoundTripIsNonConsuming(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCorrelationStore(time.Minute)

	record := PendingCorrelationRecord{
		Token:          "token-1",
		Aggregator:     "mx",
		UserID:         "user-1",
		JobTypes:       []string{"aggregate"},
		OAuthWindowURI: "https://oauth.example/window",
	}
	if err := store.Set(ctx, record, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := store.Get(ctx, "token-1")
		if err != nil {
			t.Fatalf("get #%d: %v", i, err)
		}
		if got.OAuthWindowURI != record.OAuthWindowURI {
			t.Fatalf("get #%d: window uri %q", i, got.OAuthWindowURI)
		}
	}
}

func TestMemoryCorrelationStore_UnknownTokenReportsNotFound(t *testing.T) {
	store := NewMemoryCorrelationStore(time.Minute)
	if _, err := store.Get(context.Background(), "never-written"); !errors.Is(err, ErrCorrelationNotFound) {
		t.Fatalf("expected ErrCorrelationNotFound, got %v", err)
	}
}

func TestMemoryCorrelationStore_ExpiredRecordReportsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCorrelationStore(time.Minute)

	record := PendingCorrelationRecord{
		Token:     "short-lived",
		CreatedAt: time.Now().UTC().Add(-2 * time.Minute),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := store.Set(ctx, record, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Get(ctx, "short-lived"); !errors.Is(err, ErrCorrelationNotFound) {
		t.Fatalf("expected expiry to read as not found, got %v", err)
	}
}

func TestMemoryCorrelationStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCorrelationStore(time.Minute)

	base := PendingCorrelationRecord{Token: "token-lww", Aggregator: "mx"}
	if err := store.Set(ctx, base, 0); err != nil {
		t.Fatalf("set pending: %v", err)
	}

	resolved := base
	resolved.Resolved = true
	resolved.FinalStatus = ConnectionStatusConnected
	resolved.ResolvedConnectionID = "member-9"
	if err := store.Set(ctx, resolved, 0); err != nil {
		t.Fatalf("set resolved: %v", err)
	}

	again := resolved
	again.FinalStatus = ConnectionStatusDenied
	again.ErrorReason = "user backed out"
	if err := store.Set(ctx, again, 0); err != nil {
		t.Fatalf("set overwrite: %v", err)
	}

	got, err := store.Get(ctx, "token-lww")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FinalStatus != ConnectionStatusDenied || got.ErrorReason != "user backed out" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}

func TestMemoryCorrelationStore_EvictsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCorrelationStoreWithLimits(time.Minute, 2)

	base := time.Now().UTC()
	for i, token := range []string{"oldest", "middle", "newest"} {
		record := PendingCorrelationRecord{
			Token:     token,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Set(ctx, record, time.Minute); err != nil {
			t.Fatalf("set %s: %v", token, err)
		}
	}

	if _, err := store.Get(ctx, "oldest"); !errors.Is(err, ErrCorrelationNotFound) {
		t.Fatalf("expected oldest entry evicted, got %v", err)
	}
	if _, err := store.Get(ctx, "newest"); err != nil {
		t.Fatalf("expected newest entry kept: %v", err)
	}
}

func TestMemoryCorrelationStore_GetReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCorrelationStore(time.Minute)

	record := PendingCorrelationRecord{
		Token:    "token-copy",
		JobTypes: []string{"aggregate"},
		Metadata: map[string]any{"target_origin": "https://app.example"},
	}
	if err := store.Set(ctx, record, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	first, err := store.Get(ctx, "token-copy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.JobTypes[0] = "mutated"
	first.Metadata["target_origin"] = "https://evil.example"

	second, err := store.Get(ctx, "token-copy")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if second.JobTypes[0] != "aggregate" {
		t.Fatalf("stored job types mutated through returned copy")
	}
	if second.Metadata["target_origin"] != "https://app.example" {
		t.Fatalf("stored metadata mutated through returned copy")
	}
}

func TestMemoryCorrelationStore_RequiresToken(t *testing.T) {
	store := NewMemoryCorrelationStore(time.Minute)
	if err := store.Set(context.Background(), PendingCorrelationRecord{}, 0); err == nil {
		t.Fatalf("expected token-less record to be rejected")
	}
}

func TestMemoryResolvedUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryResolvedUserStore()

	if _, ok, err := store.Get(ctx, "mx", "user-1"); err != nil || ok {
		t.Fatalf("expected miss on empty store, ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "mx", "user-1", "GUID-123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	resolved, ok, err := store.Get(ctx, "mx", "user-1")
	if err != nil || !ok || resolved != "GUID-123" {
		t.Fatalf("get: resolved=%q ok=%v err=%v", resolved, ok, err)
	}

	if _, ok, _ := store.Get(ctx, "sophtron", "user-1"); ok {
		t.Fatalf("expected aggregator to partition the key space")
	}
	if err := store.Set(ctx, "mx", "user-1", ""); err == nil {
		t.Fatalf("expected empty resolved id to be rejected")
	}
}

func TestGenerateCorrelationToken_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		token := GenerateCorrelationToken()
		if token == "" || seen[token] {
			t.Fatalf("expected unique non-empty tokens, got %q", token)
		}
		seen[token] = true
	}
}
