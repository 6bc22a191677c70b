package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-connect/core"
	"github.com/uptrace/bun"
)

const defaultCorrelationTTL = 15 * time.Minute

// CorrelationStore persists pending correlation records keyed by token.
// Writes are last-write-wins upserts; reads of absent or expired tokens
// report ErrCorrelationNotFound, matching the in-memory store.
type CorrelationStore struct {
	db  *bun.DB
	ttl time.Duration
}

func NewCorrelationStore(db *bun.DB, ttl time.Duration) (*CorrelationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if ttl <= 0 {
		ttl = defaultCorrelationTTL
	}
	return &CorrelationStore{db: db, ttl: ttl}, nil
}

func (s *CorrelationStore) Set(ctx context.Context, in core.PendingCorrelationRecord, ttl time.Duration) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: correlation store is not configured")
	}
	in.Token = strings.TrimSpace(in.Token)
	if in.Token == "" {
		return fmt.Errorf("sqlstore: correlation token is required")
	}

	now := time.Now().UTC()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if in.ExpiresAt.IsZero() {
		in.ExpiresAt = in.CreatedAt.Add(ttl)
	}
	record := newCorrelationRecord(in)

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &correlationRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.token = ?", record.Token).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
				if insertErr != nil && isUniqueViolation(insertErr) {
					_, insertErr = tx.NewUpdate().Model(record).Where("token = ?", record.Token).Exec(ctx)
				}
				return insertErr
			}
			return err
		}
		_, err = tx.NewUpdate().Model(record).Where("token = ?", record.Token).Exec(ctx)
		return err
	})
}

func (s *CorrelationStore) Get(ctx context.Context, token string) (core.PendingCorrelationRecord, error) {
	if s == nil || s.db == nil {
		return core.PendingCorrelationRecord{}, fmt.Errorf("sqlstore: correlation store is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return core.PendingCorrelationRecord{}, fmt.Errorf("sqlstore: correlation token is required")
	}

	record := &correlationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.expires_at > ?", time.Now().UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.PendingCorrelationRecord{}, fmt.Errorf("%w: %s", core.ErrCorrelationNotFound, token)
		}
		return core.PendingCorrelationRecord{}, err
	}
	return record.toDomain(), nil
}

// PruneExpired removes records past their expiry. Intended for a periodic
// maintenance call; reads never return expired rows regardless.
func (s *CorrelationStore) PruneExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: correlation store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*correlationRecord)(nil)).
		Where("expires_at <= ?", time.Now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
