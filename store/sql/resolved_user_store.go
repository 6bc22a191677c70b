package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResolvedUserStore caches widget-user to aggregator-native id mappings,
// one row per aggregator plus user id.
type ResolvedUserStore struct {
	db   *bun.DB
	repo repository.Repository[*resolvedUserRecord]
}

func NewResolvedUserStore(db *bun.DB) (*ResolvedUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*resolvedUserRecord](db, resolvedUserHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid resolved user repository wiring: %w", err)
		}
	}
	return &ResolvedUserStore{db: db, repo: repo}, nil
}

func (s *ResolvedUserStore) Get(ctx context.Context, aggregator string, userID string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, fmt.Errorf("sqlstore: resolved user store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("aggregator", "=", strings.TrimSpace(aggregator)),
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
	)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].ResolvedID, true, nil
}

func (s *ResolvedUserStore) Set(ctx context.Context, aggregator string, userID string, resolvedID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: resolved user store is not configured")
	}
	aggregator = strings.TrimSpace(aggregator)
	userID = strings.TrimSpace(userID)
	resolvedID = strings.TrimSpace(resolvedID)
	if resolvedID == "" {
		return fmt.Errorf("sqlstore: resolved user id is required")
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &resolvedUserRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.aggregator = ?", aggregator).
			Where("?TableAlias.user_id = ?", userID).
			Limit(1).
			Scan(ctx)
		if err == nil {
			existing.ResolvedID = resolvedID
			existing.UpdatedAt = now
			_, updateErr := tx.NewUpdate().Model(existing).Where("id = ?", existing.ID).Exec(ctx)
			return updateErr
		}
		if err != sql.ErrNoRows {
			return err
		}

		record := &resolvedUserRecord{
			ID:         uuid.NewString(),
			Aggregator: aggregator,
			UserID:     userID,
			ResolvedID: resolvedID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
		if insertErr != nil && isUniqueViolation(insertErr) {
			_, insertErr = tx.NewUpdate().
				Model(record).
				Column("resolved_id", "updated_at").
				Where("aggregator = ?", aggregator).
				Where("user_id = ?", userID).
				Exec(ctx)
		}
		return insertErr
	})
}
