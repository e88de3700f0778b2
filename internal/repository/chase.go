package repository

import (
	"context"
	"errors"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/pagination"
	"github.com/adviserops/chaser/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chaseColumns = `id, firm_id, client_ref, type, status, value_tier, chase_count,
	 provider_name, subject, blocking, created_at, due_at, last_chased_at, acknowledged_at`

type ChaseRepository struct {
	db dbtx
}

func NewChaseRepository(pool *pgxpool.Pool) *ChaseRepository {
	return &ChaseRepository{db: pool}
}

func NewChaseRepositoryWithTx(tx pgx.Tx) *ChaseRepository {
	return &ChaseRepository{db: tx}
}

func (r *ChaseRepository) Create(ctx context.Context, item *domain.ChaseItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chase_items (`+chaseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		item.ID, item.FirmID, item.ClientRef, item.Type, item.Status, item.ValueTier,
		item.ChaseCount, nullableString(item.ProviderName), nullableString(item.Subject),
		item.Blocking, item.CreatedAt, item.DueAt, item.LastChasedAt, item.AcknowledgedAt,
	)
	return err
}

func (r *ChaseRepository) GetByID(ctx context.Context, id string) (*domain.ChaseItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chaseColumns+` FROM chase_items WHERE id = $1`,
		id,
	)
	item, err := scanChaseRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChaseNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *ChaseRepository) ListOpenByFirm(ctx context.Context, firmID string) ([]*domain.ChaseItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chaseColumns+` FROM chase_items
		 WHERE firm_id = $1 AND status != $2
		 ORDER BY created_at DESC, id DESC`,
		firmID, domain.ChaseStatusAcknowledged,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChaseRows(rows)
}

func (r *ChaseRepository) ListByFirmWithCursor(ctx context.Context, firmID string, cursor *pagination.Cursor, limit int) (*service.ChasePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+chaseColumns+` FROM chase_items
			 WHERE firm_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			firmID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+chaseColumns+` FROM chase_items
			 WHERE firm_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			firmID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanChaseRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.ChasePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *ChaseRepository) Update(ctx context.Context, item *domain.ChaseItem) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chase_items
		 SET status = $1, chase_count = $2, last_chased_at = $3, acknowledged_at = $4
		 WHERE id = $5`,
		item.Status, item.ChaseCount, item.LastChasedAt, item.AcknowledgedAt, item.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChaseNotFound
	}
	return nil
}

func scanChaseRow(row pgx.Row) (*domain.ChaseItem, error) {
	var item domain.ChaseItem
	var provider, subject *string
	err := row.Scan(
		&item.ID, &item.FirmID, &item.ClientRef, &item.Type, &item.Status, &item.ValueTier,
		&item.ChaseCount, &provider, &subject, &item.Blocking,
		&item.CreatedAt, &item.DueAt, &item.LastChasedAt, &item.AcknowledgedAt,
	)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		item.ProviderName = *provider
	}
	if subject != nil {
		item.Subject = *subject
	}
	return &item, nil
}

func scanChaseRows(rows pgx.Rows) ([]*domain.ChaseItem, error) {
	var items []*domain.ChaseItem
	for rows.Next() {
		item, err := scanChaseRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
