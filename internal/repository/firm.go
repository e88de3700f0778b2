package repository

import (
	"context"
	"errors"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FirmRepository struct {
	pool *pgxpool.Pool
}

func NewFirmRepository(pool *pgxpool.Pool) *FirmRepository {
	return &FirmRepository{pool: pool}
}

func (r *FirmRepository) Create(ctx context.Context, firm *domain.Firm) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO firms (id, name, created_at) VALUES ($1, $2, $3)`,
		firm.ID, firm.Name, firm.CreatedAt,
	)
	return err
}

func (r *FirmRepository) GetByID(ctx context.Context, id string) (*domain.Firm, error) {
	var firm domain.Firm
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM firms WHERE id = $1`,
		id,
	).Scan(&firm.ID, &firm.Name, &firm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFirmNotFound
		}
		return nil, err
	}
	return &firm, nil
}

func (r *FirmRepository) GetByName(ctx context.Context, name string) (*domain.Firm, error) {
	var firm domain.Firm
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM firms WHERE name = $1`,
		name,
	).Scan(&firm.ID, &firm.Name, &firm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFirmNotFound
		}
		return nil, err
	}
	return &firm, nil
}

func (r *FirmRepository) List(ctx context.Context) ([]*domain.Firm, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at FROM firms ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var firms []*domain.Firm
	for rows.Next() {
		var firm domain.Firm
		if err := rows.Scan(&firm.ID, &firm.Name, &firm.CreatedAt); err != nil {
			return nil, err
		}
		firms = append(firms, &firm)
	}
	return firms, rows.Err()
}

func (r *FirmRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM firms WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFirmNotFound
	}
	return nil
}
