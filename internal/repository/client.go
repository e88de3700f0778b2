package repository

import (
	"context"
	"errors"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clientColumns = `id, firm_id, ref, name, email, value_tier, date_of_birth,
	 last_review_at, next_review_due, isa_used, isa_allowance,
	 pension_used, pension_allowance, cash_balance, created_at`

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO clients (`+clientColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		client.ID, client.FirmID, client.Ref, client.Name, nullableString(client.Email),
		client.ValueTier, client.DateOfBirth, client.LastReviewAt, client.NextReviewDue,
		client.ISAUsed, client.ISAAllowance, client.PensionUsed, client.PensionAllowance,
		client.CashBalance, client.CreatedAt,
	)
	return err
}

func (r *ClientRepository) GetByRef(ctx context.Context, firmID, ref string) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE firm_id = $1 AND ref = $2`,
		firmID, ref,
	)
	client, err := scanClientRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

func (r *ClientRepository) ListByFirm(ctx context.Context, firmID string) ([]*domain.Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE firm_id = $1 ORDER BY ref`,
		firmID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		client, err := scanClientRow(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// EmailForClient resolves a client reference to a deliverable address for the
// email dispatcher
func (r *ClientRepository) EmailForClient(ctx context.Context, firmID, clientRef string) (string, error) {
	client, err := r.GetByRef(ctx, firmID, clientRef)
	if err != nil {
		return "", err
	}
	if client.Email == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "client has no email address on file")
	}
	return client.Email, nil
}

func (r *ClientRepository) Delete(ctx context.Context, firmID, ref string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM clients WHERE firm_id = $1 AND ref = $2`,
		firmID, ref,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func scanClientRow(row pgx.Row) (*domain.Client, error) {
	var client domain.Client
	var email *string
	err := row.Scan(
		&client.ID, &client.FirmID, &client.Ref, &client.Name, &email,
		&client.ValueTier, &client.DateOfBirth, &client.LastReviewAt, &client.NextReviewDue,
		&client.ISAUsed, &client.ISAAllowance, &client.PensionUsed, &client.PensionAllowance,
		&client.CashBalance, &client.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email != nil {
		client.Email = *email
	}
	return &client, nil
}
