package repository

import (
	"context"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommunicationRepository struct {
	pool *pgxpool.Pool
}

func NewCommunicationRepository(pool *pgxpool.Pool) *CommunicationRepository {
	return &CommunicationRepository{pool: pool}
}

func (r *CommunicationRepository) Create(ctx context.Context, comm *domain.Communication) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO communications (id, firm_id, chase_id, client_ref, channel, priority, message, rationale, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		comm.ID, comm.FirmID, comm.ChaseID, comm.ClientRef, comm.Channel, comm.Priority,
		comm.Message, nullableString(comm.Rationale), comm.SentAt,
	)
	return err
}

func (r *CommunicationRepository) ListByFirm(ctx context.Context, firmID string, limit int) ([]*domain.Communication, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, firm_id, chase_id, client_ref, channel, priority, message, rationale, sent_at
		 FROM communications
		 WHERE firm_id = $1
		 ORDER BY sent_at DESC, id DESC
		 LIMIT $2`,
		firmID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comms []*domain.Communication
	for rows.Next() {
		var comm domain.Communication
		var rationale *string
		if err := rows.Scan(&comm.ID, &comm.FirmID, &comm.ChaseID, &comm.ClientRef,
			&comm.Channel, &comm.Priority, &comm.Message, &rationale, &comm.SentAt); err != nil {
			return nil, err
		}
		if rationale != nil {
			comm.Rationale = *rationale
		}
		comms = append(comms, &comm)
	}
	return comms, rows.Err()
}
