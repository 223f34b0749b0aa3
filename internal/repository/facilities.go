package repository

import (
	"context"
	"time"

	"github.com/shift-marketplace/backend/internal/domain"
)

func (r *Repository) CreateFacility(ctx context.Context, facility *domain.Facility) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO facilities (name, owner_user_id, address)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.dbpool.QueryRowContext(ctx, query, facility.Name, facility.OwnerUserID, facility.Address).Scan(&facility.ID, &facility.CreatedAt)
}

func (r *Repository) GetFacilityByID(ctx context.Context, id int64) (*domain.Facility, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT name, owner_user_id, address, created_at FROM facilities WHERE id = $1`

	facility := &domain.Facility{ID: id}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&facility.Name, &facility.OwnerUserID, &facility.Address, &facility.CreatedAt); err != nil {
		return nil, err
	}
	return facility, nil
}
