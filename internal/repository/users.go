package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shift-marketplace/backend/internal/domain"
)

const userColumns = `id, username, password_hash, full_name, email, role, phone_number, address, birth_date, qualification, is_active, created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var birthDate sql.NullTime

	dst := []any{
		&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.Role,
		&user.PhoneNumber, &user.Address, &birthDate, &user.Qualification, &user.IsActive, &user.CreatedAt, &user.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if birthDate.Valid {
		user.BirthDate = &birthDate.Time
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.dbpool.QueryRowContext(ctx, query, username))
}

// UpdateUser はバージョンが一致する場合だけ更新する。一致しなければ sql.ErrNoRows を返す
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			password_hash = $1,
			full_name = $2,
			email = $3,
			role = $4,
			phone_number = $5,
			address = $6,
			birth_date = $7,
			qualification = $8,
			is_active = $9,
			version = version + 1
		WHERE id = $10 AND version = $11
		RETURNING username, created_at, version
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var birthDate sql.NullTime
	if user.BirthDate != nil {
		birthDate = sql.NullTime{Time: *user.BirthDate, Valid: true}
	}

	args := []any{
		user.PasswordHash, user.FullName, user.Email, user.Role, user.PhoneNumber, user.Address,
		birthDate, user.Qualification, user.IsActive, user.ID, user.Version,
	}
	dst := []any{&user.Username, &user.CreatedAt, &user.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...)
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO users (username, password_hash, full_name, email, role, phone_number, address, birth_date, qualification)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, is_active, created_at, version
	`

	var birthDate sql.NullTime
	if user.BirthDate != nil {
		birthDate = sql.NullTime{Time: *user.BirthDate, Valid: true}
	}

	args := []any{user.Username, user.PasswordHash, user.FullName, user.Email, user.Role, user.PhoneNumber, user.Address, birthDate, user.Qualification}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.Version)
}
