package repository

import (
	"database/sql"
	"errors"

	"github.com/shift-marketplace/backend/internal/config"
)

var (
	ErrSlotFull        = errors.New("募集人数に達しています")
	ErrAlreadyApplied  = errors.New("既に応募済みです")
	ErrWorkDateMissing = errors.New("勤務日が存在しません")
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}
