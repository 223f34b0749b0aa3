package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/shift-marketplace/backend/internal/domain"
)

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required,alphanum,max=50"`
		Password string `json:"password" validate:"required,min=8"`
		FullName string `json:"fullName" validate:"max=50"`
		Email    string `json:"email" validate:"required,email"`
		Role     string `json:"role" validate:"required,oneof=worker facility admin"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         domain.Role(req.Role),
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "users_username_key":
				h.badRequest(w, r, errors.New("このユーザー名は既に使われています"))
			case pgErr.ConstraintName == "users_email_key":
				h.badRequest(w, r, errors.New("このメールアドレスは既に使われています"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "ユーザーを作成しました", user)
}

func (h *Handler) CreateFacility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required,max=100"`
		OwnerUserID int64  `json:"ownerUserID" validate:"required,gt=0"`
		Address     string `json:"address" validate:"max=200"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	facility := &domain.Facility{
		Name:        req.Name,
		OwnerUserID: req.OwnerUserID,
		Address:     req.Address,
	}

	if err := h.store.CreateFacility(r.Context(), facility); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "facilities_name_key":
				h.badRequest(w, r, errors.New("この施設名は既に使われています"))
			case pgErr.ConstraintName == "facilities_owner_user_id_fkey":
				h.badRequest(w, r, errors.New("担当ユーザーが存在しません"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "施設を作成しました", facility)
}
