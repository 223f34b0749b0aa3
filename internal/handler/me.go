package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/service"
)

type myInfoResponse struct {
	*domain.User
	MissingFields []string `json:"missingFields"`
}

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "ユーザー情報を取得しました", myInfoResponse{
		User:          myInfo,
		MissingFields: myInfo.MissingProfileFields(),
	})
}

func (h *Handler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		FullName      *string `json:"fullName" validate:"omitempty,min=1,max=50"`
		PhoneNumber   *string `json:"phoneNumber" validate:"omitempty,max=20"`
		Address       *string `json:"address" validate:"omitempty,max=200"`
		BirthDate     *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
		Qualification *string `json:"qualification" validate:"omitempty,max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.FullName != nil {
		myInfo.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		myInfo.PhoneNumber = *req.PhoneNumber
	}
	if req.Address != nil {
		myInfo.Address = *req.Address
	}
	if req.BirthDate != nil {
		birthDate, err := time.Parse(time.DateOnly, *req.BirthDate)
		if err != nil {
			h.errorResponse(w, r, "生年月日の形式が正しくありません")
			return
		}
		myInfo.BirthDate = &birthDate
	}
	if req.Qualification != nil {
		myInfo.Qualification = *req.Qualification
	}

	if err := h.store.UpdateUser(r.Context(), myInfo); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "プロフィールの更新に失敗しました。再度お試しください")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "プロフィールを更新しました", myInfoResponse{
		User:          myInfo,
		MissingFields: myInfo.MissingProfileFields(),
	})
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.errorResponse(w, r, "現在のパスワードが違います")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	myInfo.PasswordHash = string(hashedPassword)

	if err := h.store.UpdateUser(r.Context(), myInfo); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "パスワードの更新に失敗しました。再度お試しください")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "パスワードを更新しました", nil)
}

func (h *Handler) GetMutedFacilities(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	ids, err := h.service.MutedFacilities(r.Context(), myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "ミュート中の施設を取得しました", ids)
}

func (h *Handler) MuteFacility(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	facilityID, err := strconv.ParseInt(chi.URLParam(r, "facilityID"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "施設 ID が正しくありません")
		return
	}

	if err := h.service.MuteFacility(r.Context(), myInfo.ID, facilityID); err != nil {
		switch {
		case errors.Is(err, service.ErrFacilityNotFound):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "施設をミュートしました", nil)
}

func (h *Handler) UnmuteFacility(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	facilityID, err := strconv.ParseInt(chi.URLParam(r, "facilityID"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "施設 ID が正しくありません")
		return
	}

	if err := h.service.UnmuteFacility(r.Context(), myInfo.ID, facilityID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "施設のミュートを解除しました", nil)
}
