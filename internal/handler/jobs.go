package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/repository"
	"github.com/shift-marketplace/backend/internal/selection"
	"github.com/shift-marketplace/backend/internal/service"
)

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	jobs, err := h.service.ListJobs(r.Context(), myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "求人一覧を取得しました", jobs)
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		FacilityID        int64  `json:"facilityID" validate:"required,gt=0"`
		Title             string `json:"title" validate:"required,max=100"`
		JobType           string `json:"jobType" validate:"omitempty,oneof=normal offer"`
		StartTime         string `json:"startTime" validate:"required"`
		EndTime           string `json:"endTime" validate:"required"`
		RecruitmentCount  int32  `json:"recruitmentCount" validate:"required,gt=0"`
		RequiresInterview bool   `json:"requiresInterview"`
		WeeklyFrequency   *int32 `json:"weeklyFrequency" validate:"omitempty,min=1,max=7"`
		WorkDates         []struct {
			WorkDate         string `json:"workDate" validate:"required,datetime=2006-01-02"`
			RecruitmentCount int32  `json:"recruitmentCount" validate:"gte=0"`
		} `json:"workDates" validate:"required_without=Recurrence,dive"`
		Recurrence *struct {
			Rule  string `json:"rule" validate:"required"`
			From  string `json:"from" validate:"required,datetime=2006-01-02"`
			Until string `json:"until" validate:"required,datetime=2006-01-02"`
		} `json:"recurrence"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	job := &domain.Job{
		FacilityID:        req.FacilityID,
		Title:             req.Title,
		JobType:           domain.JobType(req.JobType),
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		RecruitmentCount:  req.RecruitmentCount,
		RequiresInterview: req.RequiresInterview,
		WeeklyFrequency:   req.WeeklyFrequency,
	}
	for _, wd := range req.WorkDates {
		job.WorkDates = append(job.WorkDates, domain.WorkDateSlot{WorkDate: wd.WorkDate, RecruitmentCount: wd.RecruitmentCount})
	}

	var recurrence *service.Recurrence
	if req.Recurrence != nil {
		// datetime タグで形式は検証済み
		from, _ := time.Parse(time.DateOnly, req.Recurrence.From)
		until, _ := time.Parse(time.DateOnly, req.Recurrence.Until)
		recurrence = &service.Recurrence{Rule: req.Recurrence.Rule, From: from, Until: until}
	}

	if err := h.service.CreateJob(r.Context(), myInfo, job, recurrence); err != nil {
		switch {
		case errors.Is(err, service.ErrFacilityNotFound), errors.Is(err, service.ErrNotFacilityOwner), errors.Is(err, service.ErrInvalidJob):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "求人を作成しました", job)
}

type jobViewResponse struct {
	Job                    *domain.Job                `json:"job"`
	Slots                  []selection.Classification `json:"slots"`
	AppliedWorkDateIDs     []int64                    `json:"appliedWorkDateIDs"`
	PreviouslyAppliedCount int                        `json:"previouslyAppliedCount"`
	PendingSelection       []int64                    `json:"pendingSelection"`
}

func (h *Handler) GetJobView(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	jobID := r.Context().Value(JobIDCtx).(int64)

	view, err := h.service.LoadJobView(r.Context(), myInfo.ID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 保存されていた選択のうち、今も応募できる勤務日だけを返す
	session := selection.NewSession(view, nil, nil, h.logger, selection.WithPreselected(view.PendingSelection))

	h.successResponse(w, r, "求人を取得しました", jobViewResponse{
		Job:                    view.Job,
		Slots:                  session.Classifications(),
		AppliedWorkDateIDs:     view.AppliedWorkDateIDs,
		PreviouslyAppliedCount: view.PreviouslyAppliedCount,
		PendingSelection:       session.Selected(),
	})
}

type missingFieldsResponse struct {
	MissingFields []string `json:"missingFields"`
	WorkDateIDs   []int64  `json:"workDateIDs"`
}

// ApplyToJob は応募 API。業務上の失敗は success=false で返し、プロフィール未入力の場合は未入力項目を data に入れる
func (h *Handler) ApplyToJob(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	jobID := r.Context().Value(JobIDCtx).(int64)

	var req struct {
		WorkDateIDs []int64 `json:"workDateIDs" validate:"required,min=1,dive,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	res, err := h.service.Apply(r.Context(), myInfo.ID, jobID, req.WorkDateIDs)
	if err != nil {
		var profileErr *selection.ProfileIncompleteError
		var validationErr *selection.ValidationError
		switch {
		case errors.As(err, &profileErr):
			h.errorResponseWithData(w, r, profileErr.Error(), missingFieldsResponse{
				MissingFields: profileErr.MissingFields,
				WorkDateIDs:   profileErr.WorkDateIDs,
			})
		case errors.As(err, &validationErr):
			h.errorResponseWithData(w, r, validationErr.Error(), validationErr)
		case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrOfferRequiresSingleDate):
			h.errorResponse(w, r, err.Error())
		case errors.Is(err, repository.ErrSlotFull):
			h.errorResponse(w, r, "選択した勤務日の募集が終了しました")
		case errors.Is(err, repository.ErrAlreadyApplied):
			h.errorResponse(w, r, "既に応募済みの勤務日が含まれています")
		case errors.Is(err, repository.ErrWorkDateMissing):
			h.errorResponse(w, r, "選択した勤務日が見つかりません")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "応募しました", res)
}

func (h *Handler) ExportApplications(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	jobID := r.Context().Value(JobIDCtx).(int64)

	rows, err := h.service.ApplicationsForExport(r.Context(), myInfo, jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrFacilityNotFound), errors.Is(err, service.ErrNotFacilityOwner):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"job_%d_applications.csv\"", jobID))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"応募ID", "勤務日", "ユーザーID", "氏名", "電話番号", "状態", "応募日時"})
	for _, row := range rows {
		_ = cw.Write([]string{
			strconv.FormatInt(row.ApplicationID, 10),
			row.WorkDate,
			strconv.FormatInt(row.UserID, 10),
			row.FullName,
			row.PhoneNumber,
			string(row.Status),
			row.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()

	if err := cw.Error(); err != nil {
		// ヘッダーは送信済みなのでログだけ残す
		h.logInternalServerError(r, err)
	}
}
