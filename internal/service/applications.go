package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/kvstore"
	"github.com/shift-marketplace/backend/internal/repository"
	"github.com/shift-marketplace/backend/internal/selection"
)

type ApplyResult struct {
	WorkDateIDs []int64 `json:"workDateIDs"`
	IsMatched   bool    `json:"isMatched"`
}

func (s *ApplicationService) getJob(ctx context.Context, jobID int64) (*domain.Job, error) {
	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

type applicantState struct {
	applied     []int64
	commitments []domain.ScheduledCommitment
	count       int
}

// loadApplicantState はワーカーの応募状況を並行して読み込む
func (s *ApplicationService) loadApplicantState(ctx context.Context, userID int64, job *domain.Job) (*applicantState, error) {
	dates := make([]string, 0, len(job.WorkDates))
	for _, wd := range job.WorkDates {
		dates = append(dates, wd.WorkDate)
	}

	state := &applicantState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		applied, err := s.store.GetAppliedWorkDateIDs(gctx, userID, job.ID)
		state.applied = applied
		return err
	})
	g.Go(func() error {
		commitments, err := s.store.GetScheduledCommitments(gctx, userID, dates)
		state.commitments = commitments
		return err
	})
	g.Go(func() error {
		count, err := s.store.CountAppliedWorkDates(gctx, userID, job.ID)
		state.count = count
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

// LoadJobView は求人詳細画面の表示に必要なものをまとめて返す。
// プロフィール入力で中断した選択が残っていれば PendingSelection に入れる。
func (s *ApplicationService) LoadJobView(ctx context.Context, userID, jobID int64) (*domain.JobView, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadApplicantState(ctx, userID, job)
	if err != nil {
		return nil, err
	}

	return &domain.JobView{
		Job:                    job,
		AppliedWorkDateIDs:     state.applied,
		Commitments:            state.commitments,
		PreviouslyAppliedCount: state.count,
		PendingSelection:       s.pendingSelection(ctx, userID, jobID),
	}, nil
}

// pendingSelection は保存済みの選択を返す。読めない場合は選択なしとして扱う
func (s *ApplicationService) pendingSelection(ctx context.Context, userID, jobID int64) []int64 {
	raw, err := s.kv.Get(ctx, pendingSelectionKey(userID, jobID))
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Warn("保存された選択の取得に失敗しました", zap.Error(err), zap.Int64("job_id", jobID))
		}
		return nil
	}

	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("保存された選択が壊れています", zap.Error(err), zap.Int64("job_id", jobID))
		return nil
	}
	return ids
}

func (s *ApplicationService) savePendingSelection(ctx context.Context, userID, jobID int64, ids []int64) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, pendingSelectionKey(userID, jobID), string(raw), s.pendingSelectionTTL); err != nil {
		s.logger.Warn("選択の保存に失敗しました", zap.Error(err), zap.Int64("job_id", jobID))
	}
}

// isBusinessError はワーカーの操作で起こりうる失敗かどうか。それ以外はエラーレポートの対象
func isBusinessError(err error) bool {
	var validationErr *selection.ValidationError
	var profileErr *selection.ProfileIncompleteError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &profileErr):
		return true
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrOfferRequiresSingleDate):
		return true
	case errors.Is(err, repository.ErrSlotFull), errors.Is(err, repository.ErrAlreadyApplied), errors.Is(err, repository.ErrWorkDateMissing):
		return true
	}
	return false
}

// Apply は選択された勤務日への応募を受け付ける。
// プロフィールが未完成の場合は *selection.ProfileIncompleteError を返し、選択を一時保存する。
// 検証は表示時の判定を信用せず、最新の応募状況でやり直す。
func (s *ApplicationService) Apply(ctx context.Context, userID, jobID int64, workDateIDs []int64) (*ApplyResult, error) {
	selected := selection.NewIDSet(workDateIDs...)
	ids := selected.Sorted()

	res, err := s.apply(ctx, userID, jobID, selected)
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("応募の処理中にエラーが発生しました", zap.Error(err), zap.Int64("user_id", userID), zap.Int64("job_id", jobID), zap.Int64s("work_date_ids", ids))
			s.report(err, userID, jobID, ids)
		}
		return nil, err
	}
	return res, nil
}

func (s *ApplicationService) apply(ctx context.Context, userID, jobID int64, selected selection.IDSet) (*ApplyResult, error) {
	ids := selected.Sorted()

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.JobType == domain.JobTypeOffer && selected.Len() > 1 {
		return nil, ErrOfferRequiresSingleDate
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if missing := user.MissingProfileFields(); len(missing) > 0 {
		s.savePendingSelection(ctx, userID, jobID, ids)
		return nil, &selection.ProfileIncompleteError{MissingFields: missing, WorkDateIDs: ids}
	}

	state, err := s.loadApplicantState(ctx, userID, job)
	if err != nil {
		return nil, err
	}
	applied := selection.NewIDSet(state.applied...)

	if err := selection.ValidateSelection(selection.ValidateInput{
		Selected:               selected,
		Applied:                applied,
		WeeklyFrequency:        job.WeeklyFrequency,
		PreviouslyAppliedCount: state.count,
	}); err != nil {
		return nil, err
	}
	if err := selection.CheckEligible(job, selected, applied, state.commitments); err != nil {
		return nil, err
	}

	if _, err := s.store.InsertApplications(ctx, userID, job, ids); err != nil {
		return nil, err
	}

	if err := s.kv.Del(ctx, pendingSelectionKey(userID, jobID)); err != nil {
		s.logger.Warn("保存された選択の削除に失敗しました", zap.Error(err), zap.Int64("job_id", jobID))
	}

	isMatched := !job.RequiresInterview
	s.sendConfirmation(ctx, user, job, ids, isMatched)

	s.logger.Info("応募を受け付けました", zap.Int64("user_id", userID), zap.Int64("job_id", jobID), zap.Int64s("work_date_ids", ids), zap.Bool("is_matched", isMatched))
	return &ApplyResult{WorkDateIDs: ids, IsMatched: isMatched}, nil
}

// sendConfirmation は応募完了メールをキューに積む。失敗しても応募は取り消さない
func (s *ApplicationService) sendConfirmation(ctx context.Context, user *domain.User, job *domain.Job, ids []int64, isMatched bool) {
	dates := make([]string, 0, len(ids))
	for _, id := range ids {
		if wd, ok := job.WorkDate(id); ok {
			dates = append(dates, wd.WorkDate)
		}
	}
	sort.Strings(dates)

	msg := domain.MailMessage{
		Type: domain.MailTypeApplicationConfirmed,
		To:   user.Email,
		Data: domain.ApplicationConfirmedMailData{
			FullName:  user.FullName,
			JobTitle:  job.Title,
			WorkDates: dates,
			StartTime: job.StartTime,
			EndTime:   job.EndTime,
			IsMatched: isMatched,
		},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("応募完了メールの送信に失敗しました", zap.Error(err), zap.Int64("user_id", user.ID), zap.Int64("job_id", job.ID))
	}
}

// ApplicationsForExport は施設の担当者と管理者だけが取得できる
func (s *ApplicationService) ApplicationsForExport(ctx context.Context, actor *domain.User, jobID int64) ([]domain.ApplicationExportRow, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.checkFacilityOwner(ctx, actor, job.FacilityID); err != nil {
		return nil, err
	}
	return s.store.GetApplicationsByJobID(ctx, jobID)
}
