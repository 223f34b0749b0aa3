package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/utils"
)

// Recurrence は RRULE で勤務日を指定するときの展開範囲
type Recurrence struct {
	Rule  string
	From  time.Time
	Until time.Time
}

func (s *ApplicationService) checkFacilityOwner(ctx context.Context, actor *domain.User, facilityID int64) error {
	facility, err := s.store.GetFacilityByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFacilityNotFound
		}
		return err
	}
	if actor.Role != domain.RoleAdmin && facility.OwnerUserID != actor.ID {
		return ErrNotFacilityOwner
	}
	return nil
}

// CreateJob は求人を作成する。recurrence が指定された場合は job.WorkDates を展開結果で置き換える
func (s *ApplicationService) CreateJob(ctx context.Context, actor *domain.User, job *domain.Job, recurrence *Recurrence) error {
	if err := s.checkFacilityOwner(ctx, actor, job.FacilityID); err != nil {
		return err
	}

	if recurrence != nil {
		dates, err := utils.ExpandRecurrence(recurrence.Rule, recurrence.From, recurrence.Until)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
		job.WorkDates = make([]domain.WorkDateSlot, 0, len(dates))
		for _, date := range dates {
			job.WorkDates = append(job.WorkDates, domain.WorkDateSlot{WorkDate: date})
		}
	}

	if err := utils.ValidateJobTime(job); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if err := utils.ValidateWorkDates(job.WorkDates); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if job.JobType == "" {
		job.JobType = domain.JobTypeNormal
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return err
	}

	s.logger.Info("求人を作成しました", zap.Int64("job_id", job.ID), zap.Int64("facility_id", job.FacilityID), zap.Int("work_dates", len(job.WorkDates)))
	return nil
}

// ListJobs は今日以降に勤務日がある求人のうち、ワーカーがミュートしていない施設のものを返す
func (s *ApplicationService) ListJobs(ctx context.Context, userID int64) ([]*domain.Job, error) {
	jobs, err := s.store.ListOpenJobs(ctx, s.now())
	if err != nil {
		return nil, err
	}

	muted, err := s.MutedFacilities(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(muted) == 0 {
		return jobs, nil
	}

	mutedSet := make(map[int64]bool, len(muted))
	for _, id := range muted {
		mutedSet[id] = true
	}

	filtered := make([]*domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if !mutedSet[job.FacilityID] {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

func (s *ApplicationService) MuteFacility(ctx context.Context, userID, facilityID int64) error {
	if _, err := s.store.GetFacilityByID(ctx, facilityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFacilityNotFound
		}
		return err
	}
	return s.kv.AddMember(ctx, mutedFacilitiesKey(userID), strconv.FormatInt(facilityID, 10))
}

func (s *ApplicationService) UnmuteFacility(ctx context.Context, userID, facilityID int64) error {
	return s.kv.RemoveMember(ctx, mutedFacilitiesKey(userID), strconv.FormatInt(facilityID, 10))
}

func (s *ApplicationService) MutedFacilities(ctx context.Context, userID int64) ([]int64, error) {
	members, err := s.kv.Members(ctx, mutedFacilitiesKey(userID))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			s.logger.Warn("不正なミュート施設 ID を無視します", zap.String("member", member), zap.Int64("user_id", userID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
