package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-marketplace/backend/internal/domain"
)

func facilityStore(owner int64) *MockStore {
	return &MockStore{
		GetFacilityByIDFunc: func(ctx context.Context, id int64) (*domain.Facility, error) {
			if id != 3 {
				return nil, sql.ErrNoRows
			}
			return &domain.Facility{ID: 3, OwnerUserID: owner}, nil
		},
	}
}

func TestCreateJob_ExpandsRecurrence(t *testing.T) {
	store := facilityStore(20)
	var created *domain.Job
	store.CreateJobFunc = func(ctx context.Context, job *domain.Job) error {
		job.ID = 55
		created = job
		return nil
	}
	svc := NewApplicationService(store, nil, nil, nil, nil)

	job := &domain.Job{FacilityID: 3, Title: "夜間見守り", StartTime: "18:00:00", EndTime: "22:00", RecruitmentCount: 1}
	err := svc.CreateJob(context.Background(), &domain.User{ID: 20, Role: domain.RoleFacility}, job, &Recurrence{
		Rule:  "FREQ=WEEKLY;BYDAY=SA",
		From:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, int64(55), job.ID)
	assert.Equal(t, "18:00", created.StartTime)
	assert.Equal(t, domain.JobTypeNormal, created.JobType)

	dates := make([]string, 0)
	for _, wd := range created.WorkDates {
		dates = append(dates, wd.WorkDate)
	}
	assert.Equal(t, []string{"2025-06-07", "2025-06-14", "2025-06-21", "2025-06-28"}, dates)
}

func TestCreateJob_RejectsOtherFacility(t *testing.T) {
	svc := NewApplicationService(facilityStore(20), nil, nil, nil, nil)

	job := &domain.Job{FacilityID: 3, StartTime: "09:00", EndTime: "10:00", WorkDates: []domain.WorkDateSlot{{WorkDate: "2025-06-01"}}}
	err := svc.CreateJob(context.Background(), &domain.User{ID: 21, Role: domain.RoleFacility}, job, nil)
	assert.ErrorIs(t, err, ErrNotFacilityOwner)

	job.FacilityID = 4
	err = svc.CreateJob(context.Background(), &domain.User{ID: 1, Role: domain.RoleAdmin}, job, nil)
	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestCreateJob_InvalidTime(t *testing.T) {
	svc := NewApplicationService(facilityStore(20), nil, nil, nil, nil)

	job := &domain.Job{FacilityID: 3, StartTime: "10:00", EndTime: "09:00", WorkDates: []domain.WorkDateSlot{{WorkDate: "2025-06-01"}}}
	err := svc.CreateJob(context.Background(), &domain.User{ID: 1, Role: domain.RoleAdmin}, job, nil)
	assert.Error(t, err)
}
