package service

import (
	"context"
	"sync"
	"time"

	"github.com/shift-marketplace/backend/internal/domain"
)

type MockStore struct {
	GetUserByIDFunc             func(ctx context.Context, id int64) (*domain.User, error)
	GetFacilityByIDFunc         func(ctx context.Context, id int64) (*domain.Facility, error)
	CreateJobFunc               func(ctx context.Context, job *domain.Job) error
	GetJobByIDFunc              func(ctx context.Context, id int64) (*domain.Job, error)
	ListOpenJobsFunc            func(ctx context.Context, from time.Time) ([]*domain.Job, error)
	GetAppliedWorkDateIDsFunc   func(ctx context.Context, userID, jobID int64) ([]int64, error)
	CountAppliedWorkDatesFunc   func(ctx context.Context, userID, jobID int64) (int, error)
	GetScheduledCommitmentsFunc func(ctx context.Context, userID int64, dates []string) ([]domain.ScheduledCommitment, error)
	InsertApplicationsFunc      func(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error)
	GetApplicationsByJobIDFunc  func(ctx context.Context, jobID int64) ([]domain.ApplicationExportRow, error)
}

func (m *MockStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.GetUserByIDFunc(ctx, id)
}

func (m *MockStore) GetFacilityByID(ctx context.Context, id int64) (*domain.Facility, error) {
	return m.GetFacilityByIDFunc(ctx, id)
}

func (m *MockStore) CreateJob(ctx context.Context, job *domain.Job) error {
	return m.CreateJobFunc(ctx, job)
}

func (m *MockStore) GetJobByID(ctx context.Context, id int64) (*domain.Job, error) {
	return m.GetJobByIDFunc(ctx, id)
}

func (m *MockStore) ListOpenJobs(ctx context.Context, from time.Time) ([]*domain.Job, error) {
	return m.ListOpenJobsFunc(ctx, from)
}

func (m *MockStore) GetAppliedWorkDateIDs(ctx context.Context, userID, jobID int64) ([]int64, error) {
	if m.GetAppliedWorkDateIDsFunc != nil {
		return m.GetAppliedWorkDateIDsFunc(ctx, userID, jobID)
	}
	return []int64{}, nil
}

func (m *MockStore) CountAppliedWorkDates(ctx context.Context, userID, jobID int64) (int, error) {
	if m.CountAppliedWorkDatesFunc != nil {
		return m.CountAppliedWorkDatesFunc(ctx, userID, jobID)
	}
	return 0, nil
}

func (m *MockStore) GetScheduledCommitments(ctx context.Context, userID int64, dates []string) ([]domain.ScheduledCommitment, error) {
	if m.GetScheduledCommitmentsFunc != nil {
		return m.GetScheduledCommitmentsFunc(ctx, userID, dates)
	}
	return []domain.ScheduledCommitment{}, nil
}

func (m *MockStore) InsertApplications(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error) {
	return m.InsertApplicationsFunc(ctx, userID, job, workDateIDs)
}

func (m *MockStore) GetApplicationsByJobID(ctx context.Context, jobID int64) ([]domain.ApplicationExportRow, error) {
	return m.GetApplicationsByJobIDFunc(ctx, jobID)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []domain.MailMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *recordingPublisher) snapshot() []domain.MailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.MailMessage{}, p.messages...)
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []domain.ErrorReport
}

func (r *recordingReporter) Report(ctx context.Context, report domain.ErrorReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *recordingReporter) snapshot() []domain.ErrorReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ErrorReport{}, r.reports...)
}
