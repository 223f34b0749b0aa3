// Package service は求人の閲覧・応募・作成を、リポジトリと通知キューの上で実行する。
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/kvstore"
	"github.com/shift-marketplace/backend/internal/notify"
	"github.com/shift-marketplace/backend/internal/selection"
)

var (
	ErrJobNotFound             = errors.New("求人が存在しません")
	ErrFacilityNotFound        = errors.New("施設が存在しません")
	ErrOfferRequiresSingleDate = errors.New("オファー求人は 1 日だけ応募できます")
	ErrNotFacilityOwner        = errors.New("この施設の求人を操作する権限がありません")
	ErrInvalidJob              = errors.New("求人の内容が正しくありません")
)

// Store は service が使うリポジトリの操作
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetFacilityByID(ctx context.Context, id int64) (*domain.Facility, error)

	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, id int64) (*domain.Job, error)
	ListOpenJobs(ctx context.Context, from time.Time) ([]*domain.Job, error)

	GetAppliedWorkDateIDs(ctx context.Context, userID, jobID int64) ([]int64, error)
	CountAppliedWorkDates(ctx context.Context, userID, jobID int64) (int, error)
	GetScheduledCommitments(ctx context.Context, userID int64, dates []string) ([]domain.ScheduledCommitment, error)
	InsertApplications(ctx context.Context, userID int64, job *domain.Job, workDateIDs []int64) ([]domain.Application, error)
	GetApplicationsByJobID(ctx context.Context, jobID int64) ([]domain.ApplicationExportRow, error)
}

type ApplicationService struct {
	store     Store
	kv        kvstore.Store
	publisher notify.Publisher
	// nil の場合、予期しないエラーはログだけに残す
	reporter selection.Reporter
	logger   *zap.Logger

	pendingSelectionTTL time.Duration
	reportTimeout       time.Duration
	now                 func() time.Time

	reports sync.WaitGroup
}

type Option func(*ApplicationService)

func WithPendingSelectionTTL(ttl time.Duration) Option {
	return func(s *ApplicationService) {
		s.pendingSelectionTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ApplicationService) {
		s.now = now
	}
}

func NewApplicationService(store Store, kv kvstore.Store, publisher notify.Publisher, reporter selection.Reporter, logger *zap.Logger, opts ...Option) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ApplicationService{
		store:               store,
		kv:                  kv,
		publisher:           publisher,
		reporter:            reporter,
		logger:              logger,
		pendingSelectionTTL: time.Hour,
		reportTimeout:       10 * time.Second,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func pendingSelectionKey(userID, jobID int64) string {
	return fmt.Sprintf("pending_selection_%d_%d", userID, jobID)
}

func mutedFacilitiesKey(userID int64) string {
	return fmt.Sprintf("muted_facilities_%d", userID)
}

// report は応募処理中の予期しないエラーを運用チームに送る。送信の成否は呼び出し元に影響しない
func (s *ApplicationService) report(err error, userID, jobID int64, workDateIDs []int64) {
	if s.reporter == nil {
		return
	}

	report := domain.ErrorReport{
		Message:     err.Error(),
		UserID:      userID,
		JobID:       jobID,
		WorkDateIDs: workDateIDs,
		OccurredAt:  s.now(),
	}

	s.reports.Add(1)
	go func() {
		defer s.reports.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.reportTimeout)
		defer cancel()

		if err := s.reporter.Report(ctx, report); err != nil {
			s.logger.Warn("エラーレポートの送信に失敗しました", zap.Error(err), zap.Int64("job_id", jobID))
		}
	}()
}

// Wait は送信中のエラーレポートが終わるまで待つ
func (s *ApplicationService) Wait() {
	s.reports.Wait()
}
