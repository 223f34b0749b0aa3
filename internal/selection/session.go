package selection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/domain"
)

type State string

const (
	StateEmpty      State = "empty"
	StateSelecting  State = "selecting"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateApplied    State = "applied"
	StateFailed     State = "failed"
)

// StateApplied は終端状態なので遷移先を持たない
var validTransitions = map[State][]State{
	StateEmpty:      {StateSelecting, StateValidating},
	StateSelecting:  {StateEmpty, StateSelecting, StateValidating},
	StateValidating: {StateEmpty, StateSelecting, StateSubmitting},
	StateSubmitting: {StateApplied, StateFailed},
	StateFailed:     {StateEmpty, StateSelecting, StateValidating},
}

func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	ErrSubmitInProgress = errors.New("応募を送信中です")
	ErrSessionClosed    = errors.New("この求人への応募は完了しています")
)

// ProfileIncompleteError はプロフィール未入力のため応募できなかったことを表す。
// 呼び出し側はプロフィール編集へ誘導する。
type ProfileIncompleteError struct {
	MissingFields []string
	WorkDateIDs   []int64
}

func (e *ProfileIncompleteError) Error() string {
	return "プロフィールの入力が完了していません: " + strings.Join(e.MissingFields, ", ")
}

// SubmissionError はバリデーション以外の送信失敗
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

const genericSubmitFailure = "応募に失敗しました。時間をおいて再度お試しください"

type SubmitResult struct {
	Success       bool     `json:"success"`
	IsMatched     bool     `json:"isMatched"`
	Error         string   `json:"error,omitempty"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// Submitter は応募 API
type Submitter interface {
	Submit(ctx context.Context, jobID int64, workDateIDs []int64) (*SubmitResult, error)
}

// Reporter は送信失敗の通知先。失敗してもセッションには影響しない
type Reporter interface {
	Report(ctx context.Context, report domain.ErrorReport) error
}

type SubmitOutcome struct {
	WorkDateIDs []int64 `json:"workDateIDs"`
	IsMatched   bool    `json:"isMatched"`
}

type SessionOption func(*Session)

// WithPreselected はプロフィール編集から戻ってきたときの選択を復元する。応募できない勤務日は捨てる
func WithPreselected(ids []int64) SessionOption {
	return func(s *Session) {
		s.preselected = ids
	}
}

func WithUserID(userID int64) SessionOption {
	return func(s *Session) {
		s.userID = userID
	}
}

func WithReportTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.reportTimeout = d
	}
}

// Session は求人詳細画面 1 回分の勤務日選択と応募送信を管理する
type Session struct {
	mu sync.Mutex

	job                    *domain.Job
	commitments            []domain.ScheduledCommitment
	previouslyAppliedCount int

	applied   IDSet
	selected  IDSet
	state     State
	isMatched bool

	submitter     Submitter
	reporter      Reporter
	logger        *zap.Logger
	userID        int64
	preselected   []int64
	reportTimeout time.Duration

	reports sync.WaitGroup
}

func NewSession(view *domain.JobView, submitter Submitter, reporter Reporter, logger *zap.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		job:                    view.Job,
		commitments:            view.Commitments,
		previouslyAppliedCount: view.PreviouslyAppliedCount,
		applied:                NewIDSet(view.AppliedWorkDateIDs...),
		selected:               IDSet{},
		state:                  StateEmpty,
		submitter:              submitter,
		reporter:               reporter,
		logger:                 logger.With(zap.Int64("job_id", view.Job.ID)),
		reportTimeout:          10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, id := range s.preselected {
		s.selectLocked(id)
	}
	s.preselected = nil

	return s
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	if !IsTransitionAllowed(s.state, next) {
		s.logger.DPanic("不正な状態遷移", zap.String("from", string(s.state)), zap.String("to", string(next)))
	}
	s.state = next
}

func (s *Session) idleState() State {
	if s.selected.Len() > 0 {
		return StateSelecting
	}
	return StateEmpty
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Selected() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.Sorted()
}

func (s *Session) Applied() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.Sorted()
}

func (s *Session) IsMatched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isMatched
}

// Classifications は楽観的更新を含む現在の応募済み集合で全勤務日を判定する
func (s *Session) Classifications() []Classification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ClassifyAll(s.job, s.applied, s.commitments)
}

// Toggle は勤務日の選択を切り替え、切り替え後に選択されているかを返す。
// 応募できない勤務日の選択は無視する。
func (s *Session) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLocked(id)
}

func (s *Session) toggleLocked(id int64) bool {
	if s.state == StateApplied {
		return false
	}

	if s.selected.Has(id) {
		s.selected.Remove(id)
		s.settleLocked()
		return false
	}
	return s.selectLocked(id)
}

// selectLocked は応募できる勤務日なら選択に加える。選択済みならそのまま
func (s *Session) selectLocked(id int64) bool {
	if s.state == StateApplied {
		return false
	}
	if !s.selected.Has(id) {
		slot, ok := s.job.WorkDate(id)
		if !ok {
			return false
		}
		c := Classify(slot, inputForJob(s.job, s.applied, s.commitments))
		if !c.Status.Selectable() {
			return false
		}
		// オファー求人は 1 日だけ選べる
		if s.job.JobType == domain.JobTypeOffer {
			s.selected = IDSet{}
		}
		s.selected.Add(id)
	}
	s.settleLocked()
	return true
}

// settleLocked は選択に合わせて状態を戻す。送信中の選択変更は送信中のリクエストに影響しない
func (s *Session) settleLocked() {
	if s.state != StateSubmitting {
		s.setState(s.idleState())
	}
}

// Submit は選択中の勤務日で応募する。
// 送信前に応募済みとして扱い選択をクリアする。失敗した場合は応募済み集合だけを送信前の状態に戻し、
// 選択は復元しない。
func (s *Session) Submit(ctx context.Context) (*SubmitOutcome, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StateApplied:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}

	s.setState(StateValidating)
	if err := s.validateLocked(); err != nil {
		s.setState(s.idleState())
		s.mu.Unlock()
		return nil, err
	}

	ids := s.selected.Sorted()
	snapshot := s.applied.Clone()
	s.applied = s.applied.Union(s.selected)
	s.selected = IDSet{}
	s.setState(StateSubmitting)
	s.mu.Unlock()

	res, err := s.submitter.Submit(ctx, s.job.ID, ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil && res != nil && res.Success {
		s.isMatched = res.IsMatched
		// 送信中に選ばれた勤務日も応募完了後は選べない
		s.selected = IDSet{}
		s.setState(StateApplied)
		return &SubmitOutcome{WorkDateIDs: ids, IsMatched: res.IsMatched}, nil
	}

	s.applied = snapshot
	s.setState(StateFailed)

	if err == nil && res != nil && len(res.MissingFields) > 0 {
		return nil, &ProfileIncompleteError{MissingFields: res.MissingFields, WorkDateIDs: ids}
	}

	subErr := &SubmissionError{Message: genericSubmitFailure, Err: err}
	if err != nil {
		s.logger.Error("応募の送信中にエラーが発生しました", zap.Error(err), zap.Int64s("work_date_ids", ids), zap.Stack("stack"))
		s.report(subErr, ids)
		return nil, subErr
	}

	// 募集終了や応募済みなど、API が受け付けなかっただけの失敗はレポートしない
	if res != nil && res.Error != "" {
		subErr.Err = errors.New(res.Error)
	}
	s.logger.Warn("応募が受け付けられませんでした", zap.Error(subErr), zap.Int64s("work_date_ids", ids))
	return nil, subErr
}

func (s *Session) validateLocked() error {
	if err := ValidateSelection(ValidateInput{
		Selected:               s.selected,
		Applied:                s.applied,
		WeeklyFrequency:        s.job.WeeklyFrequency,
		PreviouslyAppliedCount: s.previouslyAppliedCount,
	}); err != nil {
		return err
	}
	return CheckEligible(s.job, s.selected, s.applied, s.commitments)
}

func (s *Session) report(err error, ids []int64) {
	if s.reporter == nil {
		return
	}

	report := domain.ErrorReport{
		ReportID:    uuid.NewString(),
		Message:     err.Error(),
		UserID:      s.userID,
		JobID:       s.job.ID,
		WorkDateIDs: ids,
		OccurredAt:  time.Now(),
	}

	s.reports.Add(1)
	go func() {
		defer s.reports.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.reportTimeout)
		defer cancel()

		if err := s.reporter.Report(ctx, report); err != nil {
			s.logger.Warn("エラーレポートの送信に失敗しました", zap.Error(err), zap.String("report_id", report.ReportID))
		}
	}()
}

// Wait は送信中のエラーレポートが終わるまで待つ
func (s *Session) Wait() {
	s.reports.Wait()
}
