package selection

import (
	"github.com/shift-marketplace/backend/internal/domain"
)

type Status string

const (
	StatusAvailable    Status = "available"
	StatusApplied      Status = "applied"
	StatusFull         Status = "full"
	StatusTimeConflict Status = "time-conflict"
)

// Label は画面に表示する選択不可の理由
func (s Status) Label() string {
	switch s {
	case StatusApplied:
		return "応募済み"
	case StatusTimeConflict:
		return "時間重複"
	case StatusFull:
		return "募集終了"
	default:
		return ""
	}
}

func (s Status) Selectable() bool {
	return s == StatusAvailable
}

type Classification struct {
	WorkDateID int64  `json:"workDateID"`
	WorkDate   string `json:"workDate"`
	Status     Status `json:"status"`
	Label      string `json:"label"`
}

type ClassifyInput struct {
	RequiresInterview       bool
	DefaultRecruitmentCount int32
	JobStartTime            string
	JobEndTime              string
	Applied                 IDSet
	Commitments             []domain.ScheduledCommitment
}

// Classify は勤務日 1 件の応募可否を判定する。
// 優先順位は 応募済み > 時間重複 > 募集終了 > 応募可。
func Classify(slot domain.WorkDateSlot, in ClassifyInput) Classification {
	status := StatusAvailable

	switch {
	case in.Applied.Has(slot.ID):
		status = StatusApplied
	case hasConflict(slot, in):
		status = StatusTimeConflict
	case isFull(slot, in):
		status = StatusFull
	}

	return Classification{
		WorkDateID: slot.ID,
		WorkDate:   slot.WorkDate,
		Status:     status,
		Label:      status.Label(),
	}
}

func isFull(slot domain.WorkDateSlot, in ClassifyInput) bool {
	// 面接ありの求人は自動マッチングではないので人数で締め切らない
	if in.RequiresInterview {
		return false
	}
	return slot.MatchedCount >= slot.EffectiveRecruitmentCount(in.DefaultRecruitmentCount)
}

func hasConflict(slot domain.WorkDateSlot, in ClassifyInput) bool {
	for _, c := range in.Commitments {
		if c.Date != slot.WorkDate || c.WorkDateID == slot.ID {
			continue
		}
		if Overlaps(in.JobStartTime, in.JobEndTime, c.StartTime, c.EndTime) {
			return true
		}
	}
	return false
}

func inputForJob(job *domain.Job, applied IDSet, commitments []domain.ScheduledCommitment) ClassifyInput {
	return ClassifyInput{
		RequiresInterview:       job.RequiresInterview,
		DefaultRecruitmentCount: job.RecruitmentCount,
		JobStartTime:            job.StartTime,
		JobEndTime:              job.EndTime,
		Applied:                 applied,
		Commitments:             commitments,
	}
}

// ClassifyAll は求人の全勤務日を勤務日の並び順で判定する
func ClassifyAll(job *domain.Job, applied IDSet, commitments []domain.ScheduledCommitment) []Classification {
	in := inputForJob(job, applied, commitments)
	result := make([]Classification, len(job.WorkDates))
	for i, slot := range job.WorkDates {
		result[i] = Classify(slot, in)
	}
	return result
}
