package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/shift-marketplace/backend/internal/domain"
)

func newTwoSlotJob() *domain.Job {
	return &domain.Job{
		ID:               10,
		Title:            "日勤介護スタッフ",
		JobType:          domain.JobTypeNormal,
		StartTime:        "09:00",
		EndTime:          "11:00",
		RecruitmentCount: 2,
		WorkDates: []domain.WorkDateSlot{
			{ID: 1, WorkDate: "2025-06-01", RecruitmentCount: 2, MatchedCount: 2},
			{ID: 2, WorkDate: "2025-06-02", RecruitmentCount: 2, MatchedCount: 0},
		},
	}
}

func TestClassifyAll_FullAndAvailable(t *testing.T) {
	job := newTwoSlotJob()

	got := ClassifyAll(job, IDSet{}, nil)

	want := []Classification{
		{WorkDateID: 1, WorkDate: "2025-06-01", Status: StatusFull, Label: "募集終了"},
		{WorkDateID: 2, WorkDate: "2025-06-02", Status: StatusAvailable, Label: ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ClassifyAll mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_TimeConflict(t *testing.T) {
	job := newTwoSlotJob()
	commitments := []domain.ScheduledCommitment{
		{Date: "2025-06-02", StartTime: "08:00", EndTime: "12:00", JobID: 99, WorkDateID: 500},
	}

	got := ClassifyAll(job, IDSet{}, commitments)

	assert.Equal(t, StatusTimeConflict, got[1].Status)
	assert.Equal(t, "時間重複", got[1].Label)
}

func TestClassify_ConflictOnOtherDateIgnored(t *testing.T) {
	job := newTwoSlotJob()
	commitments := []domain.ScheduledCommitment{
		{Date: "2025-06-03", StartTime: "08:00", EndTime: "12:00", JobID: 99, WorkDateID: 500},
	}

	got := ClassifyAll(job, IDSet{}, commitments)

	assert.Equal(t, StatusAvailable, got[1].Status)
}

func TestClassify_SelfExclusion(t *testing.T) {
	job := newTwoSlotJob()
	commitments := []domain.ScheduledCommitment{
		// 同じ勤務日そのものの確定はどんな時刻でも重複にしない
		{Date: "2025-06-02", StartTime: "09:00", EndTime: "11:00", JobID: job.ID, WorkDateID: 2},
	}

	got := Classify(job.WorkDates[1], inputForJob(job, IDSet{}, commitments))

	assert.Equal(t, StatusAvailable, got.Status)
}

func TestClassify_Precedence(t *testing.T) {
	job := newTwoSlotJob()
	commitments := []domain.ScheduledCommitment{
		{Date: "2025-06-01", StartTime: "10:00", EndTime: "12:00", JobID: 99, WorkDateID: 501},
	}
	in := inputForJob(job, NewIDSet(1), commitments)

	// 応募済み・時間重複・募集終了のすべてに該当する
	assert.Equal(t, StatusApplied, Classify(job.WorkDates[0], in).Status)

	in.Applied = IDSet{}
	assert.Equal(t, StatusTimeConflict, Classify(job.WorkDates[0], in).Status)

	in.Commitments = nil
	assert.Equal(t, StatusFull, Classify(job.WorkDates[0], in).Status)
}

func TestClassify_InterviewOverridesFull(t *testing.T) {
	job := newTwoSlotJob()
	job.RequiresInterview = true

	got := ClassifyAll(job, IDSet{}, nil)

	assert.Equal(t, StatusAvailable, got[0].Status)
}

func TestClassify_FallsBackToJobRecruitmentCount(t *testing.T) {
	job := newTwoSlotJob()
	job.WorkDates = []domain.WorkDateSlot{
		{ID: 3, WorkDate: "2025-06-03", MatchedCount: 2},
		{ID: 4, WorkDate: "2025-06-04", MatchedCount: 1},
		{ID: 5, WorkDate: "2025-06-05", RecruitmentCount: 1, MatchedCount: 1},
	}

	got := ClassifyAll(job, IDSet{}, nil)

	assert.Equal(t, StatusFull, got[0].Status, "unset slot count uses the job's count of 2")
	assert.Equal(t, StatusAvailable, got[1].Status)
	assert.Equal(t, StatusFull, got[2].Status, "slot count overrides the job's count")
}
