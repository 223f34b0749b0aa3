package domain

import "time"

type JobType string

const (
	JobTypeNormal JobType = "normal"
	JobTypeOffer  JobType = "offer" // 施設から特定のワーカーへのオファー、1 勤務日のみ応募可
)

type Facility struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID int64     `json:"ownerUserID"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WorkDateSlot は求人の 1 勤務日
type WorkDateSlot struct {
	ID               int64  `json:"id"`
	WorkDate         string `json:"workDate"` // YYYY-MM-DD
	RecruitmentCount int32  `json:"recruitmentCount"` // 0 の場合は求人の募集人数を使う
	MatchedCount     int32  `json:"matchedCount"`
}

type Job struct {
	ID                int64          `json:"id"`
	FacilityID        int64          `json:"facilityID"`
	Title             string         `json:"title"`
	JobType           JobType        `json:"jobType"`
	StartTime         string         `json:"startTime"` // HH:MM
	EndTime           string         `json:"endTime"`   // HH:MM
	RecruitmentCount  int32          `json:"recruitmentCount"`
	RequiresInterview bool           `json:"requiresInterview"`
	WeeklyFrequency   *int32         `json:"weeklyFrequency"`
	WorkDates         []WorkDateSlot `json:"workDates"`
	CreatedAt         time.Time      `json:"createdAt"`
	Version           int32          `json:"-"`
}

// EffectiveRecruitmentCount は勤務日の募集人数、未設定なら jobDefault を返す
func (wd WorkDateSlot) EffectiveRecruitmentCount(jobDefault int32) int32 {
	if wd.RecruitmentCount > 0 {
		return wd.RecruitmentCount
	}
	return jobDefault
}

func (j *Job) WorkDate(id int64) (WorkDateSlot, bool) {
	for _, wd := range j.WorkDates {
		if wd.ID == id {
			return wd, true
		}
	}
	return WorkDateSlot{}, false
}
