package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusApplied   ApplicationStatus = "applied"   // 面接待ち
	ApplicationStatusScheduled ApplicationStatus = "scheduled" // マッチング済み
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
)

type Application struct {
	ID         int64             `json:"id"`
	WorkDateID int64             `json:"workDateID"`
	UserID     int64             `json:"userID"`
	Status     ApplicationStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ScheduledCommitment はワーカーが既に確定している勤務
type ScheduledCommitment struct {
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	JobID      int64  `json:"jobID"`
	WorkDateID int64  `json:"workDateID"`
}

// JobView は求人詳細画面 1 回分のスナップショット
type JobView struct {
	Job                    *Job                  `json:"job"`
	AppliedWorkDateIDs     []int64               `json:"appliedWorkDateIDs"`
	Commitments            []ScheduledCommitment `json:"commitments"`
	PreviouslyAppliedCount int                   `json:"previouslyAppliedCount"`
	PendingSelection       []int64               `json:"pendingSelection"`
}

// ApplicationExportRow は CSV 出力用の 1 行
type ApplicationExportRow struct {
	ApplicationID int64
	WorkDate      string
	UserID        int64
	FullName      string
	PhoneNumber   string
	Status        ApplicationStatus
	CreatedAt     time.Time
}
