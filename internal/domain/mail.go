package domain

import "time"

const (
	MailTypeErrorReport          = "error_report"
	MailTypeApplicationConfirmed = "application_confirmed"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

// ErrorReport は応募失敗時に運用チームへ送るレポート
type ErrorReport struct {
	ReportID    string    `json:"reportID"`
	Message     string    `json:"message"`
	UserID      int64     `json:"userID"`
	JobID       int64     `json:"jobID"`
	WorkDateIDs []int64   `json:"workDateIDs"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type ApplicationConfirmedMailData struct {
	FullName  string   `json:"fullName"`
	JobTitle  string   `json:"jobTitle"`
	WorkDates []string `json:"workDates"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	IsMatched bool     `json:"isMatched"`
}
