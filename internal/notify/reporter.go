package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shift-marketplace/backend/internal/domain"
)

// ErrorReporter は応募失敗のレポートを運用チーム宛てのメールとしてキューに積む
type ErrorReporter struct {
	publisher Publisher
	to        string
}

func NewErrorReporter(publisher Publisher, to string) *ErrorReporter {
	return &ErrorReporter{
		publisher: publisher,
		to:        to,
	}
}

func (r *ErrorReporter) Report(ctx context.Context, report domain.ErrorReport) error {
	if report.ReportID == "" {
		report.ReportID = uuid.NewString()
	}
	if report.OccurredAt.IsZero() {
		report.OccurredAt = time.Now()
	}

	return r.publisher.Publish(ctx, domain.MailMessage{
		Type: domain.MailTypeErrorReport,
		To:   r.to,
		Data: report,
	})
}
