package notify

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/shift-marketplace/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrBadPayload はキューのメッセージを何度処理しても送信できないことを表す。再キューしない
var ErrBadPayload = errors.New("invalid mail payload")

// Sender は *mail.Client が満たす
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	sender    Sender
	from      string
	templates *template.Template
}

func NewMailer(sender Sender, from string) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}

	return &Mailer{
		sender:    sender,
		from:      from,
		templates: tmpl,
	}, nil
}

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Build はキューのメッセージ本文からメールを組み立てる
func (m *Mailer) Build(body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("failed to set sender: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	var (
		subject string
		name    string
		data    any
	)
	switch env.Type {
	case domain.MailTypeErrorReport:
		var report domain.ErrorReport
		if err := json.Unmarshal(env.Data, &report); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		subject = fmt.Sprintf("シフトマーケット - 応募エラー (求人 %d)", report.JobID)
		name = "error_report.html"
		data = report
	case domain.MailTypeApplicationConfirmed:
		var confirmed domain.ApplicationConfirmedMailData
		if err := json.Unmarshal(env.Data, &confirmed); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		if confirmed.IsMatched {
			subject = "シフトマーケット - 勤務が確定しました"
		} else {
			subject = "シフトマーケット - 応募を受け付けました"
		}
		name = "application_confirmed.html"
		data = confirmed
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrBadPayload, env.Type)
	}

	tmpl := m.templates.Lookup(name)
	if tmpl == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	msg.Subject(subject)

	return msg, nil
}

// Handle は 1 件のメッセージを組み立てて送信する
func (m *Mailer) Handle(ctx context.Context, body []byte) error {
	msg, err := m.Build(body)
	if err != nil {
		return err
	}
	return m.sender.DialAndSendWithContext(ctx, msg)
}
