package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shift-marketplace/backend/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// DeclareQueue は API と notifier の両方で同じ設定のキューを宣言する
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // 永続化
		false, // コンシューマがいなくても削除しない
		false,
		false,
		nil,
	)
}

type AMQPPublisher struct {
	mu      sync.Mutex
	ch      *amqp.Channel
	queue   string
	timeout time.Duration
}

func NewAMQPPublisher(ch *amqp.Channel, queue string, timeout time.Duration) *AMQPPublisher {
	return &AMQPPublisher{
		ch:      ch,
		queue:   queue,
		timeout: timeout,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.NewString(),
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}
