package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/config"
	"github.com/shift-marketplace/backend/internal/logging"
	"github.com/shift-marketplace/backend/internal/notify"
)

func main() {
	/**********************************************
	 * 設定の読み込み
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "設定を読み込めません:", err)
		os.Exit(1)
	}

	/**********************************************
	 * ロガーの作成
	 **********************************************/
	logger, err := logging.New(cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ロガーを作成できません:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	/**********************************************
	 * メールクライアントの作成
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
		mail.WithTimeout(time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second),
	)
	if err != nil {
		logger.Error("メールクライアントを作成できません", zap.Error(err))
		return
	}

	mailer, err := notify.NewMailer(client, cfg.Email.SMTP.Username)
	if err != nil {
		logger.Error("メールテンプレートを読み込めません", zap.Error(err))
		return
	}

	/**********************************************
	 * RabbitMQ への接続
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("RabbitMQ に接続できません", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("チャネルを作成できません", zap.Error(err))
		return
	}
	defer ch.Close()

	q, err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error("キューを宣言できません", zap.Error(err))
		return
	}

	// SMTP の接続数を抑えるため 1 件ずつ処理する
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("プリフェッチ数を設定できません", zap.Error(err))
		return
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // コンシューマ名は RabbitMQ に任せる
		false, // 送信後に手動で ack する
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("メッセージを購読できません", zap.Error(err))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn("配信チャネルが閉じられました")
					return
				}

				log := logger.With(zap.String("message_id", msg.MessageId))
				sendCtx, sendCancel := context.WithTimeout(ctx, time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
				err := mailer.Handle(sendCtx, msg.Body)
				sendCancel()

				switch {
				case errors.Is(err, notify.ErrBadPayload):
					log.Error("処理できないメッセージを破棄します", zap.Error(err), zap.ByteString("body", msg.Body))
					_ = msg.Nack(false, false)
				case err != nil:
					log.Error("メールの送信に失敗しました", zap.Error(err))
					_ = msg.Nack(false, true) // 再キュー
				default:
					log.Info("メールを送信しました")
					_ = msg.Ack(false)
				}
			}
		}
	}()

	logger.Info("メッセージを待機しています（CTRL+C で終了）", zap.String("queue", q.Name))
	<-sigChan

	logger.Info("notifier を停止しています...")
	cancel()
	wg.Wait()
	logger.Info("notifier を停止しました")
}
