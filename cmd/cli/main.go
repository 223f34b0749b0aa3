package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/config"
	"github.com/shift-marketplace/backend/internal/kvstore"
	"github.com/shift-marketplace/backend/internal/logging"
	"github.com/shift-marketplace/backend/internal/notify"
	"github.com/shift-marketplace/backend/internal/repository"
	"github.com/shift-marketplace/backend/internal/service"
)

// App は各コマンドが共有する依存関係
type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	repo   *repository.Repository

	// 以下は connectServices で接続する
	rdb      *redis.Client
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
	svc      *service.ApplicationService
	reporter *notify.ErrorReporter
}

var app *App

func main() {
	rootCmd := &cobra.Command{
		Use:           "cli",
		Short:         "シフトマーケットの運用 CLI",
		Long:          `求人の勤務日の状態確認、ワーカーとしての応募、マイグレーションを行う。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}

func initApp() error {
	var err error
	app = &App{ctx: context.Background()}

	app.cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.logger, err = logging.New(app.cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.db, err = repository.OpenDB(app.ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.repo = repository.NewRepository(app.cfg, app.db)

	return nil
}

// connectServices は Redis と RabbitMQ に接続してサービスを組み立てる
func (a *App) connectServices() error {
	a.rdb = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", a.cfg.Redis.Host, a.cfg.Redis.Port),
		Password: a.cfg.Redis.Password,
	})

	var err error
	a.amqpConn, err = amqp.Dial(a.cfg.RabbitMQ.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	a.amqpCh, err = a.amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := notify.DeclareQueue(a.amqpCh, a.cfg.RabbitMQ.Queue); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	publisher := notify.NewAMQPPublisher(a.amqpCh, a.cfg.RabbitMQ.Queue, time.Duration(a.cfg.RabbitMQ.PublishTimeout)*time.Second)
	a.reporter = notify.NewErrorReporter(publisher, a.cfg.Email.OpsAddress)

	// CLI ではセッションがエラーレポートを送るので、サービス側には渡さない
	a.svc = service.NewApplicationService(a.repo, kvstore.NewRedisStore(a.rdb), publisher, nil, a.logger,
		service.WithPendingSelectionTTL(time.Duration(a.cfg.Apply.PendingSelectionTTL)*time.Second),
	)
	return nil
}

func (a *App) close() {
	if a == nil {
		return
	}
	if a.amqpCh != nil {
		a.amqpCh.Close()
	}
	if a.amqpConn != nil {
		a.amqpConn.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
