package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shift-marketplace/backend/internal/config"
	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/handler"
	"github.com/shift-marketplace/backend/internal/kvstore"
	"github.com/shift-marketplace/backend/internal/logging"
	"github.com/shift-marketplace/backend/internal/notify"
	"github.com/shift-marketplace/backend/internal/repository"
	"github.com/shift-marketplace/backend/internal/service"
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
	 * データベースへの接続
	 **********************************************/
	dbpool, err := repository.OpenDB(context.Background(), cfg)
	if err != nil {
		logger.Error("データベースに接続できません", zap.Error(err))
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	if cfg.Database.AutoMigrate {
		applied, err := repo.RunMigrations(context.Background())
		if err != nil {
			logger.Error("マイグレーションに失敗しました", zap.Error(err))
			return
		}
		if len(applied) > 0 {
			logger.Info("マイグレーションを適用しました", zap.Strings("files", applied))
		}
	}

	/**********************************************
	 * 初期管理者の作成
	 **********************************************/
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("初期管理者のパスワードハッシュを生成できません", zap.Error(err))
		return
	}
	initialAdmin := &domain.User{
		Username:     cfg.InitialAdmin.Username,
		PasswordHash: string(passwordHash),
		FullName:     cfg.InitialAdmin.FullName,
		Email:        cfg.InitialAdmin.Email,
		Role:         domain.RoleAdmin,
	}
	if err := repo.CreateUser(context.Background(), initialAdmin); err != nil {
		var pgErr *pgconn.PgError
		// users_username_key の場合は既に作成済み
		if !errors.As(err, &pgErr) || pgErr.ConstraintName != "users_username_key" {
			logger.Error("初期管理者を作成できません", zap.Error(err))
			return
		}
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

	if _, err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
		logger.Error("キューを宣言できません", zap.Error(err))
		return
	}

	publisher := notify.NewAMQPPublisher(ch, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	reporter := notify.NewErrorReporter(publisher, cfg.Email.OpsAddress)

	/**********************************************
	 * Redis への接続
	 **********************************************/
	opTimeout := time.Duration(cfg.Redis.OperationTimeout) * time.Second
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           0,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
	defer rdb.Close()

	/**********************************************
	 * サービスとハンドラーの作成
	 **********************************************/
	svc := service.NewApplicationService(repo, kvstore.NewRedisStore(rdb), publisher, reporter, logger,
		service.WithPendingSelectionTTL(time.Duration(cfg.Apply.PendingSelectionTTL)*time.Second),
	)

	h, err := handler.NewHandler(cfg, repo, svc, logger)
	if err != nil {
		logger.Error("ハンドラーを作成できません", zap.Error(err))
		return
	}
	h.RegisterRoutes()

	/**********************************************
	 * HTTP サーバーの起動
	 **********************************************/
	errorLog, err := zap.NewStdLogAt(logger, zap.ErrorLevel)
	if err != nil {
		logger.Error("サーバー用のロガーを作成できません", zap.Error(err))
		return
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     errorLog,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("サーバーを起動しています...", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("サーバーを起動できません", zap.Error(err))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("サーバーを停止しています...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("サーバーの停止に失敗しました", zap.Error(err))
	}
	// 送信中のエラーレポートを待つ
	svc.Wait()
	logger.Info("サーバーを停止しました")
}
