package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/config"
	"github.com/shift-marketplace/backend/internal/logging"
	"github.com/shift-marketplace/backend/internal/repository"
	"github.com/shift-marketplace/backend/internal/seed"
)

func main() {
	var (
		op         int
		n          int
		ownerID    int64
		days       int
		fixtureArg string
	)

	flag.IntVar(&op, "op", 0, "実行する操作 (1: ランダムなワーカー, 2: ランダムな施設と求人, 3: フィクスチャ)")
	flag.IntVar(&n, "n", 5, "作成する件数")
	flag.Int64Var(&ownerID, "owner-id", 0, "施設の担当ユーザー ID (op=2)")
	flag.IntVar(&days, "days", 28, "求人の勤務日を散らす日数 (op=2)")
	flag.StringVar(&fixtureArg, "fixture", "", "フィクスチャの YAML ファイル。省略時は同梱のデモデータ (op=3)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "設定を読み込めません:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ロガーを作成できません:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	dbpool, err := repository.OpenDB(ctx, cfg)
	if err != nil {
		logger.Error("データベースに接続できません", zap.Error(err))
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)
	seeder := seed.NewSeeder(repo, logger, cfg.Seed.User.Password, cfg.Email.UserDomain)

	switch op {
	case 0:
		logger.Error("操作が指定されていません")
	case 1:
		if n <= 0 {
			logger.Error("件数には 1 以上を指定してください")
			return
		}
		created := seeder.RandomWorkers(ctx, n)
		logger.Info("ワーカーを作成しました", zap.Int("count", created))
	case 2:
		if n <= 0 || ownerID <= 0 || days <= 0 {
			logger.Error("-n, -owner-id, -days には 1 以上を指定してください")
			return
		}
		facilityIDs := seeder.RandomFacilities(ctx, n, ownerID)
		created := seeder.RandomJobs(ctx, facilityIDs, n, time.Now(), days)
		logger.Info("施設と求人を作成しました", zap.Int("facilities", len(facilityIDs)), zap.Int("jobs", created))
	case 3:
		var fixture *seed.Fixture
		if fixtureArg == "" {
			fixture, err = seed.DemoFixture()
		} else {
			var file *os.File
			file, err = os.Open(fixtureArg)
			if err == nil {
				fixture, err = seed.ParseFixture(file)
				file.Close()
			}
		}
		if err != nil {
			logger.Error("フィクスチャを読み込めません", zap.Error(err))
			return
		}
		if _, err := seeder.ApplyFixture(ctx, fixture); err != nil {
			logger.Error("フィクスチャの投入に失敗しました", zap.Error(err))
			return
		}
	default:
		logger.Error("不正な操作です", zap.Int("op", op))
	}
}
