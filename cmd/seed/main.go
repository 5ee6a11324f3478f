package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/config"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/repository"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/seed"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var projectID int64
	var tasks int
	var resources int
	var strategy string
	var randomSeed int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机项目, 2: 为项目插入贪心排程, 3: 插入样例项目)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Int64Var(&projectID, "project-id", 0, "插入排程的项目 ID")
	flag.IntVar(&tasks, "tasks", 30, "随机项目的任务数量")
	flag.IntVar(&resources, "resources", 4, "随机项目的资源数量")
	flag.StringVar(&strategy, "strategy", "random", "模式选择策略 (random, shortest)")
	flag.Int64Var(&randomSeed, "seed", time.Now().UnixNano(), "随机数种子")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)
	rng := rand.New(rand.NewSource(randomSeed))

	// 执行操作
	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		if n <= 0 {
			logger.Error("请输入合法的项目数量")
			return
		}

		records, err := seed.SeedRandomProjects(repo, rng, n, utils.RandomProjectOptions{
			Tasks:     tasks,
			Resources: resources,
		})
		if err != nil {
			logger.Error("部分项目插入失败", slog.String("error", err.Error()))
		}
		logger.Info("插入项目成功", slog.Int("count", len(records)))
	case 2:
		if n <= 0 || projectID <= 0 {
			logger.Error("请输入合法的项目 ID 和排程数量")
			return
		}

		records, err := seed.SeedSchedules(repo, rng, projectID, n, strategy)
		if err != nil {
			logger.Error("部分排程插入失败", slog.String("error", err.Error()))
		}
		logger.Info("插入排程成功", slog.Int("count", len(records)))
	case 3:
		rec, err := seed.SeedSampleProject(repo)
		if err != nil {
			logger.Error("插入样例项目失败", slog.String("error", err.Error()))
			return
		}
		logger.Info("插入样例项目成功", slog.Int64("id", rec.ID))
	default:
		logger.Error("不支持的操作", slog.Int("op", op))
	}
}
