package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/seed"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var seedValue int64
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机目录, 2: 插入随机用户, 3: 插入默认课时, 4: 从表格导入课程)")
	flag.IntVar(&n, "n", 5, "要插入的用户数量")
	flag.Int64Var(&seedValue, "seed", 0, "随机种子，为 0 时使用当前时间")
	flag.StringVar(&file, "file", "./internal/seed/data/courses.csv", "课程表格的路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

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

	repo := repository.NewRepository(cfg, dbpool)

	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedValue))

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		// 课时由操作 3 单独插入
		opts := utils.CatalogOptions{
			Professors:      cfg.Seed.Professors,
			Classrooms:      cfg.Seed.Classrooms,
			Labs:            cfg.Seed.Labs,
			Sections:        cfg.Seed.Sections,
			EmailDomainName: cfg.Email.UserDomain,
		}
		if _, err := seed.SeedRandomCatalog(repo, rng, opts, false); err != nil {
			slog.Error("无法插入随机目录", slog.String("error", err.Error()))
		}
	case 2:
		if _, err := seed.SeedUsers(repo, rng, n, cfg.Seed.User.Password, cfg.Email.UserDomain); err != nil {
			slog.Error("无法插入用户", slog.String("error", err.Error()))
		}
	case 3:
		if err := seed.SeedDefaultTimeslots(repo); err != nil {
			slog.Error("无法插入默认课时", slog.String("error", err.Error()))
		}
	case 4:
		if err := seed.SeedCoursesFromCSV(repo, rng, file, cfg.Email.UserDomain); err != nil {
			slog.Error("无法导入课程", slog.String("error", err.Error()))
		}
	default:
		slog.Error("指定的操作非法")
	}
}
