package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/cache"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/worker"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer pingCancel()

	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	redisCtx, redisCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer redisCancel()

	if err := rdb.Ping(redisCtx).Err(); err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}

	jobs := cache.NewJobStore(rdb, time.Duration(cfg.Job.Expiration)*time.Second)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	for _, queue := range []string{domain.TimetableQueue, domain.EmailQueue} {
		if _, err := ch.QueueDeclare(
			queue,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			logger.Error("无法声明队列", "queue", queue, "error", err)
			return
		}
	}

	// 排课很耗 CPU，一次只处理一个任务
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置预取数量", "error", err)
		return
	}

	msgs, err := ch.Consume(
		domain.TimetableQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	w := worker.New(cfg, repo, jobs, ch, logger)

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
					logger.Error("消息通道已关闭")
					return
				}
				logger.Info("收到排课任务", slog.String("messageID", msg.MessageId))

				err := w.HandleMessage(ctx, msg.Body)
				switch {
				case err == nil:
					_ = msg.Ack(false)
				case errors.Is(err, worker.ErrRetryable):
					// 关闭时 ctx 已经取消，但任务仍然需要重新发布
					if err := w.Retry(context.Background(), msg.Body, msg.Headers, err); err != nil {
						logger.Error("排课任务将重新入队", slog.String("error", err.Error()))
						_ = msg.Nack(false, true)
						continue
					}
					_ = msg.Ack(false)
				default:
					// 失败原因已经写入任务状态，重试也不会成功
					_ = msg.Ack(false)
				}
			}
		}
	}()

	logger.Info("等待排课任务...（按 CTRL+C 退出）")
	<-sigChan

	logger.Info("正在关闭 timetable worker...")
	cancel()
	wg.Wait()
	logger.Info("timetable worker 已成功关闭")
}
