package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/scheduler"
)

// ErrRetryable 表示任务因为外部依赖暂时不可用而失败，消息应当重新入队
var ErrRetryable = errors.New("任务暂时无法完成")

// RetryHeader 记录排课任务已经被重新发布的次数
const RetryHeader = "x-retry-count"

type Store interface {
	GetCatalog() (*domain.Catalog, error)
	InsertTimetable(timetable *domain.Timetable) error
	GetUserByID(id int64) (*domain.User, error)
}

type JobStore interface {
	MarkRunning(ctx context.Context, id string) (*domain.GenerationJob, error)
	MarkSucceeded(ctx context.Context, id string, timetableID int64) (*domain.GenerationJob, error)
	MarkFailed(ctx context.Context, id string, reason string) (*domain.GenerationJob, error)
}

type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Worker struct {
	cfg       *config.Config
	store     Store
	jobs      JobStore
	publisher Publisher
	logger    *slog.Logger
}

func New(cfg *config.Config, store Store, jobs JobStore, publisher Publisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:       cfg,
		store:     store,
		jobs:      jobs,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleMessage 解析队列中的一条排课任务并执行
func (w *Worker) HandleMessage(ctx context.Context, body []byte) error {
	job := &domain.GenerationJob{}
	if err := json.Unmarshal(body, job); err != nil {
		return fmt.Errorf("排课任务反序列化失败: %w", err)
	}
	if job.ID == "" {
		return errors.New("排课任务缺少 ID")
	}

	return w.Process(ctx, job)
}

// Process 执行一次排课任务
// 返回包装了 ErrRetryable 的错误时任务状态保持为 running，其余错误都已经记录到任务状态中
func (w *Worker) Process(ctx context.Context, job *domain.GenerationJob) error {
	logger := w.logger.With("job", job.ID)

	jobCtx, jobCancel := w.jobCtx(ctx)
	defer jobCancel()

	if _, err := w.jobs.MarkRunning(jobCtx, job.ID); err != nil {
		// 任务状态过期不影响排课本身
		logger.Warn("无法更新任务状态", "status", domain.GenerationJobRunning, "error", err)
	}

	catalog, err := w.store.GetCatalog()
	if err != nil {
		return fmt.Errorf("%w: 无法读取目录: %v", ErrRetryable, err)
	}

	s, err := scheduler.New(w.cfg.SchedulerParametersFor(job.Parameters), catalog)
	if err != nil {
		return w.fail(ctx, job, err)
	}
	s.SetLogger(logger)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.Scheduler.MaxDuration)*time.Second)
	defer cancel()

	result, err := s.Schedule(runCtx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: 排课被中断", ErrRetryable)
		}
		return w.fail(ctx, job, err)
	}

	timetable := &domain.Timetable{
		Name:          job.Name,
		Fitness:       result.Fitness,
		HardConflicts: result.HardConflicts,
		SoftConflicts: result.SoftConflicts,
		Generations:   result.Generations,
		Allocations:   result.Allocations,
		Unscheduled:   result.Unscheduled,
	}
	if err := w.store.InsertTimetable(timetable); err != nil {
		return fmt.Errorf("%w: 无法保存课表: %v", ErrRetryable, err)
	}

	succeededCtx, succeededCancel := w.jobCtx(ctx)
	defer succeededCancel()

	if _, err := w.jobs.MarkSucceeded(succeededCtx, job.ID, timetable.ID); err != nil {
		logger.Warn("无法更新任务状态", "status", domain.GenerationJobSucceeded, "error", err)
	}
	logger.Info("课表已保存", "timetableID", timetable.ID, "stopReason", result.StopReason)

	w.notify(ctx, job, domain.MailTypeTimetableGenerated, func(user *domain.User) any {
		return domain.TimetableGeneratedMailData{
			FullName:      user.FullName,
			JobID:         job.ID,
			TimetableName: timetable.Name,
			TimetableID:   timetable.ID,
			Fitness:       timetable.Fitness,
			HardConflicts: timetable.HardConflicts,
			Unscheduled:   len(timetable.Unscheduled),
		}
	})

	return nil
}

// Retry 处理因为 ErrRetryable 失败的任务
// 重试次数没有超过上限时，带着新的重试次数把任务重新发布到队列末尾；超过上限时把任务标记为失败
// 返回错误说明任务没能重新发布，消息应当原样重新入队
func (w *Worker) Retry(ctx context.Context, body []byte, headers amqp.Table, cause error) error {
	job := &domain.GenerationJob{}
	if err := json.Unmarshal(body, job); err != nil {
		return fmt.Errorf("排课任务反序列化失败: %w", err)
	}

	count := retryCount(headers)
	if count >= w.cfg.Job.MaxRetries {
		w.fail(ctx, job, fmt.Errorf("重试 %d 次后仍然失败: %w", count, cause))
		return nil
	}

	publishCtx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := w.publisher.PublishWithContext(
		publishCtx,
		"",
		domain.TimetableQueue,
		true,
		false,
		amqp.Publishing{
			Headers:      amqp.Table{RetryHeader: int32(count + 1)},
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("无法重新发布排课任务: %w", err)
	}

	w.logger.Warn("排课任务已重新发布", "job", job.ID, "retry", count+1, "error", cause)
	return nil
}

func retryCount(headers amqp.Table) int {
	switch v := headers[RetryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// fail 把任务标记为失败并通知提交者，返回的错误不需要重试
func (w *Worker) fail(ctx context.Context, job *domain.GenerationJob, cause error) error {
	logger := w.logger.With("job", job.ID)
	logger.Error("排课失败", "error", cause)

	jobCtx, cancel := w.jobCtx(ctx)
	defer cancel()

	if _, err := w.jobs.MarkFailed(jobCtx, job.ID, cause.Error()); err != nil {
		logger.Warn("无法更新任务状态", "status", domain.GenerationJobFailed, "error", err)
	}

	w.notify(ctx, job, domain.MailTypeTimetableFailed, func(user *domain.User) any {
		return domain.TimetableFailedMailData{
			FullName: user.FullName,
			JobID:    job.ID,
			Name:     job.Name,
			Reason:   cause.Error(),
		}
	})

	return cause
}

// notify 给提交任务的用户发送邮件，失败只记录日志
func (w *Worker) notify(ctx context.Context, job *domain.GenerationJob, mailType string, data func(user *domain.User) any) {
	logger := w.logger.With("job", job.ID, "type", mailType)

	user, err := w.store.GetUserByID(job.RequestedBy)
	if err != nil {
		logger.Warn("无法获取任务提交者", "userID", job.RequestedBy, "error", err)
		return
	}

	body, err := json.Marshal(domain.MailMessage{
		Type: mailType,
		To:   user.Email,
		Data: data(user),
	})
	if err != nil {
		logger.Warn("邮件信息序列化失败", "error", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := w.publisher.PublishWithContext(
		publishCtx,
		"",
		domain.EmailQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		logger.Warn("无法发送邮件通知", "error", err)
	}
}

func (w *Worker) jobCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(w.cfg.Redis.OperationExpiration)*time.Second)
}
