package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

var ErrJobNotFound = errors.New("排课任务不存在或已过期")

// JobStore 把排课任务的状态保存在 redis 中，过期后自动删除
type JobStore struct {
	rdb        *redis.Client
	expiration time.Duration
}

func NewJobStore(rdb *redis.Client, expiration time.Duration) *JobStore {
	return &JobStore{
		rdb:        rdb,
		expiration: expiration,
	}
}

func jobKey(id string) string {
	return fmt.Sprintf("timetable_job_%s", id)
}

// Save 写入任务状态，每次写入都会刷新过期时间
func (s *JobStore) Save(ctx context.Context, job *domain.GenerationJob) error {
	job.UpdatedAt = time.Now()

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, jobKey(job.ID), payload, s.expiration).Err()
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.GenerationJob, error) {
	payload, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	job := &domain.GenerationJob{}
	if err := json.Unmarshal(payload, job); err != nil {
		return nil, err
	}

	return job, nil
}

// MarkRunning 等辅助方法先读出任务再写回，任务已经过期时返回 ErrJobNotFound
func (s *JobStore) MarkRunning(ctx context.Context, id string) (*domain.GenerationJob, error) {
	return s.update(ctx, id, func(job *domain.GenerationJob) {
		job.Status = domain.GenerationJobRunning
	})
}

func (s *JobStore) MarkSucceeded(ctx context.Context, id string, timetableID int64) (*domain.GenerationJob, error) {
	return s.update(ctx, id, func(job *domain.GenerationJob) {
		job.Status = domain.GenerationJobSucceeded
		job.TimetableID = &timetableID
		job.Error = ""
	})
}

func (s *JobStore) MarkFailed(ctx context.Context, id string, reason string) (*domain.GenerationJob, error) {
	return s.update(ctx, id, func(job *domain.GenerationJob) {
		job.Status = domain.GenerationJobFailed
		job.Error = reason
	})
}

func (s *JobStore) update(ctx context.Context, id string, fn func(job *domain.GenerationJob)) (*domain.GenerationJob, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fn(job)

	if err := s.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
