package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

func TestJobKey(t *testing.T) {
	assert.Equal(t, "timetable_job_abc", jobKey("abc"))
}

// TestJobStore 需要一个真实的 redis，通过 TEST_REDIS_ADDR 指定，没有设置时跳过
func TestJobStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 TEST_REDIS_ADDR")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("TEST_REDIS_PASSWORD")})
	defer rdb.Close()

	ctx := context.Background()
	store := NewJobStore(rdb, time.Minute)

	job := &domain.GenerationJob{
		ID:        uuid.NewString(),
		Name:      "2026 秋季学期",
		Status:    domain.GenerationJobPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, job))
	defer rdb.Del(ctx, jobKey(job.ID))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Name, got.Name)
	assert.Equal(t, domain.GenerationJobPending, got.Status)

	_, err = store.MarkRunning(ctx, job.ID)
	require.NoError(t, err)

	done, err := store.MarkSucceeded(ctx, job.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, done.TimetableID)
	assert.Equal(t, int64(7), *done.TimetableID)

	got, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationJobSucceeded, got.Status)

	_, err = store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = store.MarkFailed(ctx, uuid.NewString(), "超时")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
