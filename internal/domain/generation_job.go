package domain

import "time"

// 排课任务队列，由 API 发布、worker 消费
const TimetableQueue = "timetable_queue"

type GenerationJobStatus string

const (
	GenerationJobPending   GenerationJobStatus = "pending"
	GenerationJobRunning   GenerationJobStatus = "running"
	GenerationJobSucceeded GenerationJobStatus = "succeeded"
	GenerationJobFailed    GenerationJobStatus = "failed"
)

// GenerationParameters 是通过接口提交的排课参数，未填写的字段使用配置中的默认值
type GenerationParameters struct {
	PopulationSize int32    `json:"populationSize"`
	MaxGenerations int32    `json:"maxGenerations"`
	TournamentSize int32    `json:"tournamentSize"`
	CrossoverRate  *float64 `json:"crossoverRate"` // 为 nil 时使用默认值，0 是合法的取值
	MutationRate   *float64 `json:"mutationRate"`
	EliteCount     int32    `json:"eliteCount"`
	Strategy       string   `json:"strategy"`
	UseGenomeCodec bool     `json:"useGenomeCodec"`
	Seed           int64    `json:"seed"`
	StopOnPerfect  bool     `json:"stopOnPerfect"`
}

type GenerationJob struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Parameters  GenerationParameters `json:"parameters"`
	RequestedBy int64                `json:"requestedBy"`
	Status      GenerationJobStatus  `json:"status"`
	TimetableID *int64               `json:"timetableID"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}
