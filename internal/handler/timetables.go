package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/cache"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/export"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/utils"
)

// GenerateTimetable 创建一个排课任务并交给 worker 异步执行
func (h *Handler) GenerateTimetable(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	// 获取参数，没有填写的参数使用配置中的默认值
	var req struct {
		Name           string   `json:"name" validate:"required,max=64"`
		PopulationSize int32    `json:"populationSize" validate:"omitempty,min=2,max=1000"`
		MaxGenerations int32    `json:"maxGenerations" validate:"omitempty,min=1,max=10000"`
		TournamentSize int32    `json:"tournamentSize" validate:"omitempty,min=1"`
		CrossoverRate  *float64 `json:"crossoverRate" validate:"omitempty,min=0,max=1"`
		MutationRate   *float64 `json:"mutationRate" validate:"omitempty,min=0,max=1"`
		EliteCount     int32    `json:"eliteCount" validate:"omitempty,min=1"`
		Strategy       string   `json:"strategy" validate:"omitempty,oneof=sequence day"`
		UseGenomeCodec bool     `json:"useGenomeCodec"`
		Seed           int64    `json:"seed"`
		StopOnPerfect  bool     `json:"stopOnPerfect"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	gp := domain.GenerationParameters{
		PopulationSize: req.PopulationSize,
		MaxGenerations: req.MaxGenerations,
		TournamentSize: req.TournamentSize,
		CrossoverRate:  req.CrossoverRate,
		MutationRate:   req.MutationRate,
		EliteCount:     req.EliteCount,
		Strategy:       req.Strategy,
		UseGenomeCodec: req.UseGenomeCodec,
		Seed:           req.Seed,
		StopOnPerfect:  req.StopOnPerfect,
	}

	// 参数之间的约束（例如精英数量不能超过种群大小）需要合并默认值之后才能检查
	if err := h.config.SchedulerParametersFor(gp).Validate(); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	// 提前检查目录，避免把注定失败的任务放进队列
	catalog, err := h.repository.GetCatalog()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := utils.ValidateCatalog(catalog); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	job := &domain.GenerationJob{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Parameters:  gp,
		RequestedBy: myInfo.ID,
		Status:      domain.GenerationJobPending,
		CreatedAt:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	if err := h.jobs.Save(ctx, job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	body, err := json.Marshal(job)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	publishCtx, publishCancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer publishCancel()

	if err := h.channel.PublishWithContext(
		publishCtx,
		"",
		domain.TimetableQueue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID,
			Body:         body,
		},
	); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "排课任务已提交", job)
}

func (h *Handler) GetGenerationJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		h.errorResponse(w, r, "任务ID无效")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrJobNotFound):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排课任务成功", job)
}

func (h *Handler) GetAllTimetables(w http.ResponseWriter, r *http.Request) {
	timetables, err := h.repository.GetAllTimetables()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有课表成功", timetables)
}

func (h *Handler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	tt := r.Context().Value(TimetableCtx).(*domain.Timetable)

	h.successResponse(w, r, "获取课表成功", tt)
}

// ExportTimetable 以 Excel 文件的形式下载课表
func (h *Handler) ExportTimetable(w http.ResponseWriter, r *http.Request) {
	tt := r.Context().Value(TimetableCtx).(*domain.Timetable)

	catalog, err := h.repository.GetCatalog()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	f, err := export.BuildWorkbook(tt, catalog)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("%s.xlsx", tt.Name)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))

	if err := f.Write(w); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) DeleteTimetable(w http.ResponseWriter, r *http.Request) {
	tt := r.Context().Value(TimetableCtx).(*domain.Timetable)

	if err := h.repository.DeleteTimetable(tt.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除课表成功", nil)
}
