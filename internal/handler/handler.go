package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/cache"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/repository"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	channel    *amqp.Channel
	jobs       *cache.JobStore

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, ch *amqp.Channel, jobs *cache.JobStore) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		channel:    ch,
		jobs:       jobs,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.With(h.myInfo).Get("/my-info", h.GetMyInfo)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.GetCatalog)
			r.Group(func(r chi.Router) {
				r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
				r.Post("/courses", h.CreateCourse)
				r.Post("/professors", h.CreateProfessor)
				r.Post("/rooms", h.CreateRoom)
				r.Post("/sections", h.CreateSection)
				r.Post("/timeslots", h.CreateTimeslot)
			})
		})

		r.Route("/timetables", func(r chi.Router) {
			r.Get("/", h.GetAllTimetables)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).With(h.myInfo).Post("/generate", h.GenerateTimetable)
			r.Get("/jobs/{jobID}", h.GetGenerationJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.timetable)
				r.Get("/", h.GetTimetable)
				r.Get("/export", h.ExportTimetable)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteTimetable)
			})
		})
	})
}
