package handler

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/utils"
)

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.repository.GetCatalog()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取目录成功", catalog)
}

// handleInsertError 把违反数据库约束的错误转换为用户能看懂的提示
func (h *Handler) handleInsertError(w http.ResponseWriter, r *http.Request, err error, messages map[string]string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := messages[pgErr.ConstraintName]; ok {
			h.errorResponse(w, r, msg)
			return
		}
	}
	h.internalServerError(w, r, err)
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         string  `json:"code" validate:"required,max=32"`
		Name         string  `json:"name" validate:"required,max=64"`
		Kind         string  `json:"kind" validate:"required,oneof=theory lab"`
		ProfessorIDs []int64 `json:"professorIDs" validate:"required,min=1,unique,dive,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	course := &domain.Course{
		Code:         req.Code,
		Name:         req.Name,
		Kind:         domain.CourseKind(req.Kind),
		ProfessorIDs: req.ProfessorIDs,
	}
	if err := h.repository.CreateCourse(course); err != nil {
		h.handleInsertError(w, r, err, map[string]string{
			"courses_code_key":                    "课程代码已存在",
			"course_professors_professor_id_fkey": "教师不存在",
		})
		return
	}

	h.successResponse(w, r, "创建课程成功", course)
}

func (h *Handler) CreateProfessor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName   string `json:"fullName" validate:"required,max=32"`
		Email      string `json:"email" validate:"omitempty,email"`
		MaxCourses int32  `json:"maxCourses" validate:"min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 用户名由姓名的拼音生成
	username := utils.GenerateUsernameFromChineseName(newRand(), req.FullName)
	email := req.Email
	if email == "" {
		email = username + "@" + h.config.Email.UserDomain
	}

	professor := &domain.Professor{
		Username:   username,
		FullName:   req.FullName,
		Email:      email,
		MaxCourses: req.MaxCourses,
	}
	if err := h.repository.CreateProfessor(professor); err != nil {
		h.handleInsertError(w, r, err, map[string]string{
			"professors_username_key": "生成的用户名已存在，请重试",
			"professors_email_key":    "邮箱已被占用",
		})
		return
	}

	h.successResponse(w, r, "创建教师成功", professor)
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code" validate:"required,max=32"`
		Kind     string `json:"kind" validate:"required,oneof=classroom lab"`
		Capacity int32  `json:"capacity" validate:"required,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	room := &domain.Room{
		Code:     req.Code,
		Kind:     domain.RoomKind(req.Kind),
		Capacity: req.Capacity,
	}
	if err := h.repository.CreateRoom(room); err != nil {
		h.handleInsertError(w, r, err, map[string]string{
			"rooms_code_key": "教室代码已存在",
		})
		return
	}

	h.successResponse(w, r, "创建教室成功", room)
}

func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name" validate:"required,max=32"`
		Strength   int32  `json:"strength" validate:"required,min=1"`
		MaxCourses int32  `json:"maxCourses" validate:"min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	section := &domain.Section{
		Name:       req.Name,
		Strength:   req.Strength,
		MaxCourses: req.MaxCourses,
	}
	if err := h.repository.CreateSection(section); err != nil {
		h.handleInsertError(w, r, err, map[string]string{
			"sections_name_key": "班级名称已存在",
		})
		return
	}

	h.successResponse(w, r, "创建班级成功", section)
}

func (h *Handler) CreateTimeslot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position  int32  `json:"position" validate:"min=0"`
		StartTime string `json:"startTime" validate:"required"`
		EndTime   string `json:"endTime" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	ts := &domain.Timeslot{
		Position:  req.Position,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := utils.ValidateTimeslotTime(ts); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.repository.CreateTimeslot(ts); err != nil {
		h.handleInsertError(w, r, err, map[string]string{
			"timeslots_position_key": "该位置的课时已存在",
		})
		return
	}

	h.successResponse(w, r, "创建课时成功", ts)
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
