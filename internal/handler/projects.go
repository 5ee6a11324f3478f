package handler

import (
	"errors"
	"io"
	"math/rand"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string          `json:"name" validate:"required,max=100"`
		Description string          `json:"description" validate:"max=1000"`
		Project     *domain.Project `json:"project" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateProject(req.Project); err != nil {
		h.documentError(w, r, err)
		return
	}

	fingerprint, err := utils.ProjectFingerprint(req.Project)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	rec := &domain.ProjectRecord{
		Name:        req.Name,
		Description: req.Description,
		Fingerprint: fingerprint,
		Project:     req.Project,
	}
	if err := h.repository.CreateProject(rec); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "projects_name_key":
				h.errorResponse(w, r, http.StatusConflict, "项目名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.createdResponse(w, r, "创建项目成功", rec)
}

func (h *Handler) GetAllProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repository.GetAllProjects()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取项目列表成功", projects)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	rec := r.Context().Value(ProjectCtx).(*domain.ProjectRecord)

	h.successResponse(w, r, "获取项目成功", rec)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	rec := r.Context().Value(ProjectCtx).(*domain.ProjectRecord)

	if err := h.repository.DeleteProject(rec.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除项目成功", nil)
}

// CreateProjectSchedule 为已保存的项目生成一个贪心排程并保存，请求体可以为空
func (h *Handler) CreateProjectSchedule(w http.ResponseWriter, r *http.Request) {
	rec := r.Context().Value(ProjectCtx).(*domain.ProjectRecord)

	var req struct {
		Seed     *int64 `json:"seed"`
		Strategy string `json:"strategy" validate:"omitempty,oneof=random shortest"`
	}

	if err := h.readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Strategy == "" {
		req.Strategy = scheduler.StrategyRandom
	}
	selector, err := scheduler.LookupModeSelector(req.Strategy)
	if err != nil {
		h.documentError(w, r, err)
		return
	}

	seed := rand.Int63()
	if req.Seed != nil {
		seed = *req.Seed
	}

	schedule, err := scheduler.NewGreedySchedule(rec.Project, rand.New(rand.NewSource(seed)), selector)
	if err != nil {
		h.documentError(w, r, err)
		return
	}

	scheduleRecord := &domain.ScheduleRecord{
		ProjectID: rec.ID,
		Strategy:  req.Strategy,
		Seed:      seed,
		Makespan:  scheduler.Makespan(schedule),
		Genotype:  schedule.Genotype,
	}
	if err := h.repository.InsertSchedule(scheduleRecord); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "生成排程成功", scheduleRecord)
}

func (h *Handler) GetProjectSchedules(w http.ResponseWriter, r *http.Request) {
	rec := r.Context().Value(ProjectCtx).(*domain.ProjectRecord)

	schedules, err := h.repository.GetSchedulesByProjectID(rec.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排程列表成功", schedules)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rec := r.Context().Value(ScheduleRecordCtx).(*domain.ScheduleRecord)

	h.successResponse(w, r, "获取排程成功", rec)
}
