package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func (h *Handler) CreateEvolutionJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   int64                      `json:"projectID" validate:"required,min=1"`
		Parameters  domain.EvolutionParameters `json:"parameters" validate:"required"`
		NotifyEmail string                     `json:"notifyEmail" validate:"omitempty,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Parameters.PopulationSize > h.config.Evolution.MaxPopulationSize {
		h.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("种群规模不能超过 %d", h.config.Evolution.MaxPopulationSize))
		return
	}
	if req.Parameters.MaxGenerations > h.config.Evolution.MaxGenerations {
		h.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("迭代次数不能超过 %d", h.config.Evolution.MaxGenerations))
		return
	}

	if _, err := h.repository.GetProjectByID(req.ProjectID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "项目不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	job := &domain.EvolutionJob{
		ProjectID:   req.ProjectID,
		Parameters:  req.Parameters,
		NotifyEmail: req.NotifyEmail,
	}
	if err := h.repository.CreateEvolutionJob(job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 把任务投递到队列，由 worker 异步执行
	msg, err := json.Marshal(domain.EvolutionMessage{JobID: job.ID})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.publisher.PublishWithContext(ctx, "", domain.EvolutionQueue, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         msg,
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	slog.Info("已提交演化任务", "job", job.ID, "project", job.ProjectID, "sub", r.Context().Value(SubCtxKey))

	h.writeJSON(w, r, http.StatusAccepted, Response{
		Success: true,
		Message: "演化任务已提交",
		Data:    job,
	})
}

func (h *Handler) GetEvolutionJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "任务ID无效")
		return
	}

	job, err := h.repository.GetEvolutionJobByID(jobID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "演化任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取演化任务成功", job)
}
