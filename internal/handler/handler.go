package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/config"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/repository"
	"golang.org/x/time/rate"
)

// Publisher 由 *amqp.Channel 实现
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	publisher   Publisher
	redisClient *redis.Client
	limiter     *rate.Limiter

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, publisher Publisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		publisher:   publisher,
		redisClient: rdb,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Evolution.RateLimit), cfg.Evolution.RateBurst),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/", h.Health)
	h.Mux.With(h.limitBody).Post("/schedule", h.Schedule)

	h.Mux.Route("/projects", func(r chi.Router) {
		r.With(h.limitBody).Post("/", h.CreateProject)
		r.Get("/", h.GetAllProjects)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.project)
			r.Get("/", h.GetProject)
			r.Delete("/", h.DeleteProject)
			r.Post("/schedules", h.CreateProjectSchedule)
			r.Get("/schedules", h.GetProjectSchedules)
		})
	})

	h.Mux.With(h.scheduleRecord).Get("/schedules/{id}", h.GetSchedule)

	// 演化任务需要令牌
	h.Mux.Route("/evolutions", func(r chi.Router) {
		r.Use(h.auth)
		r.With(h.rateLimit, h.limitBody).Post("/", h.CreateEvolutionJob)
		r.Get("/{id}", h.GetEvolutionJob)
	})
}
