// Package worker 消费 evolution_queue 中的演化任务，运行遗传算法并保存最优排程
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/config"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
)

// ErrDiscard 表示消息本身有问题，重新入队也无法处理
var ErrDiscard = errors.New("消息无法处理")

// Store 由 *repository.Repository 实现
type Store interface {
	GetProjectByID(id int64) (*domain.ProjectRecord, error)
	GetEvolutionJobByID(id string) (*domain.EvolutionJob, error)
	UpdateEvolutionJob(job *domain.EvolutionJob) error
	CompleteEvolutionJob(job *domain.EvolutionJob, best *domain.ScheduleRecord) error
}

// Publisher 由 *amqp.Channel 实现
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Worker struct {
	config    *config.Config
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func New(cfg *config.Config, store Store, publisher Publisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:    cfg,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Run 逐条处理消息直到 ctx 被取消或者通道被关闭
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn("消息通道已关闭")
				return
			}

			err := w.Process(ctx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, ErrDiscard):
				w.logger.Error("丢弃消息", "message", string(msg.Body), "error", err)
				_ = msg.Nack(false, false)
			default:
				w.logger.Error("处理消息失败，重新入队", "message", string(msg.Body), "error", err)
				_ = msg.Nack(false, true)
			}
		}
	}
}

// Process 处理一条演化任务消息。返回非 ErrDiscard 的错误时消息应当重新入队
func (w *Worker) Process(ctx context.Context, body []byte) error {
	var message domain.EvolutionMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("%w: %v", ErrDiscard, err)
	}

	job, err := w.store.GetEvolutionJobByID(message.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %w", ErrDiscard, domain.ErrEvolutionJobNotFound)
		}
		return err
	}

	// 重复投递的消息
	if job.Status != domain.EvolutionStatusPending {
		w.logger.Info("演化任务已处理，跳过", "job", job.ID, "status", job.Status)
		return nil
	}

	rec, err := w.store.GetProjectByID(job.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.fail(job, nil, domain.ErrProjectNotFound)
			return nil
		}
		return err
	}

	job.Status = domain.EvolutionStatusRunning
	if err := w.store.UpdateEvolutionJob(job); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 版本号不一致，说明其他 worker 已经接手
			w.logger.Info("演化任务已被其他 worker 接手", "job", job.ID)
			return nil
		}
		return err
	}

	w.logger.Info("开始演化", "job", job.ID, "project", rec.ID, "tasks", rec.Project.NumTasks())
	start := time.Now()

	result, err := w.evolve(ctx, job, rec)
	if err != nil {
		w.fail(job, rec, err)
		return nil
	}

	best := &domain.ScheduleRecord{
		ProjectID: rec.ID,
		Strategy:  strategyName(job.Parameters.Strategy),
		Seed:      job.Parameters.Seed,
		Makespan:  result.Makespan(),
		Genotype:  result.Best.Genotype,
	}
	job.Generations = result.Generations
	if err := w.store.CompleteEvolutionJob(job, best); err != nil {
		w.fail(job, rec, err)
		return nil
	}

	w.logger.Info("演化完成",
		"job", job.ID,
		"makespan", best.Makespan,
		"lowerBound", result.LowerBound.Value,
		"generations", result.Generations,
		"evaluations", result.Evaluations,
		"duration", time.Since(start),
	)

	if job.NotifyEmail != "" {
		w.notify(domain.MailMessage{
			Type: domain.MailTypeEvolutionFinished,
			To:   job.NotifyEmail,
			Data: domain.EvolutionFinishedMailData{
				JobID:       job.ID,
				ProjectName: rec.Name,
				Makespan:    best.Makespan,
				LowerBound:  result.LowerBound.Value,
				Generations: result.Generations,
				ScheduleID:  best.ID,
			},
		})
	}

	return nil
}

// evolve 超时视为预算用尽，返回目前为止最好的结果
func (w *Worker) evolve(ctx context.Context, job *domain.EvolutionJob, rec *domain.ProjectRecord) (*scheduler.Result, error) {
	params, err := scheduler.ParametersFrom(job.Parameters)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(w.config.Evolution.Timeout)*time.Second)
	defer cancel()

	rng := rand.New(rand.NewSource(job.Parameters.Seed))
	result, err := scheduler.Evolve(ctx, rec.Project, params, rng)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && result != nil && result.Best != nil {
			w.logger.Warn("演化超时，使用目前最好的结果", "job", job.ID, "generations", result.Generations)
			return result, nil
		}
		return nil, err
	}

	return result, nil
}

func (w *Worker) fail(job *domain.EvolutionJob, rec *domain.ProjectRecord, cause error) {
	w.logger.Error("演化任务失败", "job", job.ID, "error", cause)

	finishedAt := time.Now()
	job.Status = domain.EvolutionStatusFailed
	job.BestScheduleID = nil
	job.BestMakespan = nil
	job.ErrorMessage = cause.Error()
	job.FinishedAt = &finishedAt
	if err := w.store.UpdateEvolutionJob(job); err != nil {
		w.logger.Error("无法更新演化任务状态", "job", job.ID, "error", err)
		return
	}

	if job.NotifyEmail == "" {
		return
	}

	projectName := ""
	if rec != nil {
		projectName = rec.Name
	}
	w.notify(domain.MailMessage{
		Type: domain.MailTypeEvolutionFailed,
		To:   job.NotifyEmail,
		Data: domain.EvolutionFailedMailData{
			JobID:        job.ID,
			ProjectName:  projectName,
			ErrorMessage: job.ErrorMessage,
		},
	})
}

// notify 邮件只是通知，发送失败不影响任务结果
func (w *Worker) notify(mailMessage domain.MailMessage) {
	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		w.logger.Error("邮件信息序列化失败", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := w.publisher.PublishWithContext(ctx, "", domain.EmailQueue, true, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        mailData,
	}); err != nil {
		w.logger.Error("无法投递邮件", "to", mailMessage.To, "error", err)
	}
}

func strategyName(strategy string) string {
	if strategy == "" {
		return scheduler.StrategyRandom
	}
	return strategy
}
