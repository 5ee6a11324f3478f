package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func (r *Repository) CreateEvolutionJob(job *domain.EvolutionJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = domain.EvolutionStatusPending
	}

	parameters, err := json.Marshal(job.Parameters)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evolution_jobs (id, project_id, parameters, status, notify_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{job.ID, job.ProjectID, parameters, job.Status, job.NotifyEmail}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&job.CreatedAt, &job.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetEvolutionJobByID(id string) (*domain.EvolutionJob, error) {
	query := `
		SELECT
			project_id,
			parameters,
			status,
			best_schedule_id,
			best_makespan,
			generations,
			notify_email,
			error_message,
			created_at,
			finished_at,
			version
		FROM evolution_jobs
		WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	job := &domain.EvolutionJob{
		ID: id,
	}

	var row struct {
		parameters     []byte
		bestScheduleID sql.NullInt64
		bestMakespan   sql.NullInt64
		finishedAt     sql.NullTime
	}
	dst := []any{
		&job.ProjectID,
		&row.parameters,
		&job.Status,
		&row.bestScheduleID,
		&row.bestMakespan,
		&job.Generations,
		&job.NotifyEmail,
		&job.ErrorMessage,
		&job.CreatedAt,
		&row.finishedAt,
		&job.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(row.parameters, &job.Parameters); err != nil {
		return nil, err
	}
	if row.bestScheduleID.Valid {
		job.BestScheduleID = &row.bestScheduleID.Int64
	}
	if row.bestMakespan.Valid {
		job.BestMakespan = &row.bestMakespan.Int64
	}
	if row.finishedAt.Valid {
		job.FinishedAt = &row.finishedAt.Time
	}

	return job, nil
}

// UpdateEvolutionJob 使用乐观锁更新任务状态，版本号不一致时返回 sql.ErrNoRows
func (r *Repository) UpdateEvolutionJob(job *domain.EvolutionJob) error {
	query := `
		UPDATE evolution_jobs
		SET
			status = $1,
			best_schedule_id = $2,
			best_makespan = $3,
			generations = $4,
			error_message = $5,
			finished_at = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{
		job.Status,
		job.BestScheduleID,
		job.BestMakespan,
		job.Generations,
		job.ErrorMessage,
		job.FinishedAt,
		job.ID,
		job.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&job.Version); err != nil {
		return err
	}

	return nil
}

// CompleteEvolutionJob 在同一个事务中保存最优排程并把任务标记为完成
func (r *Repository) CompleteEvolutionJob(job *domain.EvolutionJob, best *domain.ScheduleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	genotype, err := json.Marshal(best.Genotype)
	if err != nil {
		return err
	}

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 事务提交之前不修改 job 和 best，失败时调用方看到的仍是原来的状态
	query := `
		INSERT INTO schedules (project_id, strategy, seed, makespan, genotype)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	var scheduleID int64
	var createdAt time.Time
	params := []any{best.ProjectID, best.Strategy, best.Seed, best.Makespan, genotype}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&scheduleID, &createdAt); err != nil {
		return err
	}

	finishedAt := time.Now()
	query = `
		UPDATE evolution_jobs
		SET
			status = $1,
			best_schedule_id = $2,
			best_makespan = $3,
			generations = $4,
			finished_at = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`
	var version int32
	params = []any{domain.EvolutionStatusCompleted, scheduleID, best.Makespan, job.Generations, finishedAt, job.ID, job.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	best.ID = scheduleID
	best.CreatedAt = createdAt

	makespan := best.Makespan
	job.Status = domain.EvolutionStatusCompleted
	job.BestScheduleID = &scheduleID
	job.BestMakespan = &makespan
	job.FinishedAt = &finishedAt
	job.Version = version

	return nil
}
