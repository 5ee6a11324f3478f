package repository

import (
	"encoding/json"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func (r *Repository) InsertSchedule(rec *domain.ScheduleRecord) error {
	genotype, err := json.Marshal(rec.Genotype)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO schedules (project_id, strategy, seed, makespan, genotype)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{rec.ProjectID, rec.Strategy, rec.Seed, rec.Makespan, genotype}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return err
	}

	return nil
}

// GetSchedulesByProjectID 按 makespan 升序返回项目的所有排程
func (r *Repository) GetSchedulesByProjectID(projectID int64) ([]*domain.ScheduleRecord, error) {
	query := `
		SELECT id, strategy, seed, makespan, genotype, created_at
		FROM schedules
		WHERE project_id = $1
		ORDER BY makespan, id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []*domain.ScheduleRecord{}
	for rows.Next() {
		rec := &domain.ScheduleRecord{
			ProjectID: projectID,
		}

		var genotype []byte
		dst := []any{
			&rec.ID,
			&rec.Strategy,
			&rec.Seed,
			&rec.Makespan,
			&genotype,
			&rec.CreatedAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(genotype, &rec.Genotype); err != nil {
			return nil, err
		}

		schedules = append(schedules, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *Repository) GetScheduleByID(id int64) (*domain.ScheduleRecord, error) {
	query := `
		SELECT project_id, strategy, seed, makespan, genotype, created_at
		FROM schedules
		WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rec := &domain.ScheduleRecord{
		ID: id,
	}

	var genotype []byte
	dst := []any{
		&rec.ProjectID,
		&rec.Strategy,
		&rec.Seed,
		&rec.Makespan,
		&genotype,
		&rec.CreatedAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(genotype, &rec.Genotype); err != nil {
		return nil, err
	}

	return rec, nil
}
