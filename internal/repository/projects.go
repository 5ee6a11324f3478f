package repository

import (
	"encoding/json"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func (r *Repository) CreateProject(rec *domain.ProjectRecord) error {
	document, err := json.Marshal(rec.Project)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (name, description, fingerprint, document)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{rec.Name, rec.Description, rec.Fingerprint, document}
	dst := []any{&rec.ID, &rec.CreatedAt, &rec.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllProjects() ([]*domain.ProjectMeta, error) {
	query := `
		SELECT
			id,
			name,
			description,
			fingerprint,
			jsonb_array_length(document->'project/tasks'),
			created_at
		FROM projects
		ORDER BY id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*domain.ProjectMeta{}
	for rows.Next() {
		var meta domain.ProjectMeta
		dst := []any{
			&meta.ID,
			&meta.Name,
			&meta.Description,
			&meta.Fingerprint,
			&meta.NumTasks,
			&meta.CreatedAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		projects = append(projects, &meta)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return projects, nil
}

// GetProjectByID 项目不存在时返回 sql.ErrNoRows
func (r *Repository) GetProjectByID(id int64) (*domain.ProjectRecord, error) {
	query := `
		SELECT name, description, fingerprint, document, created_at, version
		FROM projects
		WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rec := &domain.ProjectRecord{
		ID: id,
	}

	var document []byte
	dst := []any{
		&rec.Name,
		&rec.Description,
		&rec.Fingerprint,
		&document,
		&rec.CreatedAt,
		&rec.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	rec.Project = &domain.Project{}
	if err := json.Unmarshal(document, rec.Project); err != nil {
		return nil, err
	}

	return rec, nil
}

func (r *Repository) DeleteProject(id int64) error {
	query := `
		DELETE FROM projects WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
