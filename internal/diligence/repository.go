package diligence

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines data access for due-diligence reviews.
type Repository interface {
	CreateProject(ctx context.Context, project *Project, tasks []Task) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	GetProjectByTransaction(ctx context.Context, transactionID uuid.UUID) (*Project, error)

	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error)
	UpdateTask(ctx context.Context, task *Task) error

	CreateFinding(ctx context.Context, finding *Finding) error
	GetFinding(ctx context.Context, id uuid.UUID) (*Finding, error)
	ListFindings(ctx context.Context, projectID uuid.UUID) ([]Finding, error)
	UpdateFinding(ctx context.Context, finding *Finding) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertProjectQuery = `
	INSERT INTO dd_projects (
		id, transaction_id, deadline, created_by, created_at, updated_at
	) VALUES (
		:id, :transaction_id, :deadline, :created_by, :created_at, :updated_at
	)`

const insertTaskQuery = `
	INSERT INTO dd_tasks (
		id, project_id, category, priority, title, description, status,
		due_date, completed_by, completed_at, created_at, updated_at
	) VALUES (
		:id, :project_id, :category, :priority, :title, :description, :status,
		:due_date, :completed_by, :completed_at, :created_at, :updated_at
	)`

const insertFindingQuery = `
	INSERT INTO dd_findings (
		id, project_id, task_id, severity, title, description, status,
		raised_by, resolved_by, resolved_at, resolution, created_at, updated_at
	) VALUES (
		:id, :project_id, :task_id, :severity, :title, :description, :status,
		:raised_by, :resolved_by, :resolved_at, :resolution, :created_at, :updated_at
	)`

// CreateProject persists the review and its seeded checklist in one
// transaction.
func (r *PostgresRepository) CreateProject(ctx context.Context, project *Project, tasks []Task) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	if _, err := dbTx.NamedExecContext(ctx, insertProjectQuery, project); err != nil {
		return err
	}
	for i := range tasks {
		if _, err := dbTx.NamedExecContext(ctx, insertTaskQuery, &tasks[i]); err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

func (r *PostgresRepository) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.GetContext(ctx, &project, "SELECT * FROM dd_projects WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &project, err
}

func (r *PostgresRepository) GetProjectByTransaction(ctx context.Context, transactionID uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.GetContext(ctx, &project, "SELECT * FROM dd_projects WHERE transaction_id = $1", transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &project, err
}

func (r *PostgresRepository) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	var task Task
	err := r.db.GetContext(ctx, &task, "SELECT * FROM dd_tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &task, err
}

func (r *PostgresRepository) ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error) {
	var tasks []Task
	err := r.db.SelectContext(ctx, &tasks,
		"SELECT * FROM dd_tasks WHERE project_id = $1 ORDER BY category, created_at", projectID)
	return tasks, err
}

const updateTaskQuery = `
	UPDATE dd_tasks SET
		status = :status,
		completed_by = :completed_by,
		completed_at = :completed_at,
		updated_at = :updated_at
	WHERE id = :id`

func (r *PostgresRepository) UpdateTask(ctx context.Context, task *Task) error {
	_, err := r.db.NamedExecContext(ctx, updateTaskQuery, task)
	return err
}

func (r *PostgresRepository) CreateFinding(ctx context.Context, finding *Finding) error {
	_, err := r.db.NamedExecContext(ctx, insertFindingQuery, finding)
	return err
}

func (r *PostgresRepository) GetFinding(ctx context.Context, id uuid.UUID) (*Finding, error) {
	var finding Finding
	err := r.db.GetContext(ctx, &finding, "SELECT * FROM dd_findings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &finding, err
}

func (r *PostgresRepository) ListFindings(ctx context.Context, projectID uuid.UUID) ([]Finding, error) {
	var findings []Finding
	err := r.db.SelectContext(ctx, &findings,
		"SELECT * FROM dd_findings WHERE project_id = $1 ORDER BY created_at DESC", projectID)
	return findings, err
}

const updateFindingQuery = `
	UPDATE dd_findings SET
		severity = :severity,
		status = :status,
		resolved_by = :resolved_by,
		resolved_at = :resolved_at,
		resolution = :resolution,
		updated_at = :updated_at
	WHERE id = :id`

func (r *PostgresRepository) UpdateFinding(ctx context.Context, finding *Finding) error {
	_, err := r.db.NamedExecContext(ctx, updateFindingQuery, finding)
	return err
}
