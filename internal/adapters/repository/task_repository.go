package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/ports"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

// taskRow is a task joined with its optional owner
type taskRow struct {
	ID            int64          `db:"id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	OwnerID       sql.NullInt64  `db:"owner_id"`
	OwnerUsername sql.NullString `db:"owner_username"`
}

func (row taskRow) toEntity() *entities.Task {
	task := &entities.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Status:      entities.TaskStatus(row.Status),
		CreatedAt:   row.CreatedAt,
	}
	if row.OwnerID.Valid {
		ownerID := row.OwnerID.Int64
		task.OwnerID = &ownerID
	}
	if row.OwnerUsername.Valid {
		task.Owner = &entities.TaskOwner{Username: row.OwnerUsername.String}
	}
	return task
}

const selectTasks = `
		SELECT t.id, t.title, t.description, t.status, t.created_at, t.owner_id,
			u.username AS owner_username
		FROM tasks t
		LEFT JOIN users u ON u.id = t.owner_id`

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := r.db.Rebind(`
		INSERT INTO tasks (title, description, status, created_at, owner_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowxContext(ctx, query,
		task.Title, task.Description, string(task.Status), task.CreatedAt, task.OwnerID,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	query := r.db.Rebind(selectTasks + `
		WHERE t.id = ?`)

	var row taskRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return row.toEntity(), nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context) ([]*entities.Task, error) {
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, selectTasks+`
		ORDER BY t.id`); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return toEntities(rows), nil
}

func (r *TaskRepositoryImpl) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Task, error) {
	query := r.db.Rebind(selectTasks + `
		WHERE t.owner_id = ?
		ORDER BY t.id`)

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("list tasks by owner: %w", err)
	}

	return toEntities(rows), nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, id int64, changes ports.TaskChanges) (*entities.Task, error) {
	query := r.db.Rebind(`
		UPDATE tasks
		SET title = ?, description = COALESCE(?, description), status = COALESCE(?, status)
		WHERE id = ?
		RETURNING id, title, description, status, owner_id`)

	var status *string
	if changes.Status != nil {
		s := string(*changes.Status)
		status = &s
	}

	var (
		task    entities.Task
		rawStat string
		ownerID sql.NullInt64
	)
	err := r.db.QueryRowxContext(ctx, query, changes.Title, changes.Description, status, id).
		Scan(&task.ID, &task.Title, &task.Description, &rawStat, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	task.Status = entities.TaskStatus(rawStat)
	if ownerID.Valid {
		task.OwnerID = &ownerID.Int64
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM tasks WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func toEntities(rows []taskRow) []*entities.Task {
	tasks := make([]*entities.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toEntity())
	}
	return tasks
}
