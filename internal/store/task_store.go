package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskd/internal/model"
)

const taskColumns = `id, name, description, created_at, due_at,
	project_id, responsible_id, status, comments`

// CreateTask inserts a new task and returns its assigned ID.
// An empty status defaults to PENDING.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (int64, error) {
	if strings.TrimSpace(task.Name) == "" {
		return 0, fmt.Errorf("task name must not be empty")
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	var due sql.NullTime
	if task.DueAt != nil {
		due = sql.NullTime{Time: task.DueAt.UTC(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (name, description, created_at, due_at,
			project_id, responsible_id, status, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.Name, task.Description, task.CreatedAt.UTC(), due,
		task.ProjectID, task.ResponsibleID, task.Status, task.Comments,
	)
	if err != nil {
		return 0, fmt.Errorf("creating task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading task id: %w", err)
	}
	return id, nil
}

// ListTasks returns every task, ordered by ID.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id,
	)

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, notFound(err))
	}

	return &task, nil
}

// UpdateTaskStatus sets a task's status and, when comment is non-blank,
// appends it to the comment log on a new line.
func (s *SQLiteStore) UpdateTaskStatus(
	ctx context.Context,
	id int64,
	status, comment string,
) error {
	suffix := ""
	if strings.TrimSpace(comment) != "" {
		suffix = "\n" + comment
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, comments = comments || ? WHERE id = ?",
		status, suffix, id,
	)
	if err != nil {
		return fmt.Errorf("updating status of task %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating status of task %d: %w", id, ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

var (
	_ rowScanner = (*sqlx.Row)(nil)
	_ rowScanner = (*sqlx.Rows)(nil)
)

// scanTask scans a task row selected with taskColumns.
func scanTask(row rowScanner) (model.Task, error) {
	var (
		task model.Task
		due  sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.Name, &task.Description, &task.CreatedAt, &due,
		&task.ProjectID, &task.ResponsibleID, &task.Status, &task.Comments,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	if due.Valid {
		t := due.Time
		task.DueAt = &t
	}

	return task, nil
}

// ListTasksByProject returns the tasks of one project, ordered by ID.
func (s *SQLiteStore) ListTasksByProject(ctx context.Context, projectID int64) ([]model.Task, error) {
	return s.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY id", projectID)
}

// ListTasksByResponsible returns the tasks owned by one user, ordered by ID.
func (s *SQLiteStore) ListTasksByResponsible(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.queryTasks(ctx, "SELECT "+taskColumns+" FROM tasks WHERE responsible_id = ? ORDER BY id", userID)
}

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...interface{}) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateTask overwrites the editable fields of a task. Creation time,
// status and comments are kept; status changes go through UpdateTaskStatus.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) error {
	var due sql.NullTime
	if task.DueAt != nil {
		due = sql.NullTime{Time: task.DueAt.UTC(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET name = ?, description = ?, due_at = ?,
			project_id = ?, responsible_id = ?
		WHERE id = ?`,
		task.Name, task.Description, due,
		task.ProjectID, task.ResponsibleID, task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", task.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating task %d: %w", task.ID, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting task %d: %w", id, ErrNotFound)
	}
	return nil
}
