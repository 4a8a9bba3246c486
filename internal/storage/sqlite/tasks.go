package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
)

const taskColumns = `id, project_id, title, description, assigned_to, created_by, status, priority,
        due_date, tags, completed, completed_at, position, created_at, updated_at`

type tasks struct{ db *sql.DB }

func (r tasks) Create(ctx context.Context, t *models.Task) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.Hex(), t.Project.Hex(), t.Title, t.Description, t.AssignedTo.Hex(), t.CreatedBy.Hex(),
		string(t.Status), string(t.Priority), formatOptionalTime(t.DueDate), tags, t.Completed,
		formatOptionalTime(t.CompletedAt), t.Order, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r tasks) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.Hex())
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByProject returns tasks ordered by position, newest first on ties.
func (r tasks) ListByProject(ctx context.Context, project primitive.ObjectID) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ?
        ORDER BY position ASC, created_at DESC, rowid DESC`, project.Hex())
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r tasks) Update(ctx context.Context, t *models.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET project_id = ?, title = ?, description = ?, assigned_to = ?,
        created_by = ?, status = ?, priority = ?, due_date = ?, tags = ?, completed = ?, completed_at = ?,
        updated_at = ? WHERE id = ?`,
		t.Project.Hex(), t.Title, t.Description, t.AssignedTo.Hex(), t.CreatedBy.Hex(),
		string(t.Status), string(t.Priority), formatOptionalTime(t.DueDate), tags, t.Completed,
		formatOptionalTime(t.CompletedAt), formatTime(t.UpdatedAt), t.ID.Hex())
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return affected(res, "update task")
}

func (r tasks) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.Hex())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affected(res, "delete task")
}

func (r tasks) DeleteByProject(ctx context.Context, project primitive.ObjectID) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, project.Hex())
	if err != nil {
		return 0, fmt.Errorf("delete project tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete project tasks: %w", err)
	}
	return int(n), nil
}

func (r tasks) Count(ctx context.Context, project primitive.ObjectID) (int, int, error) {
	var total, completed int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM tasks WHERE project_id = ?`,
		project.Hex()).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	return total, completed, nil
}

func (r tasks) CountByStatus(ctx context.Context, project primitive.ObjectID) (map[models.TaskStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks WHERE project_id = ? GROUP BY status`, project.Hex())
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[models.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r tasks) MaxOrder(ctx context.Context, project primitive.ObjectID) (int, bool, error) {
	var position sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ?`, project.Hex()).Scan(&position)
	if err != nil {
		return 0, false, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return int(position.Int64), true, nil
	}
	return 0, false, nil
}

func (r tasks) SetOrder(ctx context.Context, project, id primitive.ObjectID, order int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET position = ? WHERE id = ? AND project_id = ?`,
		order, id.Hex(), project.Hex())
	if err != nil {
		return false, fmt.Errorf("set task order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set task order: %w", err)
	}
	return n > 0, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(raw), nil
}

func scanTask(row scanner) (models.Task, error) {
	var (
		t                                  models.Task
		id, project, assignedTo, createdBy string
		status, priority, tags             string
		createdAt, updatedAt               string
		dueDate, completedAt               sql.NullString
	)
	err := row.Scan(&id, &project, &t.Title, &t.Description, &assignedTo, &createdBy, &status, &priority,
		&dueDate, &tags, &t.Completed, &completedAt, &t.Order, &createdAt, &updatedAt)
	if err != nil {
		return models.Task{}, notFound(err, "get task")
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.Priority(priority)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return models.Task{}, fmt.Errorf("decode tags: %w", err)
	}
	for dst, hex := range map[*primitive.ObjectID]string{&t.ID: id, &t.Project: project, &t.AssignedTo: assignedTo, &t.CreatedBy: createdBy} {
		if *dst, err = parseID(hex); err != nil {
			return models.Task{}, err
		}
	}
	if t.DueDate, err = parseOptionalTime(dueDate); err != nil {
		return models.Task{}, err
	}
	if t.CompletedAt, err = parseOptionalTime(completedAt); err != nil {
		return models.Task{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, err
	}
	return t, nil
}
