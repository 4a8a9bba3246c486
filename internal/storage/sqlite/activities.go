package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

const activityColumns = `id, user_id, project_id, project_name, task_id, task, type, metadata, created_at`

type activities struct{ db *sql.DB }

func (r activities) Append(ctx context.Context, a *models.Activity) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	meta := a.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	var taskID sql.NullString
	if a.TaskID != nil {
		taskID = sql.NullString{String: a.TaskID.Hex(), Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO activities(`+activityColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.Hex(), a.User.Hex(), a.ProjectID.Hex(), a.ProjectName, taskID, a.Task, string(a.Type),
		string(raw), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r activities) ListByUser(ctx context.Context, user primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	return r.list(ctx, "user_id", user, page)
}

func (r activities) CountByUser(ctx context.Context, user primitive.ObjectID) (int, error) {
	return r.count(ctx, "user_id", user)
}

func (r activities) ListByProject(ctx context.Context, project primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	return r.list(ctx, "project_id", project, page)
}

func (r activities) CountByProject(ctx context.Context, project primitive.ObjectID) (int, error) {
	return r.count(ctx, "project_id", project)
}

// list pages newest first. column is one of the two fixed filter columns.
func (r activities) list(ctx context.Context, column string, id primitive.ObjectID, page storage.Page) ([]models.Activity, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE `+column+` = ?
        ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, id.Hex(), limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r activities) count(ctx context.Context, column string, id primitive.ObjectID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities WHERE `+column+` = ?`, id.Hex()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

func scanActivity(row scanner) (models.Activity, error) {
	var (
		a                    models.Activity
		id, user, project    string
		typ, meta, createdAt string
		taskID               sql.NullString
	)
	if err := row.Scan(&id, &user, &project, &a.ProjectName, &taskID, &a.Task, &typ, &meta, &createdAt); err != nil {
		return models.Activity{}, notFound(err, "get activity")
	}
	a.Type = models.ActivityType(typ)
	if err := json.Unmarshal([]byte(meta), &a.Metadata); err != nil {
		return models.Activity{}, fmt.Errorf("decode metadata: %w", err)
	}
	var err error
	if a.ID, err = parseID(id); err != nil {
		return models.Activity{}, err
	}
	if a.User, err = parseID(user); err != nil {
		return models.Activity{}, err
	}
	if a.ProjectID, err = parseID(project); err != nil {
		return models.Activity{}, err
	}
	if taskID.Valid {
		tid, err := parseID(taskID.String)
		if err != nil {
			return models.Activity{}, err
		}
		a.TaskID = &tid
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Activity{}, err
	}
	return a, nil
}
