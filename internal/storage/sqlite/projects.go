package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

const projectColumns = `id, title, description, color, owner, status, priority, due_date,
        tasks_count, completed_tasks_count, created_at, updated_at`

type projects struct{ db *sql.DB }

func (r projects) Create(ctx context.Context, p *models.Project) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert project: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.Hex(), p.Title, p.Description, p.Color, p.Owner.Hex(), string(p.Status), string(p.Priority),
		formatOptionalTime(p.DueDate), p.TasksCount, p.CompletedTasksCount,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if err := writeCollaborators(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r projects) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id.Hex())
	p, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadCollaborators(ctx, []*models.Project{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r projects) ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects
        WHERE owner = ? OR id IN (SELECT project_id FROM project_collaborators WHERE user_id = ?)
        ORDER BY created_at DESC, rowid DESC`, user.Hex(), user.Hex())
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	ptrs := make([]*models.Project, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := r.loadCollaborators(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r projects) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []primitive.ObjectID
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		id, err := parseID(hex)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r projects) Update(ctx context.Context, p *models.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update project: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE projects SET title = ?, description = ?, color = ?, owner = ?,
        status = ?, priority = ?, due_date = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Description, p.Color, p.Owner.Hex(), string(p.Status), string(p.Priority),
		formatOptionalTime(p.DueDate), formatTime(p.UpdatedAt), p.ID.Hex())
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := affected(res, "update project"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_collaborators WHERE project_id = ?`, p.ID.Hex()); err != nil {
		return fmt.Errorf("clear collaborators: %w", err)
	}
	if err := writeCollaborators(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r projects) SetCounts(ctx context.Context, id primitive.ObjectID, total, completed int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET tasks_count = ?, completed_tasks_count = ? WHERE id = ?`,
		total, completed, id.Hex())
	if err != nil {
		return fmt.Errorf("set project counts: %w", err)
	}
	return affected(res, "set project counts")
}

func (r projects) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.Hex())
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return affected(res, "delete project")
}

func writeCollaborators(ctx context.Context, tx *sql.Tx, p *models.Project) error {
	for i, c := range p.Collaborators {
		_, err := tx.ExecContext(ctx, `INSERT INTO project_collaborators(project_id, user_id, role, position) VALUES(?, ?, ?, ?)`,
			p.ID.Hex(), c.User.Hex(), string(c.Role), i)
		if err != nil {
			return fmt.Errorf("insert collaborator: %w", err)
		}
	}
	return nil
}

// loadCollaborators fills Collaborators on each project in place.
func (r projects) loadCollaborators(ctx context.Context, list []*models.Project) error {
	for _, p := range list {
		rows, err := r.db.QueryContext(ctx, `SELECT user_id, role FROM project_collaborators
            WHERE project_id = ? ORDER BY position`, p.ID.Hex())
		if err != nil {
			return fmt.Errorf("list collaborators: %w", err)
		}
		p.Collaborators = []models.Collaborator{}
		for rows.Next() {
			var hex, role string
			if err := rows.Scan(&hex, &role); err != nil {
				rows.Close()
				return fmt.Errorf("scan collaborator: %w", err)
			}
			user, err := parseID(hex)
			if err != nil {
				rows.Close()
				return err
			}
			p.Collaborators = append(p.Collaborators, models.Collaborator{User: user, Role: models.Role(role)})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func scanProject(row scanner) (models.Project, error) {
	var (
		p                           models.Project
		id, owner, status, priority string
		createdAt, updatedAt        string
		dueDate                     sql.NullString
	)
	err := row.Scan(&id, &p.Title, &p.Description, &p.Color, &owner, &status, &priority, &dueDate,
		&p.TasksCount, &p.CompletedTasksCount, &createdAt, &updatedAt)
	if err != nil {
		return models.Project{}, notFound(err, "get project")
	}
	p.Status = models.ProjectStatus(status)
	p.Priority = models.Priority(priority)
	if p.ID, err = parseID(id); err != nil {
		return models.Project{}, err
	}
	if p.Owner, err = parseID(owner); err != nil {
		return models.Project{}, err
	}
	if p.DueDate, err = parseOptionalTime(dueDate); err != nil {
		return models.Project{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Project{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

var _ storage.ProjectRepository = projects{}
