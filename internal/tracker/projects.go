package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/mail"
	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
)

// ProjectInput holds the fields accepted when creating a project. Empty
// enum fields take their defaults.
type ProjectInput struct {
	Title       string
	Description string
	Color       string
	Status      models.ProjectStatus
	Priority    models.Priority
	DueDate     *time.Time
}

// ProjectPatch holds the fields to change; nil leaves a field as is.
type ProjectPatch struct {
	Title        *string
	Description  *string
	Color        *string
	Status       *models.ProjectStatus
	Priority     *models.Priority
	DueDate      *time.Time
	// ClearDueDate removes the due date and wins over DueDate.
	ClearDueDate bool
}

// Stats summarises a project's tasks.
type Stats struct {
	TotalTasks      int                       `json:"totalTasks"`
	CompletedTasks  int                       `json:"completedTasks"`
	InProgressTasks int                       `json:"inProgressTasks"`
	Progress        int                       `json:"progress"`
	TasksByStatus   map[models.TaskStatus]int `json:"tasksByStatus"`
}

// ListProjects returns the projects user owns or collaborates on, newest
// first.
func (s *Service) ListProjects(ctx context.Context, user primitive.ObjectID) ([]models.Project, error) {
	projects, err := s.store.Projects().ListForUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project the user can access.
func (s *Service) GetProject(ctx context.Context, user, id primitive.ObjectID) (*models.Project, error) {
	return s.projectFor(ctx, user, id, CanAccessProject, msgProjectNotFound)
}

// CreateProject stores a new project owned by user.
func (s *Service) CreateProject(ctx context.Context, user primitive.ObjectID, in ProjectInput) (*models.Project, error) {
	now := s.clock.Now()
	p := &models.Project{
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Color:         in.Color,
		Owner:         user,
		Collaborators: []models.Collaborator{},
		Status:        in.Status,
		Priority:      in.Priority,
		DueDate:       in.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Color == "" {
		p.Color = models.DefaultColor
	}
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Projects().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if err := s.Record(ctx, Event{Type: models.ActivityProjectCreated, User: user, Project: p}); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject applies patch. Only the owner may update.
func (s *Service) UpdateProject(ctx context.Context, user, id primitive.ObjectID, patch ProjectPatch) (*models.Project, error) {
	p, err := s.projectFor(ctx, user, id, CanMutateProject, msgProjectNoUpdate)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	switch {
	case patch.ClearDueDate:
		p.DueDate = nil
	case patch.DueDate != nil:
		due := *patch.DueDate
		p.DueDate = &due
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.clock.Now()

	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := s.Record(ctx, Event{Type: models.ActivityProjectUpdated, User: user, Project: p}); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes the project and all of its tasks. One
// project_deleted entry is recorded; the tasks get none of their own.
func (s *Service) DeleteProject(ctx context.Context, user, id primitive.ObjectID) error {
	p, err := s.projectFor(ctx, user, id, CanMutateProject, msgProjectNoDelete)
	if err != nil {
		return err
	}

	n, err := s.store.Tasks().DeleteByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	if err := s.Record(ctx, Event{Type: models.ActivityProjectDeleted, User: user, Project: p}); err != nil {
		return err
	}
	if err := s.store.Projects().Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"project": p.ID.Hex(), "tasks": n}).Info("project deleted")
	return nil
}

// AddCollaborator grants the user registered under email access to the
// project and sends them an invitation. Role defaults to editor.
func (s *Service) AddCollaborator(ctx context.Context, user, id primitive.ObjectID, email string, role models.Role) (*models.Project, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.NewValidationError(msgCollaboratorRequired)
	}
	if role == "" {
		role = models.RoleEditor
	}
	if !role.Valid() {
		return nil, models.NewValidationError("`" + string(role) + "` is not a valid role")
	}

	p, err := s.projectFor(ctx, user, id, CanMutateProject, msgProjectNoPermission)
	if err != nil {
		return nil, err
	}

	invitee, err := s.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(msgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if invitee.ID == p.Owner {
		return nil, models.NewValidationError(msgOwnerAsCollaborator)
	}
	if _, exists := p.Collaborator(invitee.ID); exists {
		return nil, models.NewValidationError(msgAlreadyCollaborator)
	}

	p.Collaborators = append(p.Collaborators, models.Collaborator{User: invitee.ID, Role: role})
	p.UpdatedAt = s.clock.Now()
	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("add collaborator: %w", err)
	}

	s.invite(ctx, user, invitee, p, role)
	return p, nil
}

// invite sends the invitation email. Failures are logged only.
func (s *Service) invite(ctx context.Context, inviter primitive.ObjectID, invitee *models.User, p *models.Project, role models.Role) {
	log := s.logger.WithFields(logrus.Fields{"project": p.ID.Hex(), "invitee": invitee.ID.Hex()})

	inviterName := "A TaskOverflow user"
	if u, err := s.store.Users().Get(ctx, inviter); err == nil && u.Name != "" {
		inviterName = u.Name
	}
	name := invitee.Name
	if name == "" {
		name = invitee.Email
	}

	msg, err := mail.InvitationMessage(mail.Invitation{
		To:      invitee.Email,
		Name:    name,
		Inviter: inviterName,
		Project: p.Title,
		Role:    string(role),
	})
	if err != nil {
		log.WithError(err).Error("render invitation")
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.WithError(err).Warn("invitation email not sent")
	}
}

// RemoveCollaborator revokes collaborator's access. Removing a user who is
// not a collaborator succeeds and changes nothing.
func (s *Service) RemoveCollaborator(ctx context.Context, user, id, collaborator primitive.ObjectID) (*models.Project, error) {
	p, err := s.projectFor(ctx, user, id, CanMutateProject, msgProjectNoPermission)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Collaborator(collaborator); !ok {
		return p, nil
	}

	kept := make([]models.Collaborator, 0, len(p.Collaborators))
	for _, c := range p.Collaborators {
		if c.User != collaborator {
			kept = append(kept, c)
		}
	}
	p.Collaborators = kept
	p.UpdatedAt = s.clock.Now()
	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("remove collaborator: %w", err)
	}
	return p, nil
}

// ProjectStats summarises the project's tasks. Totals come from the stored
// counters; the per-status breakdown is counted live.
func (s *Service) ProjectStats(ctx context.Context, user, id primitive.ObjectID) (Stats, error) {
	p, err := s.projectFor(ctx, user, id, CanAccessProject, msgProjectNotFound)
	if err != nil {
		return Stats{}, err
	}
	byStatus, err := s.store.Tasks().CountByStatus(ctx, p.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("count tasks by status: %w", err)
	}
	for status, n := range byStatus {
		if n == 0 {
			delete(byStatus, status)
		}
	}
	return Stats{
		TotalTasks:      p.TasksCount,
		CompletedTasks:  p.CompletedTasksCount,
		InProgressTasks: p.TasksCount - p.CompletedTasksCount,
		Progress:        p.Progress(),
		TasksByStatus:   byStatus,
	}, nil
}
