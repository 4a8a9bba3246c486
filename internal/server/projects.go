package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskoverflow/internal/models"
	"taskoverflow/internal/tracker"
)

type createProjectRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       string               `json:"color"`
	Status      models.ProjectStatus `json:"status"`
	Priority    models.Priority      `json:"priority"`
	DueDate     dueDate              `json:"dueDate"`
}

type updateProjectRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Color       *string               `json:"color"`
	Status      *models.ProjectStatus `json:"status"`
	Priority    *models.Priority      `json:"priority"`
	DueDate     dueDate               `json:"dueDate"`
}

type collaboratorRequest struct {
	UserEmail string      `json:"userEmail" binding:"omitempty,email"`
	Role      models.Role `json:"role"`
}

// handleListProjects returns every project the caller owns or collaborates on.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.svc.ListProjects(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err, "Failed to fetch projects")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"projects": projects})
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := s.svc.GetProject(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err, "Failed to fetch project")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"project": project})
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	project, err := s.svc.CreateProject(c.Request.Context(), currentUser(c), tracker.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate.value,
	})
	if err != nil {
		s.respondError(c, err, "Failed to create project")
		return
	}
	respondSuccess(c, http.StatusCreated, "Project created successfully", gin.H{"project": project})
}

// handleUpdateProject changes the supplied fields of a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	project, err := s.svc.UpdateProject(c.Request.Context(), currentUser(c), id, tracker.ProjectPatch{
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate.value,
		ClearDueDate: req.DueDate.clears(),
	})
	if err != nil {
		s.respondError(c, err, "Failed to update project")
		return
	}
	respondSuccess(c, http.StatusOK, "Project updated successfully", gin.H{"project": project})
}

// handleDeleteProject removes a project together with its tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteProject(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondError(c, err, "Failed to delete project")
		return
	}
	respondSuccess(c, http.StatusOK, "Project deleted successfully", nil)
}

func (s *Server) handleAddCollaborator(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req collaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	project, err := s.svc.AddCollaborator(c.Request.Context(), currentUser(c), id, req.UserEmail, req.Role)
	if err != nil {
		s.respondError(c, err, "Failed to add collaborator")
		return
	}
	respondSuccess(c, http.StatusOK, "Collaborator added successfully", gin.H{"project": project})
}

func (s *Server) handleRemoveCollaborator(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}

	project, err := s.svc.RemoveCollaborator(c.Request.Context(), currentUser(c), id, userID)
	if err != nil {
		s.respondError(c, err, "Failed to remove collaborator")
		return
	}
	respondSuccess(c, http.StatusOK, "Collaborator removed successfully", gin.H{"project": project})
}

// handleProjectStats reports counters and the per-status breakdown.
func (s *Server) handleProjectStats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	stats, err := s.svc.ProjectStats(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err, "Failed to fetch project statistics")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"stats": stats})
}
