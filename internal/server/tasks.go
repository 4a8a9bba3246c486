package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/tracker"
)

type createTaskRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ProjectID   string            `json:"projectId"`
	AssignedTo  string            `json:"assignedTo"`
	Status      models.TaskStatus `json:"status"`
	Priority    models.Priority   `json:"priority"`
	DueDate     dueDate           `json:"dueDate"`
	Tags        []string          `json:"tags"`
}

type updateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	AssignedTo  *string            `json:"assignedTo"`
	Status      *models.TaskStatus `json:"status"`
	Priority    *models.Priority   `json:"priority"`
	DueDate     dueDate            `json:"dueDate"`
	Tags        []string           `json:"tags"`
}

type reorderRequest struct {
	TaskIDs   []string `json:"taskIds"`
	ProjectID string   `json:"projectId"`
}

// handleListTasks fetches tasks for a project in board order.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}

	tasks, err := s.svc.ListTasks(c.Request.Context(), currentUser(c), projectID)
	if err != nil {
		s.respondError(c, err, "Failed to fetch tasks")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.svc.GetTask(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err, "Failed to fetch task")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"task": task})
}

// handleCreateTask appends a task to the end of a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	in := tracker.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate.value,
		Tags:        req.Tags,
	}
	if req.ProjectID != "" {
		id, ok := bodyID(c, "projectId", req.ProjectID)
		if !ok {
			return
		}
		in.Project = id
	}
	if req.AssignedTo != "" {
		id, ok := bodyID(c, "assignedTo", req.AssignedTo)
		if !ok {
			return
		}
		in.AssignedTo = &id
	}

	task, err := s.svc.CreateTask(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.respondError(c, err, "Failed to create task")
		return
	}
	respondSuccess(c, http.StatusCreated, "Task created successfully", gin.H{"task": task})
}

// handleUpdateTask updates task fields such as status or description.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	patch := tracker.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate.value,
		ClearDueDate: req.DueDate.clears(),
		Tags:         req.Tags,
	}
	if req.AssignedTo != nil {
		assignee, ok := bodyID(c, "assignedTo", *req.AssignedTo)
		if !ok {
			return
		}
		patch.AssignedTo = &assignee
	}

	task, err := s.svc.UpdateTask(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		s.respondError(c, err, "Failed to update task")
		return
	}
	respondSuccess(c, http.StatusOK, "Task updated successfully", gin.H{"task": task})
}

// handleDeleteTask removes a task from its project.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteTask(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondError(c, err, "Failed to delete task")
		return
	}
	respondSuccess(c, http.StatusOK, "Task deleted successfully", nil)
}

func (s *Server) handleToggleTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.svc.ToggleTask(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err, "Failed to toggle task completion")
		return
	}
	message := "Task reopened successfully"
	if task.Completed {
		message = "Task completed successfully"
	}
	respondSuccess(c, http.StatusOK, message, gin.H{"task": task})
}

// handleReorderTasks stores the board order sent by the client.
func (s *Server) handleReorderTasks(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	var projectID primitive.ObjectID
	if req.ProjectID != "" {
		id, ok := bodyID(c, "projectId", req.ProjectID)
		if !ok {
			return
		}
		projectID = id
	}
	taskIDs := make([]primitive.ObjectID, 0, len(req.TaskIDs))
	for _, raw := range req.TaskIDs {
		id, ok := bodyID(c, "taskIds", raw)
		if !ok {
			return
		}
		taskIDs = append(taskIDs, id)
	}

	if err := s.svc.ReorderTasks(c.Request.Context(), currentUser(c), projectID, taskIDs); err != nil {
		s.respondError(c, err, "Failed to reorder tasks")
		return
	}
	respondSuccess(c, http.StatusOK, "Tasks reordered successfully", nil)
}

// bodyID parses an id taken from a request body, answering 400 when it is
// malformed.
func bodyID(c *gin.Context, field, raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid " + field})
		return primitive.NilObjectID, false
	}
	return id, true
}
