package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"

	"taskoverflow/internal/auth"
	"taskoverflow/internal/models"
	"taskoverflow/internal/server"
	"taskoverflow/internal/storage/memory"
	"taskoverflow/internal/tracker"
)

const testSecret = "test-secret"

type harness struct {
	t      *testing.T
	srv    *server.Server
	store  *memory.Store
	signer *auth.Signer
	owner  *models.User
	member *models.User
}

func newHarness(t *testing.T, opts server.Options) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.Open()
	h := &harness{
		t:      t,
		store:  store,
		signer: auth.NewSigner(testSecret, time.Hour),
	}
	h.srv = server.New(tracker.New(store), auth.NewJWTVerifier(testSecret), nil, opts)
	h.owner = h.user("Owner", "owner@example.com")
	h.member = h.user("Member", "member@example.com")
	return h
}

func (h *harness) user(name, email string) *models.User {
	h.t.Helper()
	u := &models.User{Name: name, Email: email}
	require.NoError(h.t, h.store.Users().Create(context.Background(), u))
	return u
}

func (h *harness) token(u *models.User) string {
	h.t.Helper()
	tok, err := h.signer.Sign(u.ID)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) request(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func (h *harness) do(method, path string, as *models.User, body any) (int, map[string]any) {
	h.t.Helper()
	rec := h.request(method, path, h.token(as), body)
	var out map[string]any
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (h *harness) createProject(as *models.User, title string) string {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/api/projects", as, gin.H{"title": title})
	require.Equal(h.t, http.StatusCreated, code, body)
	return body["project"].(map[string]any)["id"].(string)
}

func (h *harness) createTask(as *models.User, projectID, title string) string {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/api/tasks", as, gin.H{"title": title, "projectId": projectID})
	require.Equal(h.t, http.StatusCreated, code, body)
	return body["task"].(map[string]any)["id"].(string)
}

func TestUnauthenticatedRoutes(t *testing.T) {
	h := newHarness(t, server.Options{})

	rec := h.request(http.MethodGet, "/api/test", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Backend is working!"}`, rec.Body.String())

	rec = h.request(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, server.Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, server.Options{})
	expired, err := auth.NewSigner(testSecret, -time.Minute).Sign(h.owner.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage", header: "Bearer garbage"},
		{name: "expired", header: "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.srv.Engine().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, server.Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	h := newHarness(t, server.Options{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, server.Options{RateLimit: rate.Limit(1), RateBurst: 1})

	first := h.request(http.MethodGet, "/api/test", "", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := h.request(http.MethodGet, "/api/test", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests"}`, second.Body.String())
}

func TestPanicRecovered(t *testing.T) {
	h := newHarness(t, server.Options{})
	h.srv.Engine().GET("/boom", func(*gin.Context) { panic("boom") })

	rec := h.request(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error"}`, rec.Body.String())
}

func TestSprintScenario(t *testing.T) {
	h := newHarness(t, server.Options{})

	projectID := h.createProject(h.owner, "Sprint 1")
	taskID := h.createTask(h.owner, projectID, "Design")

	code, body := h.do(http.MethodPatch, "/api/tasks/"+taskID+"/toggle", h.owner, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Task completed successfully", body["message"])

	code, body = h.do(http.MethodGet, "/api/projects/"+projectID+"/stats", h.owner, nil)
	require.Equal(t, http.StatusOK, code, body)
	stats, err := json.Marshal(body["stats"])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"totalTasks": 1,
		"completedTasks": 1,
		"inProgressTasks": 0,
		"progress": 100,
		"tasksByStatus": {"completed": 1}
	}`, string(stats))

	code, body = h.do(http.MethodPatch, "/api/tasks/"+taskID+"/toggle", h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Task reopened successfully", body["message"])
}

func TestProjectLifecycle(t *testing.T) {
	h := newHarness(t, server.Options{})
	projectID := h.createProject(h.owner, "Launch")

	code, body := h.do(http.MethodPut, "/api/projects/"+projectID, h.owner, gin.H{"title": "Launch v2", "status": "completed"})
	require.Equal(t, http.StatusOK, code, body)
	project := body["project"].(map[string]any)
	assert.Equal(t, "Launch v2", project["title"])
	assert.Equal(t, "completed", project["status"])

	code, body = h.do(http.MethodGet, "/api/projects", h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["projects"], 1)

	h.createTask(h.owner, projectID, "one")
	h.createTask(h.owner, projectID, "two")

	code, body = h.do(http.MethodDelete, "/api/projects/"+projectID, h.owner, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Project deleted successfully", body["message"])

	code, _ = h.do(http.MethodGet, "/api/projects/"+projectID, h.owner, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, server.Options{})
	projectID := h.createProject(h.owner, "Mapping")
	taskID := h.createTask(h.owner, projectID, "Secret")
	missing := primitive.NewObjectID().Hex()

	code, body := h.do(http.MethodPost, "/api/projects/"+projectID+"/collaborators", h.owner,
		gin.H{"userEmail": h.member.Email, "role": "viewer"})
	require.Equal(t, http.StatusOK, code, body)

	tests := []struct {
		name    string
		method  string
		path    string
		as      *models.User
		body    any
		code    int
		message string
	}{
		{name: "malformed project id", method: http.MethodGet, path: "/api/projects/nope", as: h.owner, code: http.StatusBadRequest},
		{name: "missing project", method: http.MethodGet, path: "/api/projects/" + missing, as: h.owner, code: http.StatusNotFound, message: "Project not found"},
		{name: "missing title", method: http.MethodPost, path: "/api/projects", as: h.owner, body: gin.H{"description": "x"}, code: http.StatusBadRequest},
		{name: "bad color", method: http.MethodPost, path: "/api/projects", as: h.owner, body: gin.H{"title": "x", "color": "bg-black"}, code: http.StatusBadRequest},
		{name: "task without project", method: http.MethodPost, path: "/api/tasks", as: h.owner, body: gin.H{"title": "x"}, code: http.StatusBadRequest, message: "Task title and project ID are required"},
		{name: "malformed body id", method: http.MethodPost, path: "/api/tasks", as: h.owner, body: gin.H{"title": "x", "projectId": "zz"}, code: http.StatusBadRequest},
		{name: "viewer cannot update", method: http.MethodPut, path: "/api/projects/" + projectID, as: h.member, body: gin.H{"title": "x"}, code: http.StatusNotFound, message: "Project not found or you do not have permission to update"},
		{name: "collaborator cannot read task", method: http.MethodGet, path: "/api/tasks/" + taskID, as: h.member, code: http.StatusForbidden, message: "You do not have access to this task"},
		{name: "missing task", method: http.MethodDelete, path: "/api/tasks/" + missing, as: h.owner, code: http.StatusNotFound, message: "Task not found"},
		{name: "bad status", method: http.MethodPut, path: "/api/tasks/" + taskID, as: h.owner, body: gin.H{"status": "done"}, code: http.StatusBadRequest},
		{name: "unknown email", method: http.MethodPost, path: "/api/projects/" + projectID + "/collaborators", as: h.owner, body: gin.H{"userEmail": "ghost@example.com"}, code: http.StatusNotFound, message: "User not found with this email"},
		{name: "duplicate collaborator", method: http.MethodPost, path: "/api/projects/" + projectID + "/collaborators", as: h.owner, body: gin.H{"userEmail": h.member.Email}, code: http.StatusBadRequest, message: "User is already a collaborator"},
		{name: "empty reorder", method: http.MethodPatch, path: "/api/tasks/reorder", as: h.owner, body: gin.H{"projectId": projectID, "taskIds": []string{}}, code: http.StatusBadRequest, message: "Task IDs array and project ID are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := h.do(tt.method, tt.path, tt.as, tt.body)
			assert.Equal(t, tt.code, code, body)
			assert.Equal(t, false, body["success"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestViewerCanReadProject(t *testing.T) {
	h := newHarness(t, server.Options{})
	projectID := h.createProject(h.owner, "Shared")

	code, _ := h.do(http.MethodGet, "/api/projects/"+projectID, h.member, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := h.do(http.MethodPost, "/api/projects/"+projectID+"/collaborators", h.owner,
		gin.H{"userEmail": "MEMBER@example.com", "role": "viewer"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Collaborator added successfully", body["message"])

	code, _ = h.do(http.MethodGet, "/api/projects/"+projectID, h.member, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = h.do(http.MethodGet, "/api/tasks/project/"+projectID, h.member, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = h.do(http.MethodDelete, "/api/projects/"+projectID+"/collaborators/"+h.member.ID.Hex(), h.owner, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Empty(t, body["project"].(map[string]any)["collaborators"])

	code, _ = h.do(http.MethodGet, "/api/projects/"+projectID, h.member, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReorderOverHTTP(t *testing.T) {
	h := newHarness(t, server.Options{})
	projectID := h.createProject(h.owner, "Board")
	t1 := h.createTask(h.owner, projectID, "t1")
	t2 := h.createTask(h.owner, projectID, "t2")
	t3 := h.createTask(h.owner, projectID, "t3")

	code, body := h.do(http.MethodPatch, "/api/tasks/reorder", h.owner,
		gin.H{"projectId": projectID, "taskIds": []string{t3, t1, t2}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Tasks reordered successfully", body["message"])

	code, body = h.do(http.MethodGet, "/api/tasks/project/"+projectID, h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	var ids []string
	for _, raw := range body["tasks"].([]any) {
		ids = append(ids, raw.(map[string]any)["id"].(string))
	}
	assert.Equal(t, []string{t3, t1, t2}, ids)
}

func TestActivityFeed(t *testing.T) {
	h := newHarness(t, server.Options{})
	projectID := h.createProject(h.owner, "Feed")
	taskID := h.createTask(h.owner, projectID, "first")
	code, _ := h.do(http.MethodPatch, "/api/tasks/"+taskID+"/toggle", h.owner, nil)
	require.Equal(t, http.StatusOK, code)

	code, body := h.do(http.MethodGet, "/api/tasks/activity/feed?limit=2&page=1", h.owner, nil)
	require.Equal(t, http.StatusOK, code, body)
	activities := body["activities"].([]any)
	require.Len(t, activities, 2)
	assert.Equal(t, "task_completed", activities[0].(map[string]any)["type"])
	assert.Equal(t, map[string]any{
		"currentPage": float64(1),
		"limit":       float64(2),
		"totalItems":  float64(3),
		"totalPages":  float64(2),
	}, body["pagination"])

	code, body = h.do(http.MethodGet, "/api/tasks/activity/feed?limit=bad&page=-3", h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["activities"], 3)
	assert.Equal(t, float64(tracker.DefaultPageSize), body["pagination"].(map[string]any)["limit"])

	code, body = h.do(http.MethodGet, "/api/projects/"+projectID+"/activity", h.owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["activities"], 3)

	code, body = h.do(http.MethodGet, "/api/tasks/activity/feed", h.member, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["activities"])
}

func TestUnknownAPIRoute(t *testing.T) {
	h := newHarness(t, server.Options{})

	rec := h.request(http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Endpoint not found"}`, rec.Body.String())
}

func TestDueDateFormats(t *testing.T) {
	h := newHarness(t, server.Options{})

	code, body := h.do(http.MethodPost, "/api/projects", h.owner, gin.H{"title": "Dated", "dueDate": "2024-05-01"})
	require.Equal(t, http.StatusCreated, code, body)
	project := body["project"].(map[string]any)
	assert.Equal(t, "2024-05-01T00:00:00Z", project["dueDate"])
	projectID := project["id"].(string)

	code, body = h.do(http.MethodPost, "/api/tasks", h.owner, gin.H{
		"title": "dated", "projectId": projectID, "dueDate": "2024-06-01T09:30:00+02:00",
	})
	require.Equal(t, http.StatusCreated, code, body)
	task := body["task"].(map[string]any)
	assert.Equal(t, "2024-06-01T07:30:00Z", task["dueDate"])
	taskID := task["id"].(string)

	// An absent dueDate leaves the stored one alone.
	code, body = h.do(http.MethodPut, "/api/tasks/"+taskID, h.owner, gin.H{"title": "renamed"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "2024-06-01T07:30:00Z", body["task"].(map[string]any)["dueDate"])

	code, body = h.do(http.MethodPut, "/api/tasks/"+taskID, h.owner, gin.H{"dueDate": nil})
	require.Equal(t, http.StatusOK, code, body)
	assert.NotContains(t, body["task"].(map[string]any), "dueDate")

	code, body = h.do(http.MethodPut, "/api/projects/"+projectID, h.owner, gin.H{"dueDate": nil})
	require.Equal(t, http.StatusOK, code, body)
	assert.NotContains(t, body["project"].(map[string]any), "dueDate")

	code, body = h.do(http.MethodPut, "/api/projects/"+projectID, h.owner, gin.H{"dueDate": "next week"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", body["message"])
}
