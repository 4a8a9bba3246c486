package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"

	"taskoverflow/internal/auth"
	"taskoverflow/internal/tracker"
)

// Options tunes the HTTP surface.
type Options struct {
	// StaticDir holds a built frontend; empty means API only.
	StaticDir   string
	CORSOrigins []string
	// RateLimit of zero disables per-client limiting.
	RateLimit   rate.Limit
	RateBurst   int
}

// Server provides the TaskOverflow HTTP API.
type Server struct {
	engine   *gin.Engine
	svc      *tracker.Service
	verifier auth.Verifier
	logger   logrus.FieldLogger
	opts     Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc *tracker.Service, verifier auth.Verifier, logger logrus.FieldLogger, opts Options) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(recovery(logger))
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(opts.CORSOrigins))
	if opts.RateLimit > 0 {
		router.Use(rateLimiter(newVisitors(opts.RateLimit, opts.RateBurst, visitorTTL, time.Now)))
	}

	srv := &Server{
		engine:   router,
		svc:      svc,
		verifier: verifier,
		logger:   logger,
		opts:     opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/test", s.handleTest)

		projects := api.Group("/projects", s.requireAuth())
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.POST(":id/collaborators", s.handleAddCollaborator)
			projects.DELETE(":id/collaborators/:userId", s.handleRemoveCollaborator)
			projects.GET(":id/stats", s.handleProjectStats)
			projects.GET(":id/activity", s.handleProjectActivity)
		}

		tasks := api.Group("/tasks", s.requireAuth())
		{
			tasks.GET("/project/:projectId", s.handleListTasks)
			tasks.GET("/activity/feed", s.handleActivityFeed)
			tasks.PATCH("/reorder", s.handleReorderTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET("/:id", s.handleGetTask)
			tasks.PUT("/:id", s.handleUpdateTask)
			tasks.DELETE("/:id", s.handleDeleteTask)
			tasks.PATCH("/:id/toggle", s.handleToggleTask)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Backend is working!"})
}

// parseID converts a path parameter to an ObjectID, answering 400 when it
// is malformed.
func parseID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps a tracker outcome to its status code. Anything that is
// not a known outcome is logged and reported as failure.
func (s *Server) respondError(c *gin.Context, err error, failure string) {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": verr.Message})
	case errors.Is(err, tracker.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, tracker.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
	default:
		s.logger.WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString(requestIDKey),
		}).WithError(err).Error(failure)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": failure,
			"error":   err.Error(),
		})
	}
}

// respondBadRequest reports a body that could not be decoded.
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "error": err.Error()})
}

// respondSuccess wraps a payload in the success envelope.
func respondSuccess(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}
