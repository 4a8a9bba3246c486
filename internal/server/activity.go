package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskoverflow/internal/tracker"
)

// pageQuery reads ?limit=&page=. Missing or malformed values fall back to
// the feed defaults.
func pageQuery(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	return tracker.NormalizePage(page, limit)
}

// handleActivityFeed lists the caller's own activity, newest first.
func (s *Server) handleActivityFeed(c *gin.Context) {
	page, limit := pageQuery(c)

	feed, err := s.svc.Feed(c.Request.Context(), currentUser(c), page, limit)
	if err != nil {
		s.respondError(c, err, "Failed to fetch activity feed")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{
		"activities": feed.Activities,
		"pagination": feed.Pagination,
	})
}

// handleProjectActivity lists every member's activity on one project.
func (s *Server) handleProjectActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, limit := pageQuery(c)

	feed, err := s.svc.ProjectFeed(c.Request.Context(), currentUser(c), id, page, limit)
	if err != nil {
		s.respondError(c, err, "Failed to fetch project activity")
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{
		"activities": feed.Activities,
		"pagination": feed.Pagination,
	})
}
