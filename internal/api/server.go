// Package api exposes the generation engine over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shared-planner/internal/logger"
	"shared-planner/internal/service"
)

// NewRouter builds the gin engine. /healthz and /metrics are public; every
// /api/v1 route requires a bearer token.
func NewRouter(svc *service.Services, tokens TokenParser, log *slog.Logger) *gin.Engine {
	log = logger.OrDiscard(log)
	h := &handlers{svc: svc, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1", RequireAuth(tokens, log))
	{
		v1.POST("/generate/user", h.generateUser)
		v1.POST("/generate/templates/:id", h.generateTemplate)
		v1.POST("/generate/groups/:id", h.generateGroup)

		v1.GET("/templates", h.listTemplates)
		v1.POST("/templates", h.createTemplate)
		v1.PUT("/templates/:id", h.updateTemplate)
		v1.DELETE("/templates/:id", h.deleteTemplate)

		v1.POST("/tasks", h.createTask)
		v1.POST("/tasks/:id/complete", h.completeTask)
		v1.DELETE("/tasks/:id", h.deleteTask)

		v1.GET("/calendar", h.calendar)

		v1.POST("/groups", h.createGroup)
		v1.GET("/groups/:id/members", h.listMembers)
		v1.POST("/groups/:id/members", h.addMember)
		v1.DELETE("/groups/:id/members/:userId", h.removeMember)
	}
	return r
}
