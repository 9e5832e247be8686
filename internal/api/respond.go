package api

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"shared-planner/internal/apperr"
)

// writeError maps err onto its HTTP status. Internal details are only logged.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error("request failed",
			"rid", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"err", err,
		)
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{"error": apperr.PublicMessage(err)})
}

// uintParam reads a positive numeric path parameter.
func uintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidArgument("invalid %s %q", name, raw)
	}
	return uint(id), nil
}
