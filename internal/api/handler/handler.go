package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/wanderlust/internal/apperr"
	"github.com/jon4hz/wanderlust/internal/auth"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
	"github.com/jon4hz/wanderlust/internal/media"
	"github.com/jon4hz/wanderlust/internal/story"
)

type Handler struct {
	config  *config.Config
	db      database.DB
	auth    *auth.Service
	stories *story.Service
	relay   *media.Relay
}

func New(cfg *config.Config, db database.DB, authService *auth.Service, stories *story.Service, relay *media.Relay) *Handler {
	return &Handler{
		config:  cfg,
		db:      db,
		auth:    authService,
		stories: stories,
		relay:   relay,
	}
}

func parseUintParam(param string) (uint, error) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, err
	}
	return safecast.Convert[uint](id)
}

// writeError answers with the client-safe message of err and the status of its kind.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	} else {
		log.Debug("request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}

	c.JSON(status, gin.H{"message": apperr.Message(err, "Internal server error")})
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		log.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
