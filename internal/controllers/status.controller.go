package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"corewatch/internal/middleware"
	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler serves the dashboard API for one monitor
type Handler struct {
	Monitor   *services.Monitor
	Hub       *services.WebSocketHub
	Validator *middleware.InputValidator
	Timeout   time.Duration
}

// NewHandler creates a handler. Core calls made on behalf of a request are
// bounded by timeout.
func NewHandler(m *services.Monitor, hub *services.WebSocketHub, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		Monitor:   m,
		Hub:       hub,
		Validator: middleware.NewInputValidator(),
		Timeout:   timeout,
	}
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.Timeout)
}

// coreError maps a failed core call onto a gateway status
func coreError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GetStatus returns the state of every channel plus table totals
func (h *Handler) GetStatus(c *gin.Context) {
	view := h.Monitor.View()

	alive := 0
	for _, record := range view.Connections {
		if record.Alive {
			alive++
		}
	}

	status := gin.H{
		"endpoint":       view.Endpoint,
		"streams":        view.Statuses,
		"connections":    gin.H{"alive": alive, "tracked": len(view.Connections)},
		"upload_total":   view.UploadTotal,
		"download_total": view.DownloadTotal,
		"version":        view.Version,
		"updated_at":     view.UpdatedAt,
	}
	if n := len(view.Traffic); n > 0 {
		status["traffic"] = view.Traffic[n-1]
	}
	if n := len(view.Memory); n > 0 {
		status["memory"] = view.Memory[n-1]
	}
	if h.Hub != nil {
		status["dashboard_clients"] = h.Hub.ClientCount()
	}

	c.JSON(http.StatusOK, status)
}

// GetSelf returns resource usage of the dashboard process
func (h *Handler) GetSelf(c *gin.Context) {
	self, err := services.GetCachedSelfStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, self)
}
