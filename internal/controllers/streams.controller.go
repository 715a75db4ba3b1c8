package controllers

import (
	"errors"
	"net/http"
	"time"

	"corewatch/internal/models"
	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
)

// GetStreams returns the status of every channel
func (h *Handler) GetStreams(c *gin.Context) {
	statuses := make([]models.StreamStatus, 0, len(models.AllChannels))
	for _, ch := range models.AllChannels {
		controller, err := h.Monitor.Controller(ch)
		if err != nil {
			continue
		}
		statuses = append(statuses, controller.Status())
	}
	c.JSON(http.StatusOK, gin.H{"streams": statuses})
}

// StreamCommand runs start, pause, resume or stop on one channel
func (h *Handler) StreamCommand(c *gin.Context) {
	ch := models.Channel(c.Param("channel"))
	action := c.Param("action")
	logCommand(c, string(ch)+" "+action)

	if err := h.Monitor.Command(ch, action); err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownChannel):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnknownAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotStarted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	controller, _ := h.Monitor.Controller(ch)
	status := controller.Status()
	if h.Hub != nil {
		h.Hub.Broadcast(services.WebSocketMessage{
			Type:      "command",
			Timestamp: time.Now(),
			Data: gin.H{
				"channel": ch,
				"action":  action,
				"source":  c.ClientIP(),
				"status":  status,
			},
		})
	}
	c.JSON(http.StatusOK, status)
}
