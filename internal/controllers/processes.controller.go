package controllers

import (
	"net/http"
	"strconv"

	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
)

// GetTopProcesses groups the connection table by local process
// Query params: limit=N (default: 10)
func (h *Handler) GetTopProcesses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	processes := services.TopProcesses(h.Monitor.View().Connections, limit)
	c.JSON(http.StatusOK, gin.H{
		"count":     len(processes),
		"processes": processes,
	})
}
