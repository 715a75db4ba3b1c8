package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"corewatch/internal/models"
	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
)

// parseWindow reads the optional duration query param. Zero means the whole
// buffer.
func parseWindow(c *gin.Context) (time.Duration, bool) {
	durationStr := c.Query("duration")
	if durationStr == "" {
		return 0, true
	}
	duration, err := time.ParseDuration(durationStr)
	if err != nil || duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration format"})
		return 0, false
	}
	return duration, true
}

// GetTrafficSeries returns smoothed upload/download speed points
// Query params: duration=30s|1m (default: whole buffer)
func (h *Handler) GetTrafficSeries(c *gin.Context) {
	duration, ok := parseWindow(c)
	if !ok {
		return
	}

	samples := h.Monitor.View().Traffic
	if duration > 0 {
		samples = services.SamplesSince(samples, time.Now().Add(-duration))
	}

	c.JSON(http.StatusOK, gin.H{
		"series": models.ChannelTraffic,
		"data":   samples,
	})
}

// GetMemorySeries returns smoothed in-use memory points
// Query params: duration=30s|1m (default: whole buffer)
func (h *Handler) GetMemorySeries(c *gin.Context) {
	duration, ok := parseWindow(c)
	if !ok {
		return
	}

	samples := h.Monitor.View().Memory
	if duration > 0 {
		samples = services.SamplesSince(samples, time.Now().Add(-duration))
	}

	c.JSON(http.StatusOK, gin.H{
		"series": models.ChannelMemory,
		"data":   samples,
	})
}

// GetLogs returns the buffered core log lines, newest last
// Query params: type=info|warning|error|debug, limit=N
func (h *Handler) GetLogs(c *gin.Context) {
	level := strings.ToLower(c.Query("type"))
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	logs := h.Monitor.View().Logs
	if level != "" {
		filtered := []models.LogRecord{}
		for _, l := range logs {
			if strings.EqualFold(l.Type, level) {
				filtered = append(filtered, l)
			}
		}
		logs = filtered
	}
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(logs),
		"data":  logs,
	})
}
