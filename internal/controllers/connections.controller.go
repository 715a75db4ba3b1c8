package controllers

import (
	"net/http"
	"strconv"

	"corewatch/internal/middleware"
	"corewatch/internal/models"

	"github.com/gin-gonic/gin"
)

// GetConnections returns the reconciled table, newest first
// Query params: alive=true|false, limit=N
func (h *Handler) GetConnections(c *gin.Context) {
	view := h.Monitor.View()
	records := view.Connections

	if aliveStr := c.Query("alive"); aliveStr != "" {
		want, err := strconv.ParseBool(aliveStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alive filter"})
			return
		}
		filtered := []models.ConnectionRecord{}
		for _, r := range records {
			if r.Alive == want {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":          len(records),
		"connections":    records,
		"upload_total":   view.UploadTotal,
		"download_total": view.DownloadTotal,
		"version":        view.Version,
	})
}

// CloseConnection closes one connection on the core
func (h *Handler) CloseConnection(c *gin.Context) {
	id := c.Param("id")
	if !h.Validator.ValidateConnectionID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return
	}
	logCommand(c, "close "+id)

	ctx, cancel := h.requestContext(c)
	defer cancel()
	if err := h.Monitor.CloseConnection(ctx, id); err != nil {
		coreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": id})
}

// CloseAllConnections closes every connection on the core
func (h *Handler) CloseAllConnections(c *gin.Context) {
	logCommand(c, "close-all")

	ctx, cancel := h.requestContext(c)
	defer cancel()
	if err := h.Monitor.CloseAllConnections(ctx); err != nil {
		coreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": "all"})
}

// PurgeConnections drops dead connections from the table
func (h *Handler) PurgeConnections(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	removed, err := h.Monitor.PurgeDead(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Refresh reconciles a snapshot fetched over REST
func (h *Handler) Refresh(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	if err := h.Monitor.Refresh(ctx); err != nil {
		coreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": h.Monitor.View().Version})
}

func logCommand(c *gin.Context, command string) {
	if middleware.GlobalSecurityLogger != nil {
		middleware.GlobalSecurityLogger.LogCommand(c.ClientIP(), command)
	}
}
