package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProxies lists proxies and selector groups
func (h *Handler) GetProxies(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	proxies, err := h.Monitor.Proxies(ctx)
	if err != nil {
		coreError(c, err)
		return
	}
	c.JSON(http.StatusOK, proxies)
}

type selectProxyRequest struct {
	Name string `json:"name" binding:"required"`
}

// SelectProxy makes the named proxy active in a selector group
func (h *Handler) SelectProxy(c *gin.Context) {
	group := c.Param("group")
	var req selectProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"name\": \"...\"}"})
		return
	}
	if !h.Validator.ValidateName(group) || !h.Validator.ValidateName(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group or proxy name"})
		return
	}
	logCommand(c, "select "+group+"="+req.Name)

	ctx, cancel := h.requestContext(c)
	defer cancel()
	if err := h.Monitor.SelectProxy(ctx, group, req.Name); err != nil {
		coreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "selected": req.Name})
}

// GetRules lists the core's routing rules
func (h *Handler) GetRules(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	rules, err := h.Monitor.Rules(ctx)
	if err != nil {
		coreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}
