package controllers

import (
	"net/http"
	"strconv"

	"chat-meter/config"
	"chat-meter/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetAdminMetricsHandler(c *gin.Context) {
	metrics, err := h.Admin.Metrics(c.Request.Context())
	if err != nil {
		config.Log.WithError(err).Error("Error building admin metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// GetRecentConversationsHandler accepts an optional ?limit=
func (h *Handler) GetRecentConversationsHandler(c *gin.Context) {
	limit := int64(services.DefaultRecentLimit)
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.ParseInt(l, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	convos, err := h.Admin.RecentConversations(c.Request.Context(), limit)
	if err != nil {
		config.Log.WithError(err).Error("Error retrieving recent conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convos)
}
