package handlers

import (
	"net/http"

	"neowatch/internal/middleware"
	"neowatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AlertHandler struct {
	service service.AlertService
}

func NewAlertHandler(service service.AlertService) *AlertHandler {
	return &AlertHandler{service: service}
}

func (h *AlertHandler) GetAlerts(c *gin.Context) {
	ctx := c.Request.Context()

	unreadOnly := c.Query("unread") == "true"

	alerts, err := h.service.GetAlerts(ctx, middleware.UserID(c), unreadOnly)
	if err != nil {
		respondError(c, err, "failed to fetch alerts")
		return
	}

	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	alert, err := h.service.MarkRead(ctx, middleware.UserID(c), alertID)
	if err != nil {
		respondError(c, err, "failed to mark alert as read")
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.service.MarkAllRead(ctx, middleware.UserID(c)); err != nil {
		respondError(c, err, "failed to mark all alerts as read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all alerts marked as read"})
}

func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	ctx := c.Request.Context()

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.service.DeleteAlert(ctx, middleware.UserID(c), alertID); err != nil {
		respondError(c, err, "failed to delete alert")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}
