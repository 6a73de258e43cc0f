package handlers

import (
	"net/http"

	"neowatch/internal/middleware"
	"neowatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WatchlistHandler struct {
	service service.WatchlistService
}

func NewWatchlistHandler(service service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

func (h *WatchlistHandler) GetWatchlist(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.service.GetWatchlist(ctx, middleware.UserID(c))
	if err != nil {
		respondError(c, err, "failed to fetch watchlist")
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *WatchlistHandler) AddToWatchlist(c *gin.Context) {
	ctx := c.Request.Context()

	var req struct {
		AsteroidID string `json:"asteroidId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asteroid ID is required"})
		return
	}

	item, err := h.service.AddToWatchlist(ctx, middleware.UserID(c), req.AsteroidID)
	if err != nil {
		respondError(c, err, "failed to add to watchlist")
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *WatchlistHandler) RemoveFromWatchlist(c *gin.Context) {
	ctx := c.Request.Context()

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.service.RemoveFromWatchlist(ctx, middleware.UserID(c), itemID); err != nil {
		respondError(c, err, "failed to remove from watchlist")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "removed from watchlist"})
}

func (h *WatchlistHandler) UpdateAlertSettings(c *gin.Context) {
	ctx := c.Request.Context()

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var patch service.AlertSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert settings"})
		return
	}

	item, err := h.service.UpdateAlertSettings(ctx, middleware.UserID(c), itemID, patch)
	if err != nil {
		respondError(c, err, "failed to update alert settings")
		return
	}

	c.JSON(http.StatusOK, item)
}
