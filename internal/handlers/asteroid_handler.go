package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"neowatch/internal/clients"
	"neowatch/internal/service"

	"github.com/gin-gonic/gin"
)

type AsteroidHandler struct {
	service service.NEOService
}

func NewAsteroidHandler(service service.NEOService) *AsteroidHandler {
	return &AsteroidHandler{service: service}
}

func (h *AsteroidHandler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	feed, err := h.service.GetFeed(ctx, startDate, endDate)
	if err != nil {
		respondError(c, err, "failed to fetch asteroid feed")
		return
	}

	c.JSON(http.StatusOK, feed)
}

func (h *AsteroidHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()

	asteroid, err := h.service.GetAsteroid(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to fetch asteroid details")
		return
	}

	c.JSON(http.StatusOK, asteroid)
}

func (h *AsteroidHandler) Browse(c *gin.Context) {
	ctx := c.Request.Context()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	result, err := h.service.Browse(ctx, page, size)
	if err != nil {
		respondError(c, err, "failed to browse asteroids")
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondError сводит внутренние ошибки к небольшому набору исходов API
func respondError(c *gin.Context, err error, fallback string) {
	var providerErr *clients.ProviderError

	switch {
	case errors.Is(err, service.ErrAlreadyWatched):
		c.JSON(http.StatusConflict, gin.H{"error": "asteroid already in watchlist"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
	case errors.As(err, &providerErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "data provider unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
