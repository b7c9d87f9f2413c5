package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stratolift/internal/models"
	"stratolift/internal/service"
)

type clockInRequest struct {
	Location models.GeoLocation `json:"location"`
	Notes    string             `json:"notes"`
	Image    string             `json:"image"`
}

type clockOutRequest struct {
	ID    string `json:"id"`
	Notes string `json:"notes"`
}

func (h HandlerSet) ListClockIns(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.clockService.List(c.Request.Context(), user, models.ClockInStatus(c.Query("status")), limit)
	if err != nil {
		h.respondError(c, err, "Failed to fetch clock-in data")
		return
	}
	respond(c, http.StatusOK, entries)
}

func (h HandlerSet) ClockIn(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	var req clockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.clockService.ClockIn(c.Request.Context(), user, service.ClockInInput{
		Location: req.Location,
		Notes:    req.Notes,
		Image:    req.Image,
	})
	if err != nil {
		h.respondError(c, err, "Failed to clock in")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Clocked in successfully",
		"data":    entry,
	})
}

func (h HandlerSet) ClockOut(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	var req clockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		fail(c, http.StatusBadRequest, "Clock-in id is required")
		return
	}

	entry, err := h.clockService.ClockOut(c.Request.Context(), user, req.ID, req.Notes)
	if err != nil {
		h.respondError(c, err, "Failed to clock out")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Clocked out successfully",
		"data":    entry,
	})
}
