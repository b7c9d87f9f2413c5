package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stratolift/internal/models"
)

func (h HandlerSet) GetElevator(c *gin.Context) {
	e, err := h.elevators.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch elevator details")
		return
	}
	respond(c, http.StatusOK, e)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var demoElevators = []models.Elevator{
	{
		ID:              "ELV-001",
		Name:            "Lobby North",
		SerialNumber:    "SL-2019-44871",
		Model:           "StratoLift MRL 630",
		Building:        "Harbor Tower",
		Location:        "Ground floor, north core",
		Status:          "operational",
		LastMaintenance: date(2026, time.January, 12),
		NextMaintenance: date(2026, time.April, 12),
	},
	{
		ID:              "ELV-002",
		Name:            "Service Car",
		SerialNumber:    "SL-2017-30112",
		Model:           "StratoLift Freight 2000",
		Building:        "Harbor Tower",
		Location:        "Loading dock",
		Status:          "maintenance",
		LastMaintenance: date(2025, time.November, 3),
		NextMaintenance: date(2026, time.February, 3),
	},
	{
		ID:           "ELV-003",
		Name:         "Garden Wing",
		SerialNumber: "SL-2022-58203",
		Model:        "StratoLift MRL 450",
		Building:     "Riverside Clinic",
		Location:     "East wing",
		Status:       "operational",
	},
}
