package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Backend     string `json:"backend"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storageStatus := "ok"
	if err := h.blobs.Ping(ctx); err != nil {
		storageStatus = "error"
		h.log.Error().Err(err).Str("backend", h.blobs.Name()).Msg("storage ping failed")
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Storage:     storageStatus,
		Backend:     h.blobs.Name(),
		Environment: h.cfg.Environment,
	})
}
