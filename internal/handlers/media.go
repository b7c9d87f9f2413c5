package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stratolift/internal/middleware"
	"stratolift/internal/service"
	"stratolift/internal/storage"
)

type uploadResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
}

func (h HandlerSet) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxUploadBytes+1<<20)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	userID := ""
	if user, ok := middleware.CurrentUser(c); ok {
		userID = user.ID
	}

	result, err := h.uploadService.Upload(c.Request.Context(), service.UploadInput{
		UserID: userID,
		File:   file,
	})
	if err != nil {
		h.respondError(c, err, "Failed to upload file")
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		URL:      result.URL,
		PublicID: result.PublicID,
		Format:   result.MIME,
		Bytes:    result.Size,
	})
}

// ServeFile returns uploads kept by the in-memory store.
func (h HandlerSet) ServeFile(mem *storage.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		data, contentType, found := mem.Get(key)
		if !found {
			fail(c, http.StatusNotFound, "File not found")
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}
