package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stratolift/internal/models"
	"stratolift/internal/service"
)

type createTaskRequest struct {
	Type          models.TaskType     `json:"type"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Location      string              `json:"location"`
	Priority      models.TaskPriority `json:"priority"`
	ElevatorID    string              `json:"elevatorId"`
	ScheduledDate *time.Time          `json:"scheduledDate"`
	Attachments   []models.Attachment `json:"attachments"`
}

type updateTaskRequest struct {
	Status        *models.TaskStatus   `json:"status"`
	Priority      *models.TaskPriority `json:"priority"`
	UpdateMessage string               `json:"updateMessage"`
}

func (h HandlerSet) ListTasks(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	tasks, err := h.taskService.List(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err, "Failed to fetch tasks")
		return
	}
	respond(c, http.StatusOK, tasks)
}

func (h HandlerSet) GetTask(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	task, err := h.taskService.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch task details")
		return
	}
	respond(c, http.StatusOK, task)
}

func (h HandlerSet) CreateTask(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), user, service.CreateTaskInput{
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		Priority:      req.Priority,
		ElevatorID:    req.ElevatorID,
		ScheduledDate: req.ScheduledDate,
		Attachments:   req.Attachments,
	})
	if err != nil {
		h.respondError(c, err, "Failed to submit task")
		return
	}
	respond(c, http.StatusCreated, task)
}

func (h HandlerSet) UpdateTask(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), user, c.Param("id"), service.TaskPatch{
		Status:        req.Status,
		Priority:      req.Priority,
		UpdateMessage: req.UpdateMessage,
	})
	if err != nil {
		h.respondError(c, err, "Failed to update task status")
		return
	}
	respond(c, http.StatusOK, task)
}

func (h HandlerSet) DeleteTask(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	if err := h.taskService.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted"})
}
