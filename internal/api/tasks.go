package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"stratolift/internal/models"
)

const maxAttachments = 6

type CreateTaskRequest struct {
	Type          models.TaskType     `json:"type"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Location      string              `json:"location"`
	Priority      models.TaskPriority `json:"priority"`
	ElevatorID    string              `json:"elevatorId,omitempty"`
	ScheduledDate *time.Time          `json:"scheduledDate,omitempty"`
	Attachments   []models.Attachment `json:"attachments"`
}

// Normalize fills defaults: SOS requests are urgent, others medium.
func (r *CreateTaskRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.ElevatorID = strings.TrimSpace(r.ElevatorID)
	if r.Priority == "" {
		if r.Type == models.TaskTypeSOS {
			r.Priority = models.TaskPriorityUrgent
		} else {
			r.Priority = models.TaskPriorityMedium
		}
	}
	if r.Attachments == nil {
		r.Attachments = []models.Attachment{}
	}
}

func (r CreateTaskRequest) Validate() error {
	if r.Title == "" || r.Description == "" || r.Location == "" {
		return ValidationError("Please fill in all required fields.")
	}
	if !r.Type.Valid() {
		return ValidationError("Unknown request type " + string(r.Type))
	}
	if !r.Priority.Valid() {
		return ValidationError("Unknown priority " + string(r.Priority))
	}
	if len(r.Attachments) > maxAttachments {
		return ValidationError("At most 6 attachments are allowed")
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Status        *models.TaskStatus   `json:"status,omitempty"`
	Priority      *models.TaskPriority `json:"priority,omitempty"`
	UpdateMessage string               `json:"updateMessage,omitempty"`
}

// StatusChange builds the patch the task screens send when moving a task.
func StatusChange(status models.TaskStatus) TaskPatch {
	return TaskPatch{
		Status:        &status,
		UpdateMessage: "Status changed to " + string(status),
	}
}

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var out envelope[[]models.Task]
	err := c.send(ctx, request{
		method:   http.MethodGet,
		path:     "/tasks",
		auth:     true,
		fallback: "Failed to fetch tasks",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []models.Task{}, nil
	}
	return out.Data, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	path, err := pathID("/tasks", id)
	if err != nil {
		return models.Task{}, err
	}
	var out envelope[*models.Task]
	if err := c.send(ctx, request{
		method:   http.MethodGet,
		path:     path,
		auth:     true,
		fallback: "Failed to fetch task details",
	}, &out); err != nil {
		return models.Task{}, err
	}
	if out.Data == nil {
		return models.Task{}, &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgInvalidResponse}
	}
	return *out.Data, nil
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (models.Task, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}
	return c.taskResult(ctx, request{
		method:   http.MethodPost,
		path:     "/tasks",
		body:     req,
		auth:     true,
		fallback: "Failed to submit task",
	})
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (models.Task, error) {
	path, err := pathID("/tasks", id)
	if err != nil {
		return models.Task{}, err
	}
	if patch.Status == nil && patch.Priority == nil && strings.TrimSpace(patch.UpdateMessage) == "" {
		return models.Task{}, ValidationError("Nothing to update")
	}
	return c.taskResult(ctx, request{
		method:   http.MethodPatch,
		path:     path,
		body:     patch,
		auth:     true,
		fallback: "Failed to update task status",
	})
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path, err := pathID("/tasks", id)
	if err != nil {
		return err
	}
	return c.send(ctx, request{
		method:   http.MethodDelete,
		path:     path,
		auth:     true,
		fallback: "Failed to delete task",
	}, nil)
}

func (c *Client) taskResult(ctx context.Context, req request) (models.Task, error) {
	var out envelope[*models.Task]
	if err := c.send(ctx, req, &out); err != nil {
		return models.Task{}, err
	}
	if out.failed() {
		msg := out.Message
		if msg == "" {
			msg = req.fallback
		}
		return models.Task{}, &Error{Kind: ErrRequest, Status: http.StatusOK, Message: msg}
	}
	if out.Data == nil {
		return models.Task{}, &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgInvalidResponse}
	}
	return *out.Data, nil
}

func (c *Client) GetElevator(ctx context.Context, id string) (models.Elevator, error) {
	path, err := pathID("/elevators", id)
	if err != nil {
		return models.Elevator{}, err
	}
	var out envelope[*models.Elevator]
	if err := c.send(ctx, request{
		method:   http.MethodGet,
		path:     path,
		auth:     true,
		fallback: "Failed to fetch elevator details",
	}, &out); err != nil {
		return models.Elevator{}, err
	}
	if out.Data == nil {
		return models.Elevator{}, &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgInvalidResponse}
	}
	return *out.Data, nil
}
