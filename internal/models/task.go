package models

import "time"

type TaskType string

const (
	TaskTypeMaintenance TaskType = "maintenance"
	TaskTypeService     TaskType = "service"
	TaskTypeSOS         TaskType = "sos"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeMaintenance, TaskTypeService, TaskTypeSOS:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusResolved   TaskStatus = "resolved"
	TaskStatusUnresolved TaskStatus = "unresolved"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusCompleted, TaskStatusResolved, TaskStatusUnresolved:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type TaskUpdate struct {
	Message   string    `json:"message"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Person is the compact user reference embedded in tasks.
type Person struct {
	ID         string   `json:"_id"`
	Name       string   `json:"name,omitempty"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Image      string   `json:"image,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Experience string   `json:"experience,omitempty"`
}

type Task struct {
	ID               string       `json:"_id"`
	TaskID           string       `json:"taskId,omitempty"`
	Type             TaskType     `json:"type"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Location         string       `json:"location"`
	ElevatorID       string       `json:"elevatorId,omitempty"`
	Status           TaskStatus   `json:"status"`
	Priority         TaskPriority `json:"priority,omitempty"`
	ScheduledDate    *time.Time   `json:"scheduledDate,omitempty"`
	DueDate          *time.Time   `json:"dueDate,omitempty"`
	EstimatedArrival *time.Time   `json:"estimatedArrival,omitempty"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Updates          []TaskUpdate `json:"updates,omitempty"`
	AssignedTo       *Person      `json:"assignedTo,omitempty"`
	CreatedBy        *Person      `json:"createdBy,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}
