package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stratolift/internal/ids"
	"stratolift/internal/models"
	"stratolift/internal/repository"
)

type TaskService struct {
	tasks *repository.TaskRepository
	log   zerolog.Logger
	now   func() time.Time
}

func NewTaskService(tasks *repository.TaskRepository, log zerolog.Logger) *TaskService {
	return &TaskService{tasks: tasks, log: log, now: time.Now}
}

type CreateTaskInput struct {
	Type          models.TaskType
	Title         string
	Description   string
	Location      string
	Priority      models.TaskPriority
	ElevatorID    string
	ScheduledDate *time.Time
	Attachments   []models.Attachment
}

type TaskPatch struct {
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	UpdateMessage string
}

func person(u models.User) *models.Person {
	return &models.Person{
		ID:        u.ID,
		Name:      u.FullName(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
	}
}

// visibleTo: admins see everything, technicians see their assignments and
// the unassigned pending queue, users see what they created.
func visibleTo(u models.User) func(models.Task) bool {
	return func(t models.Task) bool {
		switch u.Role {
		case models.UserRoleAdmin:
			return true
		case models.UserRoleTechnician:
			if t.AssignedTo != nil {
				return t.AssignedTo.ID == u.ID
			}
			return t.Status == models.TaskStatusPending
		default:
			return t.CreatedBy != nil && t.CreatedBy.ID == u.ID
		}
	}
}

func (s *TaskService) List(ctx context.Context, u models.User) ([]models.Task, error) {
	return s.tasks.List(ctx, visibleTo(u))
}

func (s *TaskService) Get(ctx context.Context, u models.User, id string) (models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if !visibleTo(u)(task) {
		return models.Task{}, repository.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, u models.User, in CreateTaskInput) (models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if in.Title == "" || in.Description == "" || in.Location == "" {
		return models.Task{}, invalid("Please fill in all required fields.")
	}
	if !in.Type.Valid() {
		return models.Task{}, invalid(fmt.Sprintf("Unknown request type %q", in.Type))
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
		if in.Type == models.TaskTypeSOS {
			in.Priority = models.TaskPriorityUrgent
		}
	}
	if !in.Priority.Valid() {
		return models.Task{}, invalid(fmt.Sprintf("Unknown priority %q", in.Priority))
	}

	now := s.now().UTC()
	task := models.Task{
		ID:            ids.New(),
		TaskID:        fmt.Sprintf("TSK-%05d", s.tasks.NextSequence()),
		Type:          in.Type,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		ElevatorID:    in.ElevatorID,
		Status:        models.TaskStatusPending,
		Priority:      in.Priority,
		ScheduledDate: in.ScheduledDate,
		Attachments:   in.Attachments,
		Updates: []models.TaskUpdate{{
			Message:   "Request submitted",
			Status:    string(models.TaskStatusPending),
			CreatedAt: now,
		}},
		CreatedBy: person(u),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return models.Task{}, err
	}
	s.log.Info().Str("task_id", task.TaskID).Str("type", string(task.Type)).Str("user_id", u.ID).Msg("task created")
	return task, nil
}

// Update applies a patch. Status changes are reserved for technicians and
// admins; a technician moving an unassigned task takes it.
func (s *TaskService) Update(ctx context.Context, u models.User, id string, patch TaskPatch) (models.Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Task{}, invalid(fmt.Sprintf("Unknown status %q", *patch.Status))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return models.Task{}, invalid(fmt.Sprintf("Unknown priority %q", *patch.Priority))
	}

	visible := visibleTo(u)
	return s.tasks.Update(ctx, id, func(t *models.Task) error {
		if !visible(*t) {
			return repository.ErrTaskNotFound
		}
		now := s.now().UTC()

		if patch.Status != nil {
			if u.Role != models.UserRoleTechnician && u.Role != models.UserRoleAdmin {
				return ErrForbidden
			}
			if t.AssignedTo == nil && u.Role == models.UserRoleTechnician {
				t.AssignedTo = person(u)
			}
			t.Status = *patch.Status
			switch t.Status {
			case models.TaskStatusCompleted, models.TaskStatusResolved:
				t.CompletedAt = &now
			default:
				t.CompletedAt = nil
			}
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}

		msg := strings.TrimSpace(patch.UpdateMessage)
		if msg == "" && patch.Status != nil {
			msg = "Status changed to " + string(*patch.Status)
		}
		if msg != "" {
			t.Updates = append(t.Updates, models.TaskUpdate{
				Message:   msg,
				Status:    string(t.Status),
				CreatedAt: now,
			})
		}
		t.UpdatedAt = now
		return nil
	})
}

// Delete removes a task. Creators may withdraw their own pending requests;
// admins may delete anything.
func (s *TaskService) Delete(ctx context.Context, u models.User, id string) error {
	task, err := s.Get(ctx, u, id)
	if err != nil {
		return err
	}
	own := task.CreatedBy != nil && task.CreatedBy.ID == u.ID && task.Status == models.TaskStatusPending
	if u.Role != models.UserRoleAdmin && !own {
		return ErrForbidden
	}
	return s.tasks.Delete(ctx, id)
}
