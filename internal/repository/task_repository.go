package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"stratolift/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	seq   int
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]models.Task)}
}

// NextSequence returns the next human-facing task number, starting at 1.
func (r *TaskRepository) NextSequence() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

func (r *TaskRepository) Create(ctx context.Context, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// List returns the tasks keep accepts, newest first.
func (r *TaskRepository) List(ctx context.Context, keep func(models.Task) bool) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]models.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if keep == nil || keep(task) {
			out = append(out, cloneTask(task))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Update applies fn to the stored task under the write lock. An error from
// fn aborts the update.
func (r *TaskRepository) Update(ctx context.Context, id string, fn func(*models.Task) error) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	task = cloneTask(task)
	if err := fn(&task); err != nil {
		return models.Task{}, err
	}
	r.tasks[id] = task
	return cloneTask(task), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func cloneTask(t models.Task) models.Task {
	t.Attachments = slices.Clone(t.Attachments)
	t.Updates = slices.Clone(t.Updates)
	if t.AssignedTo != nil {
		p := *t.AssignedTo
		t.AssignedTo = &p
	}
	if t.CreatedBy != nil {
		p := *t.CreatedBy
		t.CreatedBy = &p
	}
	return t
}
