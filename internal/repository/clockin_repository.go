package repository

import (
	"context"
	"errors"
	"slices"
	"sync"

	"stratolift/internal/models"
)

var ErrClockInNotFound = errors.New("clock-in not found")

type ClockInRepository struct {
	mu      sync.RWMutex
	entries map[string]models.ClockIn
}

func NewClockInRepository() *ClockInRepository {
	return &ClockInRepository{entries: make(map[string]models.ClockIn)}
}

func (r *ClockInRepository) Create(ctx context.Context, entry models.ClockIn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

// ListByTechnician returns the technician's shifts, newest first, optionally
// narrowed to one status and capped at limit when limit > 0.
func (r *ClockInRepository) ListByTechnician(ctx context.Context, technicianID string, status models.ClockInStatus, limit int) ([]models.ClockIn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]models.ClockIn, 0)
	for _, e := range r.entries {
		if e.Technician != technicianID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.ClockIn) int {
		return b.ClockInTime.Compare(a.ClockInTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ClockInRepository) Update(ctx context.Context, id string, fn func(*models.ClockIn) error) (models.ClockIn, error) {
	if err := ctx.Err(); err != nil {
		return models.ClockIn{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return models.ClockIn{}, ErrClockInNotFound
	}
	if err := fn(&entry); err != nil {
		return models.ClockIn{}, err
	}
	r.entries[id] = entry
	return entry, nil
}
