package repository

import (
	"context"
	"errors"
	"sync"

	"stratolift/internal/models"
)

var ErrElevatorNotFound = errors.New("elevator not found")

type ElevatorRepository struct {
	mu        sync.RWMutex
	elevators map[string]models.Elevator
}

func NewElevatorRepository() *ElevatorRepository {
	return &ElevatorRepository{elevators: make(map[string]models.Elevator)}
}

func (r *ElevatorRepository) Put(ctx context.Context, e models.Elevator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elevators[e.ID] = e
	return nil
}

func (r *ElevatorRepository) GetByID(ctx context.Context, id string) (models.Elevator, error) {
	if err := ctx.Err(); err != nil {
		return models.Elevator{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.elevators[id]
	if !ok {
		return models.Elevator{}, ErrElevatorNotFound
	}
	return e, nil
}
