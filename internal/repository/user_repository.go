package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"stratolift/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRecord is a user with its credential hash.
type UserRecord struct {
	models.User
	PasswordHash string
}

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]UserRecord
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) Create(ctx context.Context, user UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := normalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return ErrEmailTaken
	}
	user.Email = email
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return UserRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return UserRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Status = status
	r.byID[id] = user
	return nil
}
