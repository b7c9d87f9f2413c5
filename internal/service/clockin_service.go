package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stratolift/internal/ids"
	"stratolift/internal/models"
	"stratolift/internal/repository"
)

var (
	ErrAlreadyClockedIn = errors.New("already clocked in")
	ErrNoActiveClockIn  = errors.New("no active clock-in")
)

type ClockInService struct {
	entries *repository.ClockInRepository
	log     zerolog.Logger
	now     func() time.Time
}

func NewClockInService(entries *repository.ClockInRepository, log zerolog.Logger) *ClockInService {
	return &ClockInService{entries: entries, log: log, now: time.Now}
}

func (s *ClockInService) List(ctx context.Context, u models.User, status models.ClockInStatus, limit int) ([]models.ClockIn, error) {
	return s.entries.ListByTechnician(ctx, u.ID, status, limit)
}

type ClockInInput struct {
	Location models.GeoLocation
	Notes    string
	Image    string
}

func (s *ClockInService) ClockIn(ctx context.Context, u models.User, in ClockInInput) (models.ClockIn, error) {
	active, err := s.entries.ListByTechnician(ctx, u.ID, models.ClockInStatusActive, 1)
	if err != nil {
		return models.ClockIn{}, err
	}
	if len(active) > 0 {
		return models.ClockIn{}, ErrAlreadyClockedIn
	}

	entry := models.ClockIn{
		ID:          ids.New(),
		Technician:  u.ID,
		Location:    in.Location,
		Notes:       strings.TrimSpace(in.Notes),
		Image:       in.Image,
		Status:      models.ClockInStatusActive,
		ClockInTime: s.now().UTC(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return models.ClockIn{}, err
	}
	s.log.Info().Str("technician", u.ID).Str("clock_in_id", entry.ID).Msg("clocked in")
	return entry, nil
}

func (s *ClockInService) ClockOut(ctx context.Context, u models.User, id, notes string) (models.ClockIn, error) {
	entry, err := s.entries.Update(ctx, id, func(e *models.ClockIn) error {
		if e.Technician != u.ID || e.Status != models.ClockInStatusActive {
			return ErrNoActiveClockIn
		}
		now := s.now().UTC()
		e.Status = models.ClockInStatusCompleted
		e.ClockOutTime = &now
		if n := strings.TrimSpace(notes); n != "" {
			e.Notes = n
		}
		return nil
	})
	if errors.Is(err, repository.ErrClockInNotFound) {
		return models.ClockIn{}, ErrNoActiveClockIn
	}
	if err != nil {
		return models.ClockIn{}, err
	}
	s.log.Info().Str("technician", u.ID).Str("clock_in_id", entry.ID).Dur("duration", entry.Duration(s.now())).Msg("clocked out")
	return entry, nil
}
