package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stratolift/internal/config"
	"stratolift/internal/ids"
	"stratolift/internal/models"
	"stratolift/internal/repository"
	"stratolift/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user not active")
)

type AuthService struct {
	users *repository.UserRepository
	cfg   config.MockConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewAuthService(users *repository.UserRepository, cfg config.MockConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Address   string
	Phone     string
	Email     string
	Password  string
}

type AuthResult struct {
	Token string
	User  models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return models.User{}, invalid("First name, last name, email and password are required")
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:        ids.New(),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     input.Email,
		Address:   strings.TrimSpace(input.Address),
		Phone:     strings.TrimSpace(input.Phone),
		Role:      models.UserRoleUser,
		Status:    models.UserStatusActive,
	}

	if err := s.users.Create(ctx, repository.UserRecord{User: user, PasswordHash: passwordHash}); err != nil {
		return models.User{}, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	record, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(password, record.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if record.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	token, err := security.GenerateAccessToken(
		s.cfg.JWTSecret,
		record.ID,
		record.Email,
		string(record.Role),
		s.cfg.JWTTTL,
		s.now(),
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, User: record.User}, nil
}

// Seed creates the configured accounts. Accounts that already exist are
// skipped.
func (s *AuthService) Seed(ctx context.Context, users []config.MockUser) error {
	for _, u := range users {
		role := models.UserRole(u.Role)
		if role == "" {
			role = models.UserRoleUser
		}
		id := u.ID
		if id == "" {
			id = ids.New()
		}

		hash, err := security.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}

		err = s.users.Create(ctx, repository.UserRecord{
			User: models.User{
				ID:        id,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Email:     u.Email,
				Address:   u.Address,
				Phone:     u.Phone,
				Role:      role,
				Status:    models.UserStatusActive,
			},
			PasswordHash: hash,
		})
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			s.log.Debug().Str("email", u.Email).Msg("seed user exists")
		case err != nil:
			return fmt.Errorf("seed %s: %w", u.Email, err)
		default:
			s.log.Info().Str("email", u.Email).Str("role", string(role)).Msg("seeded user")
		}
	}
	return nil
}
