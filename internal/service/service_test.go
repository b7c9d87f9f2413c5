package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratolift/internal/config"
	"stratolift/internal/models"
	"stratolift/internal/repository"
	"stratolift/internal/security"
	"stratolift/internal/storage"
)

func TestAuthSeedAndLogin(t *testing.T) {
	users := repository.NewUserRepository()
	svc := NewAuthService(users, config.MockConfig{JWTSecret: "s", JWTTTL: time.Hour}, zerolog.Nop())
	fixed := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	seed := []config.MockUser{{ID: "t1", FirstName: "T", LastName: "One", Email: "T1@Example.com", Password: "pw1234", Role: "technician"}}
	require.NoError(t, svc.Seed(context.Background(), seed))
	require.NoError(t, svc.Seed(context.Background(), seed))

	res, err := svc.Login(context.Background(), "t1@example.com", "pw1234")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleTechnician, res.User.Role)

	claims, err := security.InspectToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "t1", claims.UserID)
	assert.Equal(t, fixed.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	_, err = svc.Login(context.Background(), "t1@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "nobody@example.com", "pw1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, users.UpdateStatus(context.Background(), "t1", models.UserStatusInactive))
	_, err = svc.Login(context.Background(), "t1@example.com", "pw1234")
	assert.ErrorIs(t, err, ErrUserSuspended)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(repository.NewUserRepository(), config.MockConfig{}, zerolog.Nop())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.c"})
	require.ErrorIs(t, err, ErrInvalidInput)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	u, err := svc.Register(context.Background(), RegisterInput{FirstName: "A", LastName: "B", Email: " A@B.C ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.Email)
	assert.Equal(t, models.UserRoleUser, u.Role)

	_, err = svc.Register(context.Background(), RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.c", Password: "secret"})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestTaskPriorityDefaults(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(), zerolog.Nop())
	u := models.User{ID: "u1", Role: models.UserRoleUser}

	sos, err := svc.Create(context.Background(), u, CreateTaskInput{Type: models.TaskTypeSOS, Title: "a", Description: "b", Location: "c"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPriorityUrgent, sos.Priority)

	svcTask, err := svc.Create(context.Background(), u, CreateTaskInput{Type: models.TaskTypeService, Title: "a", Description: "b", Location: "c"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPriorityMedium, svcTask.Priority)
	assert.Equal(t, "TSK-00002", svcTask.TaskID)

	_, err = svc.Create(context.Background(), u, CreateTaskInput{Type: "repair", Title: "a", Description: "b", Location: "c"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := models.TaskStatus("lost")
	_, err = svc.Update(context.Background(), models.User{ID: "admin", Role: models.UserRoleAdmin}, sos.ID, TaskPatch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadService(t *testing.T) {
	blobs := storage.NewMemoryStore("http://files.test")
	svc := NewUploadService(blobs, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC) }

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
	res, err := svc.Upload(context.Background(), UploadInput{UserID: "u1", File: bytes.NewReader(jpeg)})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIME)
	assert.True(t, strings.HasPrefix(res.URL, "http://files.test/2026/07/04/stratolift/"), res.URL)
	assert.True(t, strings.HasSuffix(res.URL, ".jpeg"), res.URL)

	_, err = svc.Upload(context.Background(), UploadInput{File: strings.NewReader("%PDF-1.7 hello")})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = svc.Upload(context.Background(), UploadInput{File: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
