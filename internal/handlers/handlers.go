package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"stratolift/internal/config"
	"stratolift/internal/middleware"
	"stratolift/internal/models"
	"stratolift/internal/repository"
	"stratolift/internal/service"
	"stratolift/internal/storage"
)

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	authService   *service.AuthService
	taskService   *service.TaskService
	clockService  *service.ClockInService
	uploadService *service.UploadService
	blobs         storage.BlobStore
	users         *repository.UserRepository
	elevators     *repository.ElevatorRepository
}

func NewHandlerSet(log zerolog.Logger, blobs storage.BlobStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository()
	taskRepo := repository.NewTaskRepository()
	clockRepo := repository.NewClockInRepository()
	elevatorRepo := repository.NewElevatorRepository()

	return HandlerSet{
		log:           log,
		cfg:           cfg,
		authService:   service.NewAuthService(userRepo, cfg.Mock, log),
		taskService:   service.NewTaskService(taskRepo, log),
		clockService:  service.NewClockInService(clockRepo, log),
		uploadService: service.NewUploadService(blobs, log),
		blobs:         blobs,
		users:         userRepo,
		elevators:     elevatorRepo,
	}
}

// Seed loads the configured accounts and the demo elevators.
func (h HandlerSet) Seed(ctx context.Context) error {
	if err := h.authService.Seed(ctx, h.cfg.Mock.Users); err != nil {
		return err
	}
	for _, e := range demoElevators {
		if err := h.elevators.Put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
	}

	// the app uploads attachments before the task exists
	router.POST("/upload", middleware.OptionalAuth(h.cfg.Mock.JWTSecret, h.users), h.Upload)
	if mem, ok := h.blobs.(*storage.MemoryStore); ok {
		router.GET("/files/*key", h.ServeFile(mem))
	}

	protected := router.Group("")
	protected.Use(middleware.Auth(h.cfg.Mock.JWTSecret, h.users))
	{
		protected.GET("/auth/me", h.Me)

		protected.GET("/tasks", h.ListTasks)
		protected.POST("/tasks", h.CreateTask)
		protected.GET("/tasks/:id", h.GetTask)
		protected.PATCH("/tasks/:id", h.UpdateTask)
		protected.DELETE("/tasks/:id", h.DeleteTask)

		protected.GET("/elevators/:id", h.GetElevator)
	}

	clock := router.Group("/clock-in")
	clock.Use(
		middleware.Auth(h.cfg.Mock.JWTSecret, h.users),
		middleware.RequireRoles(models.UserRoleTechnician),
	)
	{
		clock.GET("", h.ListClockIns)
		clock.POST("", h.ClockIn)
		clock.PUT("", h.ClockOut)
	}
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondError maps service errors to the status codes and messages the
// app understands. Anything unrecognised is a 500 with fallback.
func (h HandlerSet) respondError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrUserSuspended):
		fail(c, http.StatusForbidden, "Account is not active")
	case errors.Is(err, repository.ErrEmailTaken):
		fail(c, http.StatusConflict, "An account with this email already exists")
	case errors.Is(err, repository.ErrTaskNotFound):
		fail(c, http.StatusNotFound, "Task not found")
	case errors.Is(err, repository.ErrElevatorNotFound):
		fail(c, http.StatusNotFound, "Elevator not found")
	case errors.Is(err, service.ErrForbidden):
		fail(c, http.StatusForbidden, "You are not allowed to do that")
	case errors.Is(err, service.ErrAlreadyClockedIn):
		fail(c, http.StatusBadRequest, "You are already clocked in")
	case errors.Is(err, service.ErrNoActiveClockIn):
		fail(c, http.StatusNotFound, "No active clock-in found.")
	case errors.Is(err, service.ErrUnsupportedMedia):
		fail(c, http.StatusUnsupportedMediaType, "Only photos and videos can be uploaded")
	default:
		h.log.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Msg(fallback)
		fail(c, http.StatusInternalServerError, fallback)
	}
}

func currentUser(c *gin.Context) (models.User, bool) {
	user, exists := middleware.CurrentUser(c)
	if !exists {
		fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return user, exists
}
