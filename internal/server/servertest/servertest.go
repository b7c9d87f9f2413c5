// Package servertest runs the mock backend on a loopback httptest server.
package servertest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"stratolift/internal/config"
	"stratolift/internal/handlers"
	"stratolift/internal/server"
	"stratolift/internal/storage"
)

const (
	Secret   = "servertest-secret"
	Password = "secret123"

	TechnicianEmail = "tech@stratolift.test"
	UserEmail       = "user@stratolift.test"
	AdminEmail      = "admin@stratolift.test"
)

// DefaultUsers are seeded when New is called without users.
var DefaultUsers = []config.MockUser{
	{ID: "tech-1", FirstName: "Tess", LastName: "Tran", Email: TechnicianEmail, Password: Password, Phone: "555-0101", Role: "technician"},
	{ID: "user-1", FirstName: "Uma", LastName: "Ueda", Email: UserEmail, Password: Password, Address: "9 Atrium Way", Role: "user"},
	{ID: "admin-1", FirstName: "Abe", LastName: "Arden", Email: AdminEmail, Password: Password, Role: "admin"},
}

type Server struct {
	*httptest.Server
	Config *config.AppConfig
	Blobs  *storage.MemoryStore
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

func New(t testing.TB, users ...config.MockUser) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if len(users) == 0 {
		users = DefaultUsers
	}
	cfg := &config.AppConfig{
		Environment: "test",
		Mock: config.MockConfig{
			JWTSecret: Secret,
			JWTTTL:    time.Hour,
			Users:     users,
		},
	}

	srv := &Server{Config: cfg}
	ts := httptest.NewUnstartedServer(nil)
	srv.Blobs = storage.NewMemoryStore("http://" + ts.Listener.Addr().String() + "/api/files")

	handlerSet := handlers.NewHandlerSet(zerolog.Nop(), srv.Blobs, cfg)
	if err := handlerSet.Seed(context.Background()); err != nil {
		t.Fatalf("seed mock backend: %v", err)
	}
	ts.Config.Handler = server.NewHTTPServer(cfg, zerolog.Nop(), handlerSet).Handler()
	ts.Start()
	t.Cleanup(ts.Close)

	srv.Server = ts
	return srv
}
