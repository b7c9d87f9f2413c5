// Package session owns the signed-in state of the app: who the user is and
// which bearer token goes on outgoing requests.
//
// A Manager is created once per process and handed to every consumer. The
// user and token live both in memory and in a store.Store under the keys
// auth_user and auth_token. The two keys are always written together and
// deleted together, and the store is updated before memory so that what a
// restart recovers never lags what the process has already shown.
//
// Initialize, Login, Logout and ExpireIfNeeded run one at a time; a second
// call waits for the first to finish. Reads (State, Token, IsTokenExpired)
// never block on I/O.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stratolift/internal/api"
	"stratolift/internal/models"
	"stratolift/internal/security"
	"stratolift/internal/store"
)

const (
	UserKey  = "auth_user"
	TokenKey = "auth_token"
)

var (
	// ErrNoToken is returned by SetUser when no token is held. SetUser only
	// refreshes profile data; it never signs anyone in.
	ErrNoToken = errors.New("session: set user without a token")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("session: already initialized")
)

// Authenticator exchanges credentials for a token. *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
}

type Manager struct {
	store store.Store
	auth  Authenticator
	log   zerolog.Logger
	now   func() time.Time

	// ops admits one mutating operation at a time. A channel rather than a
	// mutex so waiters can give up when their context ends.
	ops chan struct{}

	mu          sync.RWMutex
	initialized bool
	user        *models.User
	token       string

	loading atomic.Int32
}

type Option func(*Manager)

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func New(st store.Store, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		auth:  auth,
		log:   zerolog.Nop(),
		now:   time.Now,
		ops:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.ops <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	<-m.ops
}

func (m *Manager) startLoading() func() {
	m.loading.Add(1)
	return func() { m.loading.Add(-1) }
}

// Initialize restores the persisted session. Storage failures are logged
// and leave the manager signed out; they are never returned. The only
// errors are ErrAlreadyInitialized and the context's own error. After a
// context error the manager stays uninitialized and Initialize may be
// called again.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	defer m.startLoading()()

	m.mu.RLock()
	done := m.initialized
	m.mu.RUnlock()
	if done {
		return ErrAlreadyInitialized
	}

	user, token, err := m.load(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		m.log.Warn().Err(err).Msg("session restore abandoned")
		return ctx.Err()
	case err != nil:
		m.log.Error().Err(err).Msg("load persisted session failed")
		m.clear(ctx, "load failed")
	case user == nil && token == "":
		m.set(nil, "")
	case user == nil || token == "":
		m.log.Warn().Bool("has_user", user != nil).Bool("has_token", token != "").Msg("discarding partial persisted session")
		m.clear(ctx, "partial")
	default:
		status := security.ValidateToken(token, m.now())
		if status != security.TokenValid {
			m.log.Info().Stringer("token", status).Msg("persisted token unusable, signing out")
			m.clear(ctx, status.String())
			break
		}
		m.set(user, token)
		m.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("session restored")
	}
	return nil
}

// load reads both keys concurrently.
func (m *Manager) load(ctx context.Context) (*models.User, string, error) {
	var userJSON, token string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := optional(m.store.Get(gctx, UserKey))
		userJSON = v
		return err
	})
	g.Go(func() error {
		v, err := optional(m.store.Get(gctx, TokenKey))
		token = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	if userJSON == "" {
		return nil, token, nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, "", fmt.Errorf("%w: decode %s: %w", store.ErrStorage, UserKey, err)
	}
	return &user, token, nil
}

func optional(v string, err error) (string, error) {
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Login authenticates against the API and, on success, persists and adopts
// the returned user and token. It returns the user's role. On any failure
// the session is left exactly as it was.
func (m *Manager) Login(ctx context.Context, email, password string) (models.UserRole, error) {
	if err := m.acquire(ctx); err != nil {
		return "", err
	}
	defer m.release()
	defer m.startLoading()()

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.log.Warn().Err(err).Msg("login failed")
		return "", err
	}
	if resp.Token == "" || resp.User == nil {
		return "", &api.Error{Kind: api.ErrProtocol, Status: http.StatusOK, Message: "Invalid response from server"}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}

	err = m.store.SetMany(ctx, map[string]string{
		UserKey:  string(userJSON),
		TokenKey: resp.Token,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		m.log.Error().Err(err).Msg("persist session failed, session will not survive restart")
	}

	m.set(cloneUser(resp.User), resp.Token)
	m.log.Info().Str("user_id", resp.User.ID).Str("role", string(resp.User.Role)).Msg("signed in")
	return resp.User.Role, nil
}

// Logout always ends signed out. The persisted copy is removed even if ctx
// is cancelled; removal failures are logged.
func (m *Manager) Logout(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	_ = m.acquire(ctx)
	defer m.release()
	defer m.startLoading()()

	m.clear(ctx, "logout")
}

// ExpireIfNeeded signs out when the held token has expired and reports
// whether it did. Reads already treat an expired token as signed out; this
// brings the store and memory in line with that.
func (m *Manager) ExpireIfNeeded(ctx context.Context) bool {
	if err := m.acquire(ctx); err != nil {
		return false
	}
	defer m.release()

	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()
	if token == "" || security.IsTokenValid(token, m.now()) {
		return false
	}

	m.clear(ctx, "expired")
	return true
}

// SetUser replaces the profile without touching the token or the store.
// A nil user clears the profile. A non-nil user while no token is held is
// rejected with ErrNoToken.
func (m *Manager) SetUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user != nil && m.token == "" {
		m.log.Error().Str("user_id", user.ID).Msg("SetUser called without a token")
		return ErrNoToken
	}
	m.user = cloneUser(user)
	return nil
}

// clear removes the persisted pair, then the in-memory one.
func (m *Manager) clear(ctx context.Context, reason string) {
	if err := m.store.Delete(ctx, UserKey, TokenKey); err != nil {
		m.log.Error().Err(err).Str("reason", reason).Msg("clear persisted session failed")
	}
	m.set(nil, "")
	m.log.Debug().Str("reason", reason).Msg("session cleared")
}

func (m *Manager) set(user *models.User, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	m.user = user
	m.token = token
}

// State returns the current session. IsAuthenticated is evaluated against
// the clock at the time of the call.
func (m *Manager) State() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		User:      cloneUser(m.user),
		Token:     m.token,
		IsLoading: !m.initialized || m.loading.Load() > 0,
	}
	snap.IsAuthenticated = m.user != nil && m.token != "" && security.IsTokenValid(m.token, m.now())

	switch {
	case !m.initialized:
		snap.Phase = PhaseUninitialized
	case snap.IsAuthenticated:
		snap.Phase = PhaseAuthenticated
	default:
		snap.Phase = PhaseUnauthenticated
	}
	return snap
}

func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated
}

func (m *Manager) IsLoading() bool {
	return m.State().IsLoading
}

func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.user)
}

// Token returns the held bearer token, "" when signed out. It makes the
// manager an api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// IsTokenExpired reports true when no token is held or the held token is
// not valid now.
func (m *Manager) IsTokenExpired() bool {
	return !security.IsTokenValid(m.Token(), m.now())
}
