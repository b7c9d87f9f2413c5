package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratolift/internal/api"
	"stratolift/internal/models"
	"stratolift/internal/security"
	"stratolift/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// faultyStore wraps a store and fails the configured operations.
type faultyStore struct {
	store.Store
	getErr error
	setErr error
	delErr error
}

func (f *faultyStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) SetMany(ctx context.Context, entries map[string]string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.SetMany(ctx, entries)
}

func (f *faultyStore) Delete(ctx context.Context, keys ...string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Store.Delete(ctx, keys...)
}

type fakeAuth struct {
	resp    api.LoginResponse
	err     error
	hook    func(ctx context.Context)
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (api.LoginResponse, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.hook != nil {
		f.hook(ctx)
	}
	return f.resp, f.err
}

func testUser(role models.UserRole) *models.User {
	return &models.User{
		ID:        "u-42",
		FirstName: "Ada",
		LastName:  "Lift",
		Email:     "ada@example.com",
		Address:   "1 Shaft Rd",
		Role:      role,
		Status:    models.UserStatusActive,
	}
}

func mintToken(t *testing.T, now time.Time, ttl time.Duration) string {
	t.Helper()
	tok, err := security.GenerateAccessToken("test-secret", "u-42", "ada@example.com", "technician", ttl, now)
	require.NoError(t, err)
	return tok
}

func seed(t *testing.T, st store.Store, user *models.User, token string) {
	t.Helper()
	entries := map[string]string{}
	if user != nil {
		raw, err := json.Marshal(user)
		require.NoError(t, err)
		entries[UserKey] = string(raw)
	}
	if token != "" {
		entries[TokenKey] = token
	}
	require.NoError(t, st.SetMany(context.Background(), entries))
}

func assertCleared(t *testing.T, st store.Store) {
	t.Helper()
	_, err := st.Get(context.Background(), UserKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(context.Background(), TokenKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func newManager(st store.Store, auth Authenticator, c *clock) *Manager {
	return New(st, auth, WithClock(c.Now))
}

func TestInitializeEmptyStore(t *testing.T) {
	c := &clock{now: t0}
	m := newManager(store.NewMemoryStore(), &fakeAuth{}, c)

	before := m.State()
	assert.Equal(t, PhaseUninitialized, before.Phase)
	assert.True(t, before.IsLoading)
	assert.False(t, before.IsAuthenticated)

	require.NoError(t, m.Initialize(context.Background()))

	s := m.State()
	assert.Equal(t, PhaseUnauthenticated, s.Phase)
	assert.False(t, s.IsLoading)
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
	assert.Empty(t, s.Token)
	assert.True(t, m.IsTokenExpired())
}

func TestInitializeRestoresValidSession(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	tok := mintToken(t, t0, time.Hour)
	seed(t, st, testUser(models.UserRoleTechnician), tok)

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	s := m.State()
	assert.Equal(t, PhaseAuthenticated, s.Phase)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, tok, s.Token)
	assert.Equal(t, testUser(models.UserRoleTechnician), s.User)
	assert.Equal(t, models.UserRoleTechnician, s.Role())
	assert.False(t, m.IsTokenExpired())
}

func TestInitializeDiscardsUnusableSessions(t *testing.T) {
	tests := []struct {
		name  string
		user  *models.User
		token func(t *testing.T) string
	}{
		{"expired token", testUser(models.UserRoleUser), func(t *testing.T) string { return mintToken(t, t0.Add(-2*time.Hour), time.Hour) }},
		{"malformed token", testUser(models.UserRoleUser), func(*testing.T) string { return "not-a-jwt" }},
		{"token without user", nil, func(t *testing.T) string { return mintToken(t, t0, time.Hour) }},
		{"user without token", testUser(models.UserRoleUser), func(*testing.T) string { return "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &clock{now: t0}
			st := store.NewMemoryStore()
			seed(t, st, tt.user, tt.token(t))

			m := newManager(st, &fakeAuth{}, c)
			require.NoError(t, m.Initialize(context.Background()))

			s := m.State()
			assert.Equal(t, PhaseUnauthenticated, s.Phase)
			assert.False(t, s.IsAuthenticated)
			assert.Nil(t, s.User)
			assert.Empty(t, s.Token)
			assertCleared(t, st)
		})
	}
}

func TestInitializeCorruptUserRecord(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	require.NoError(t, st.SetMany(context.Background(), map[string]string{
		UserKey:  "{not json",
		TokenKey: mintToken(t, t0, time.Hour),
	}))

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	assert.Equal(t, PhaseUnauthenticated, m.State().Phase)
	assertCleared(t, st)
}

func TestInitializeStorageFailureFailsOpen(t *testing.T) {
	c := &clock{now: t0}
	st := &faultyStore{Store: store.NewMemoryStore(), getErr: store.ErrStorage}

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	s := m.State()
	assert.Equal(t, PhaseUnauthenticated, s.Phase)
	assert.False(t, s.IsLoading)
}

func TestInitializeTwice(t *testing.T) {
	m := newManager(store.NewMemoryStore(), &fakeAuth{}, &clock{now: t0})
	require.NoError(t, m.Initialize(context.Background()))
	assert.ErrorIs(t, m.Initialize(context.Background()), ErrAlreadyInitialized)
}

func TestInitializeRetriesAfterCancellation(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	user := testUser(models.UserRoleTechnician)
	token := mintToken(t, t0, time.Hour)
	seed(t, st, user, token)

	m := newManager(st, &fakeAuth{}, c)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Initialize(ctx), context.Canceled)
	s := m.State()
	assert.Equal(t, PhaseUninitialized, s.Phase)
	assert.True(t, s.IsLoading)
	assert.Equal(t, 2, st.Len(), "abandoned restore keeps persisted session")

	require.NoError(t, m.Initialize(context.Background()))
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, token, m.Token())
	assert.Equal(t, user.ID, m.User().ID)
}

func TestLoginPersistsAndAuthenticates(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	tok := mintToken(t, t0, 24*time.Hour)
	auth := &fakeAuth{resp: api.LoginResponse{Token: tok, User: testUser(models.UserRoleTechnician)}}

	m := newManager(st, auth, c)
	require.NoError(t, m.Initialize(context.Background()))

	role, err := m.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleTechnician, role)

	s := m.State()
	assert.Equal(t, PhaseAuthenticated, s.Phase)
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	assert.Equal(t, tok, m.Token())

	stored, err := st.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, tok, stored)

	// a fresh process over the same store sees the same session
	restarted := newManager(st, &fakeAuth{}, c)
	require.NoError(t, restarted.Initialize(context.Background()))
	assert.True(t, restarted.IsAuthenticated())
	assert.Equal(t, m.User(), restarted.User())
	assert.Equal(t, tok, restarted.Token())
}

func TestLoginFailureLeavesStateUnchanged(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	tok := mintToken(t, t0, time.Hour)
	seed(t, st, testUser(models.UserRoleUser), tok)

	authErr := &api.Error{Kind: api.ErrAuthentication, Status: 401, Message: "Invalid credentials"}
	m := newManager(st, &fakeAuth{err: authErr}, c)
	require.NoError(t, m.Initialize(context.Background()))

	_, err := m.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrAuthentication)
	assert.Equal(t, "Invalid credentials", err.Error())

	s := m.State()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, tok, s.Token)
	stored, err := st.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, tok, stored)
}

func TestLoginIncompleteResponse(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	m := newManager(st, &fakeAuth{resp: api.LoginResponse{Token: mintToken(t, t0, time.Hour)}}, c)
	require.NoError(t, m.Initialize(context.Background()))

	_, err := m.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, api.ErrProtocol)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 0, st.Len())
}

func TestLoginPersistFailureStillSignsIn(t *testing.T) {
	c := &clock{now: t0}
	st := &faultyStore{Store: store.NewMemoryStore(), setErr: store.ErrStorage}
	auth := &fakeAuth{resp: api.LoginResponse{Token: mintToken(t, t0, time.Hour), User: testUser(models.UserRoleUser)}}

	m := newManager(st, auth, c)
	require.NoError(t, m.Initialize(context.Background()))

	role, err := m.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleUser, role)
	assert.True(t, m.IsAuthenticated())
}

func TestLoginCancelledAfterResponse(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	auth := &fakeAuth{
		resp: api.LoginResponse{Token: mintToken(t, t0, time.Hour), User: testUser(models.UserRoleUser)},
		hook: func(context.Context) { cancel() },
	}

	m := newManager(st, auth, c)
	require.NoError(t, m.Initialize(context.Background()))

	_, err := m.Login(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 0, st.Len())
}

func TestLoginsAreSerialized(t *testing.T) {
	c := &clock{now: t0}
	auth := &fakeAuth{
		resp: api.LoginResponse{Token: mintToken(t, t0, time.Hour), User: testUser(models.UserRoleUser)},
		hook: func(context.Context) { time.Sleep(5 * time.Millisecond) },
	}
	m := newManager(store.NewMemoryStore(), auth, c)
	require.NoError(t, m.Initialize(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Login(context.Background(), "ada@example.com", "secret1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), auth.calls.Load())
	assert.Equal(t, int32(1), auth.maxSeen.Load())
	assert.True(t, m.IsAuthenticated())
}

func TestQueuedLoginGivesUpWithContext(t *testing.T) {
	c := &clock{now: t0}
	release := make(chan struct{})
	entered := make(chan struct{})
	auth := &fakeAuth{
		resp: api.LoginResponse{Token: mintToken(t, t0, time.Hour), User: testUser(models.UserRoleUser)},
		hook: func(context.Context) {
			close(entered)
			<-release
		},
	}
	m := newManager(store.NewMemoryStore(), auth, c)
	require.NoError(t, m.Initialize(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "ada@example.com", "secret1")
		done <- err
	}()
	<-entered
	assert.True(t, m.IsLoading())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Login(ctx, "ada@example.com", "secret1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, m.IsLoading())
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestLogout(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	seed(t, st, testUser(models.UserRoleUser), mintToken(t, t0, time.Hour))

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))
	require.True(t, m.IsAuthenticated())

	m.Logout(context.Background())

	s := m.State()
	assert.Equal(t, PhaseUnauthenticated, s.Phase)
	assert.Nil(t, s.User)
	assert.Empty(t, s.Token)
	assertCleared(t, st)

	// idempotent
	m.Logout(context.Background())
	assert.False(t, m.IsAuthenticated())
}

func TestLogoutSurvivesStorageFailure(t *testing.T) {
	c := &clock{now: t0}
	mem := store.NewMemoryStore()
	seed(t, mem, testUser(models.UserRoleUser), mintToken(t, t0, time.Hour))
	st := &faultyStore{Store: mem}

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	st.delErr = errors.Join(store.ErrStorage, errors.New("disk full"))
	m.Logout(context.Background())

	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.Token())
}

func TestLogoutIgnoresCancellation(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	seed(t, st, testUser(models.UserRoleUser), mintToken(t, t0, time.Hour))

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Logout(ctx)

	assert.False(t, m.IsAuthenticated())
	assertCleared(t, st)
}

func TestExpiryIsObservedWithoutMutation(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	tok := mintToken(t, t0, time.Minute)
	seed(t, st, testUser(models.UserRoleTechnician), tok)

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))
	require.True(t, m.IsAuthenticated())

	c.Advance(time.Minute)

	s := m.State()
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, PhaseUnauthenticated, s.Phase)
	assert.True(t, m.IsTokenExpired())
	// held until someone acts on it
	assert.Equal(t, tok, s.Token)

	assert.True(t, m.ExpireIfNeeded(context.Background()))
	assert.Empty(t, m.Token())
	assert.Nil(t, m.User())
	assertCleared(t, st)

	assert.False(t, m.ExpireIfNeeded(context.Background()))
}

func TestExpireIfNeededKeepsValidSession(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	seed(t, st, testUser(models.UserRoleUser), mintToken(t, t0, time.Hour))

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	assert.False(t, m.ExpireIfNeeded(context.Background()))
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, 2, st.Len())
}

func TestSetUser(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	assert.ErrorIs(t, m.SetUser(testUser(models.UserRoleUser)), ErrNoToken)
	assert.Nil(t, m.User())
	assert.False(t, m.IsAuthenticated())

	seed(t, st, testUser(models.UserRoleUser), mintToken(t, t0, time.Hour))
	m2 := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m2.Initialize(context.Background()))

	updated := testUser(models.UserRoleUser)
	updated.Phone = "555-0100"
	require.NoError(t, m2.SetUser(updated))
	assert.Equal(t, "555-0100", m2.User().Phone)
	assert.True(t, m2.IsAuthenticated())

	// in memory only
	raw, err := st.Get(context.Background(), UserKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, "555-0100")

	require.NoError(t, m2.SetUser(nil))
	assert.False(t, m2.IsAuthenticated())
	assert.NotEmpty(t, m2.Token())
}

func TestSnapshotIsACopy(t *testing.T) {
	c := &clock{now: t0}
	st := store.NewMemoryStore()
	seed(t, st, testUser(models.UserRoleUser), mintToken(t, t0, time.Hour))

	m := newManager(st, &fakeAuth{}, c)
	require.NoError(t, m.Initialize(context.Background()))

	s := m.State()
	s.User.FirstName = "Mallory"
	u := m.User()
	u.Email = "mallory@example.com"

	assert.Equal(t, "Ada", m.User().FirstName)
	assert.Equal(t, "ada@example.com", m.State().User.Email)
}

func TestManagerIsTokenSource(t *testing.T) {
	var _ api.TokenSource = (*Manager)(nil)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "uninitialized", PhaseUninitialized.String())
	assert.Equal(t, "unauthenticated", PhaseUnauthenticated.String())
	assert.Equal(t, "authenticated", PhaseAuthenticated.String())
}
