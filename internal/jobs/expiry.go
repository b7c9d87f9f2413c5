package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Expirer is satisfied by *session.Manager.
type Expirer interface {
	ExpireIfNeeded(ctx context.Context) bool
}

// ExpiryWatcher signs the session out shortly after its token expires, so
// the persisted credentials do not outlive the token.
type ExpiryWatcher struct {
	cron     *cron.Cron
	schedule string
	target   Expirer
	timeout  time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	onExpire func()
	started  bool
}

func NewExpiryWatcher(schedule string, target Expirer, log zerolog.Logger) *ExpiryWatcher {
	return &ExpiryWatcher{
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		target:   target,
		timeout:  10 * time.Second,
		log:      log,
	}
}

// OnExpire registers fn to run after each check that ended the session.
func (w *ExpiryWatcher) OnExpire(fn func()) {
	w.mu.Lock()
	w.onExpire = fn
	w.mu.Unlock()
}

func (w *ExpiryWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	if _, err := w.cron.AddFunc(w.schedule, w.check); err != nil {
		return fmt.Errorf("schedule expiry check %q: %w", w.schedule, err)
	}

	w.cron.Start()
	w.started = true
	w.log.Debug().Str("schedule", w.schedule).Msg("expiry watcher started")
	return nil
}

// Stop halts scheduling and returns a context that is done once any
// running check has finished.
func (w *ExpiryWatcher) Stop() context.Context {
	return w.cron.Stop()
}

// Check runs one expiry check now and reports whether it signed out.
func (w *ExpiryWatcher) Check(ctx context.Context) bool {
	if !w.target.ExpireIfNeeded(ctx) {
		return false
	}
	w.log.Info().Msg("session token expired, signed out")

	w.mu.Lock()
	fn := w.onExpire
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

func (w *ExpiryWatcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	w.Check(ctx)
}
