package session

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/models"
)

// SettingsFunc returns the current inactivity settings.
type SettingsFunc func(ctx context.Context) (models.TimeoutSettings, error)

// IdleConfig configures an IdleMonitor.
type IdleConfig struct {
	// Unit is the length of one configured "minute". Tests shrink it.
	Unit time.Duration
	// Debounce delays rescheduling after activity so bursts of events
	// reschedule once.
	Debounce time.Duration
	Settings SettingsFunc
	OnIdle   func()
	Now      func() time.Time
}

// IdleMonitor calls OnIdle once no activity has been recorded for the
// configured threshold. It is armed while the settings enable it and
// disarmed otherwise. Settings are re-read on every reschedule.
type IdleMonitor struct {
	cfg IdleConfig

	mu        sync.Mutex
	last      time.Time
	threshold time.Duration // zero while disarmed
	timer     *time.Timer
	pending   *time.Timer
	gen       uint64
	stopped   bool
}

// NewIdleMonitor creates a stopped-until-Start monitor.
func NewIdleMonitor(cfg IdleConfig) *IdleMonitor {
	if cfg.Unit <= 0 {
		cfg.Unit = time.Minute
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Settings == nil {
		cfg.Settings = func(context.Context) (models.TimeoutSettings, error) {
			return models.TimeoutSettings{}, nil
		}
	}
	return &IdleMonitor{cfg: cfg}
}

// Start records activity now and arms the monitor if enabled.
func (m *IdleMonitor) Start() {
	m.mu.Lock()
	m.last = m.cfg.Now()
	m.mu.Unlock()
	m.Reschedule()
}

// Activity records user activity. The timer is rescheduled after the
// debounce interval; the idle check itself always uses the latest activity.
func (m *IdleMonitor) Activity() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.last = m.cfg.Now()
	if m.pending != nil {
		m.mu.Unlock()
		return
	}
	if m.cfg.Debounce == 0 {
		m.mu.Unlock()
		m.Reschedule()
		return
	}
	m.pending = time.AfterFunc(m.cfg.Debounce, func() {
		m.mu.Lock()
		m.pending = nil
		m.mu.Unlock()
		m.Reschedule()
	})
	m.mu.Unlock()
}

// Reschedule re-reads the settings and arms or disarms the timer.
func (m *IdleMonitor) Reschedule() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ts, err := m.cfg.Settings(ctx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	switch {
	case err != nil:
		// Keep the previous threshold; a disarmed monitor stays disarmed.
		log.WithError(err).Warn("Failed to read session timeout settings")
		if m.threshold == 0 {
			return
		}
	case !ts.Enabled || ts.Minutes <= 0:
		m.disarmLocked()
		return
	default:
		m.threshold = time.Duration(ts.Minutes) * m.cfg.Unit
	}

	m.armLocked(m.threshold - m.cfg.Now().Sub(m.last))
}

func (m *IdleMonitor) armLocked(d time.Duration) {
	if m.timer != nil {
		m.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(d, func() { m.fire(gen) })
}

func (m *IdleMonitor) disarmLocked() {
	m.threshold = 0
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *IdleMonitor) fire(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || m.threshold == 0 {
		m.mu.Unlock()
		return
	}

	idle := m.cfg.Now().Sub(m.last)
	if idle < m.threshold {
		// Activity arrived while the timer was pending.
		m.armLocked(m.threshold - idle)
		m.mu.Unlock()
		return
	}

	m.stopLocked()
	onIdle := m.cfg.OnIdle
	m.mu.Unlock()

	if onIdle != nil {
		onIdle()
	}
}

// Armed reports whether a sign-out is currently scheduled.
func (m *IdleMonitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.stopped && m.threshold > 0 && m.timer != nil
}

// Stop disarms the monitor permanently.
func (m *IdleMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *IdleMonitor) stopLocked() {
	m.stopped = true
	m.disarmLocked()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
