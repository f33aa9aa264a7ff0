package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/luxury-rentals/internal/models"
)

const testUnit = 20 * time.Millisecond

type mutableSettings struct {
	mu  sync.Mutex
	ts  models.TimeoutSettings
	err error
}

func (s *mutableSettings) get(context.Context) (models.TimeoutSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ts, s.err
}

func (s *mutableSettings) set(ts models.TimeoutSettings, err error) {
	s.mu.Lock()
	s.ts, s.err = ts, err
	s.mu.Unlock()
}

func newTestMonitor(s *mutableSettings, fired *atomic.Int32) *IdleMonitor {
	return NewIdleMonitor(IdleConfig{
		Unit:     testUnit,
		Settings: s.get,
		OnIdle:   func() { fired.Add(1) },
	})
}

func TestIdleMonitor_FiresAfterThreshold(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: true, Minutes: 2}}
	m := newTestMonitor(s, &fired)
	defer m.Stop()

	m.Start()
	assert.True(t, m.Armed())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, m.Armed())

	time.Sleep(5 * testUnit)
	assert.Equal(t, int32(1), fired.Load())
}

func TestIdleMonitor_ActivityPostponesSignOut(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: true, Minutes: 5}}
	m := newTestMonitor(s, &fired)
	defer m.Stop()

	m.Start()
	for i := 0; i < 15; i++ {
		time.Sleep(testUnit)
		m.Activity()
	}
	assert.Equal(t, int32(0), fired.Load())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestIdleMonitor_DebouncedActivity(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: true, Minutes: 5}}
	m := NewIdleMonitor(IdleConfig{
		Unit:     testUnit,
		Debounce: 2 * testUnit,
		Settings: s.get,
		OnIdle:   func() { fired.Add(1) },
	})
	defer m.Stop()

	m.Start()
	for i := 0; i < 15; i++ {
		time.Sleep(testUnit)
		m.Activity()
	}
	assert.Equal(t, int32(0), fired.Load())
}

func TestIdleMonitor_Disabled(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: false, Minutes: 1}}
	m := newTestMonitor(s, &fired)
	defer m.Stop()

	m.Start()
	assert.False(t, m.Armed())
	time.Sleep(5 * testUnit)
	assert.Equal(t, int32(0), fired.Load())
}

func TestIdleMonitor_SettingsChangeOnReschedule(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: true, Minutes: 100}}
	m := newTestMonitor(s, &fired)
	defer m.Stop()

	m.Start()
	assert.True(t, m.Armed())

	s.set(models.TimeoutSettings{Enabled: false, Minutes: 100}, nil)
	m.Reschedule()
	assert.False(t, m.Armed())

	s.set(models.TimeoutSettings{Enabled: true, Minutes: 1}, nil)
	m.Reschedule()
	assert.True(t, m.Armed())
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestIdleMonitor_SettingsErrorKeepsThreshold(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: true, Minutes: 2}}
	m := newTestMonitor(s, &fired)
	defer m.Stop()

	m.Start()
	s.set(models.TimeoutSettings{}, errors.New("store down"))
	m.Activity()
	assert.True(t, m.Armed())
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestIdleMonitor_Stop(t *testing.T) {
	var fired atomic.Int32
	s := &mutableSettings{ts: models.TimeoutSettings{Enabled: true, Minutes: 1}}
	m := newTestMonitor(s, &fired)

	m.Start()
	m.Stop()
	m.Activity()
	m.Reschedule()
	assert.False(t, m.Armed())
	time.Sleep(4 * testUnit)
	assert.Equal(t, int32(0), fired.Load())
}
