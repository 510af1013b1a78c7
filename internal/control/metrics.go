package control

import (
	"sync"
	"time"

	"github.com/tmuxwire/tmuxwire/internal/engine"
)

// metrics accumulates counters across the lifetime of a Client,
// surviving connection respawns. All methods are safe for concurrent
// use.
type metrics struct {
	mu sync.RWMutex

	notificationsSeen    uint64
	notificationsDropped uint64
	commandsRun          uint64
	commandsFailed       uint64
	timeouts             uint64
	respawns             uint64
	lastError            string
	lastActivity         time.Time
}

func (m *metrics) noteActivity() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

func (m *metrics) noteNotification() {
	m.mu.Lock()
	m.notificationsSeen++
	m.mu.Unlock()
}

// noteDrop records one dropped notification and returns the running
// total so the caller can decide whether this drop is worth logging.
func (m *metrics) noteDrop() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsDropped++
	return m.notificationsDropped
}

func (m *metrics) noteCommand(failed bool) {
	m.mu.Lock()
	m.commandsRun++
	if failed {
		m.commandsFailed++
	}
	m.mu.Unlock()
}

func (m *metrics) noteTimeout() {
	m.mu.Lock()
	m.timeouts++
	m.mu.Unlock()
}

func (m *metrics) noteRespawn() {
	m.mu.Lock()
	m.respawns++
	m.mu.Unlock()
}

func (m *metrics) noteError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.lastError = err.Error()
	m.mu.Unlock()
}

// fill copies the counters into a stats snapshot.
func (m *metrics) fill(s *engine.Stats) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s.NotificationsSeen = m.notificationsSeen
	s.NotificationsDropped = m.notificationsDropped
	s.CommandsRun = m.commandsRun
	s.CommandsFailed = m.commandsFailed
	s.Timeouts = m.timeouts
	s.Respawns = m.respawns
	s.LastError = m.lastError
	s.LastActivity = m.lastActivity
}

func (m *metrics) lastErrorText() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}
