// Package lifecycle keeps at most one pending removal timer per user.
//
// Timer callbacks run on the clock's goroutine, so they should only hand a Fire
// back to the owning event loop. The owner then calls Claim to find out whether
// that fire is still the current one for the user.
package lifecycle

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Fire identifies one scheduled removal.
type Fire struct {
	UserID  string
	LobbyID string
	Seq     uint64
}

type pending struct {
	timer *clock.Timer
	fire  Fire
}

// Manager is not safe for concurrent use; only the owning loop calls it.
type Manager struct {
	clk     clock.Clock
	grace   time.Duration
	seq     uint64
	pending map[string]pending
}

func NewManager(clk clock.Clock, grace time.Duration) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		clk:     clk,
		grace:   grace,
		pending: make(map[string]pending),
	}
}

// Schedule arms a removal for userID after the grace window, replacing any timer the
// user already has. deliver is called from the timer goroutine.
func (m *Manager) Schedule(userID, lobbyID string, deliver func(Fire)) Fire {
	m.Cancel(userID)

	m.seq++
	f := Fire{UserID: userID, LobbyID: lobbyID, Seq: m.seq}
	t := m.clk.AfterFunc(m.grace, func() { deliver(f) })
	m.pending[userID] = pending{timer: t, fire: f}
	return f
}

// Cancel stops the user's pending removal. It reports whether one existed.
func (m *Manager) Cancel(userID string) bool {
	p, ok := m.pending[userID]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(m.pending, userID)
	return true
}

// Claim consumes f if it is still the user's current timer. A fire that was
// cancelled or superseded after its callback already ran is rejected.
func (m *Manager) Claim(f Fire) bool {
	p, ok := m.pending[f.UserID]
	if !ok || p.fire.Seq != f.Seq {
		return false
	}
	delete(m.pending, f.UserID)
	return true
}

func (m *Manager) Pending(userID string) bool {
	_, ok := m.pending[userID]
	return ok
}

func (m *Manager) Len() int { return len(m.pending) }

// Stop cancels every pending timer.
func (m *Manager) Stop() {
	for userID := range m.pending {
		m.Cancel(userID)
	}
}

func (m *Manager) Now() time.Time { return m.clk.Now() }
