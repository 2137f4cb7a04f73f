package session

import "time"

// reapLoop periodically removes terminal, expired sessions (spec §4.E's
// Reaper). Non-terminal sessions are never removed, regardless of how long
// they've been pending.
func (m *Manager) reapLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.config.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce()
		}
	}
}

func (m *Manager) reapOnce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, sess := range m.sessions {
		if sess.Status.Terminal() && sess.ExpiresAt.Before(now) {
			delete(m.sessions, id)
		}
	}
}
