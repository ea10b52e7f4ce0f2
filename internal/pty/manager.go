// Package pty is the process-wide PTY manager: one live interactive shell
// per session id, each with a ring-buffered output tail and fan-out to
// any number of data/exit subscribers, per spec.md §4.5.
package pty

import "sync"

// Manager owns every live PTY session in the process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*session)}
}

// Create spawns a shell for sessionID in worktreePath, or returns the
// existing session unchanged if one is already live or already being
// spawned — append-idempotent, per spec.md §4.5 invariant 5: a second
// concurrent Create for the same id never spawns a second process. The
// new session is marked "starting" and published into the map before
// the lock is released, so a racing Create sees it via isLive() instead
// of overwriting it and spawning again.
func (m *Manager) Create(sessionID, worktreePath string, cols, rows int) error {
	m.mu.Lock()
	if existing, ok := m.sessions[sessionID]; ok && existing.isLive() {
		m.mu.Unlock()
		return nil
	}
	sess := newSession(sessionID, worktreePath)
	sess.markStarting()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	if err := sess.spawn(cols, rows); err != nil {
		sess.clearStarting()
		m.remove(sessionID)
		return err
	}
	sess.onExit(func(int) { m.remove(sessionID) })
	return nil
}

// Write sends bytes to the session's PTY. Returns false for an unknown
// session.
func (m *Manager) Write(sessionID string, data []byte) bool {
	sess, ok := m.get(sessionID)
	if !ok {
		return false
	}
	return sess.write(data) == nil
}

// Resize changes the session's PTY window size. Returns false for an
// unknown session.
func (m *Manager) Resize(sessionID string, cols, rows int) bool {
	sess, ok := m.get(sessionID)
	if !ok {
		return false
	}
	return sess.resize(cols, rows) == nil
}

// Kill terminates the session's process. Returns false for an unknown
// session.
func (m *Manager) Kill(sessionID string) bool {
	sess, ok := m.get(sessionID)
	if !ok {
		return false
	}
	return sess.kill() == nil
}

// OnData subscribes sink to every data chunk the session emits from now
// on. Returns the unsubscribe function and false if the session is
// unknown.
func (m *Manager) OnData(sessionID string, sink func([]byte)) (func(), bool) {
	sess, ok := m.get(sessionID)
	if !ok {
		return func() {}, false
	}
	return sess.onData(sink), true
}

// OnExit subscribes sink to the session's exit event. Returns the
// unsubscribe function and false if the session is unknown.
func (m *Manager) OnExit(sessionID string, sink func(int)) (func(), bool) {
	sess, ok := m.get(sessionID)
	if !ok {
		return func() {}, false
	}
	return sess.onExit(sink), true
}

// GetOutputBuffer returns the session's current ring-buffered tail.
func (m *Manager) GetOutputBuffer(sessionID string) ([]byte, bool) {
	sess, ok := m.get(sessionID)
	if !ok {
		return nil, false
	}
	return sess.buffer.Bytes(), true
}

// IsRunning reports whether the session's process is still alive.
func (m *Manager) IsRunning(sessionID string) bool {
	sess, ok := m.get(sessionID)
	return ok && sess.isRunning()
}

// GetPid returns the session's process id, or (0, false) if unknown.
func (m *Manager) GetPid(sessionID string) (int, bool) {
	sess, ok := m.get(sessionID)
	if !ok {
		return 0, false
	}
	return sess.getPid(), true
}

// Cleanup kills every live session. Called on server restart before
// accepting connections, per spec.md §4.5.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.kill()
	}
}

func (m *Manager) get(sessionID string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// remove deletes a session from the map. Create registers it as one of the
// session's exit subscribers, so it runs alongside the other exit
// subscribers and is not guaranteed to run after them; Create also calls
// it directly when spawn fails.
func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
