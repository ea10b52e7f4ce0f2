package pty

import (
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// session is a single live PTY-backed shell, per spec.md §4.5.
type session struct {
	id           string
	worktreePath string
	cmd          *exec.Cmd
	ptmx         *os.File
	buffer       *ringBuffer

	mu            sync.Mutex
	dataSubs      map[int]func([]byte)
	exitSubs      map[int]func(int)
	nextSubID     int
	starting      bool
	running       bool
	pid           int
}

func newSession(id, worktreePath string) *session {
	return &session{
		id:           id,
		worktreePath: worktreePath,
		buffer:       newRingBuffer(),
		dataSubs:     make(map[int]func([]byte)),
		exitSubs:     make(map[int]func(int)),
	}
}

// spawn launches the user's login shell attached to a PTY of the given
// size, grounded on re-cinq-detergent/internal/engine/engine.go's
// pty.Open()-based agent invocation, generalized from one-shot process
// capture to a long-lived interactive shell via creack/pty's
// StartWithSize helper.
func (s *session) spawn(cols, rows int) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	cmd := exec.Command(shell, "-l")
	cmd.Dir = s.worktreePath
	cmd.Env = append(sanitizedEnviron(), "TERM=xterm-256color", "COLORTERM=truecolor")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cmd = cmd
	s.ptmx = ptmx
	s.running = true
	s.starting = false
	s.pid = cmd.Process.Pid
	s.mu.Unlock()

	go s.readLoop()
	return nil
}

// sanitizedEnviron passes through the process environment, dropping any
// existing TERM/COLORTERM so the caller's own values win instead of being
// duplicated in the child's environment.
func sanitizedEnviron() []string {
	blocked := map[string]bool{"TERM": true, "COLORTERM": true}
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name := kv
		if idx := indexByte(kv, '='); idx >= 0 {
			name = kv[:idx]
		}
		if !blocked[name] {
			out = append(out, kv)
		}
	}
	return out
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func (s *session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.buffer.Append(chunk)
			s.notifyData(chunk)
		}
		if err != nil {
			break
		}
	}

	_ = s.cmd.Wait()
	code := exitCode(s.cmd)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.notifyExit(code)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// notifyData dispatches a chunk to every current subscriber synchronously
// on the reader goroutine, per spec.md §5: subscribers must not block.
func (s *session) notifyData(chunk []byte) {
	s.mu.Lock()
	subs := make([]func([]byte), 0, len(s.dataSubs))
	for _, fn := range s.dataSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(chunk)
	}
}

func (s *session) notifyExit(code int) {
	s.mu.Lock()
	subs := make([]func(int), 0, len(s.exitSubs))
	for _, fn := range s.exitSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(code)
	}
}

func (s *session) onData(sink func([]byte)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.dataSubs[id] = sink
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.dataSubs, id)
		s.mu.Unlock()
	}
}

func (s *session) onExit(sink func(int)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.exitSubs[id] = sink
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.exitSubs, id)
		s.mu.Unlock()
	}
}

func (s *session) write(data []byte) error {
	_, err := s.ptmx.Write(data)
	return err
}

func (s *session) resize(cols, rows int) error {
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

func (s *session) kill() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func (s *session) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// isLive reports whether the session is either running or mid-spawn.
// Create uses this (rather than isRunning) to decide whether a
// concurrent caller should be handed this in-flight session instead of
// starting a second process for the same id.
func (s *session) isLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running || s.starting
}

// markStarting flags the session as being spawned, before spawn() itself
// runs. Must be called while the session is already published in the
// Manager's map under its lock, so a concurrent Create observes it.
func (s *session) markStarting() {
	s.mu.Lock()
	s.starting = true
	s.mu.Unlock()
}

func (s *session) clearStarting() {
	s.mu.Lock()
	s.starting = false
	s.mu.Unlock()
}

func (s *session) getPid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}
