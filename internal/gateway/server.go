// Package gateway is VibeTree's HTTP/WebSocket surface: the /api request
// surface, the /ws event bus, and the /ws/term PTY pipe. Grounded on the
// original gateway.Server's mux-and-upgrader shape and its localhost-only
// origin check.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/logging"
	"github.com/vibetree/vibetree/internal/scanner"
)

// Config holds the gateway's network binding.
type Config struct {
	Host string
	Port int
}

// ReadinessChecker lets subsystems report startup readiness.
type ReadinessChecker interface {
	Name() string
	Ready() bool
}

// Server is VibeTree's HTTP/WebSocket surface. Safe for concurrent use.
type Server struct {
	config Config
	deps   Deps
	hub    *broadcast.Hub

	upgrader websocket.Upgrader

	mu                sync.RWMutex
	running           bool
	httpServer        *http.Server
	readinessCheckers []ReadinessChecker
}

// localhostPrefixes mirrors the origin allow-list used for WebSocket
// upgrades — no external site may open a control connection.
var localhostPrefixes = []string{
	"http://localhost",
	"http://127.0.0.1",
	"https://localhost",
	"https://127.0.0.1",
}

func isLocalhost(origin string) bool {
	for _, prefix := range localhostPrefixes {
		if origin == prefix || strings.HasPrefix(origin, prefix+":") {
			return true
		}
	}
	return false
}

// New builds a Server over the given dependencies.
func New(config Config, deps Deps) *Server {
	return &Server{
		config: config,
		deps:   deps,
		hub:    broadcast.New(logging.WithComponent("broadcast")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return isLocalhost(origin)
			},
		},
	}
}

// Hub exposes the broadcast bus so other components (scan, materialize)
// can publish events through the same server.
func (s *Server) Hub() *broadcast.Hub { return s.hub }

// SetScanner attaches the scanner after construction, so callers can build
// it over this server's own Hub() and avoid running two disconnected
// broadcast buses.
func (s *Server) SetScanner(scanner *scanner.Scanner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps.Scanner = scanner
}

// RegisterReadinessChecker appends c to the server's readiness checks.
// /api/health does not consult them; it always reports status "ok".
func (s *Server) RegisterReadinessChecker(c ReadinessChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readinessCheckers = append(s.readinessCheckers, c)
}

// Start builds the route table and blocks serving HTTP until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("gateway: already running")
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	s.routes(mux)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logging.WithComponent("gateway").Info("gateway starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the HTTP server with a 30-second deadline.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleBusWS)
	mux.HandleFunc("/ws/term", s.handleTermWS)

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/repos", s.handleRepos)
	mux.HandleFunc("/api/repos/", s.handleRepoByID)
	mux.HandleFunc("/api/project-rules", s.handleProjectRules)

	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/scan/restart-prompt", s.handleRestartPrompt)

	mux.HandleFunc("/api/tree-spec", s.handleTreeSpec)
	mux.HandleFunc("/api/tree-spec/confirm", s.handleTreeSpecConfirm)
	mux.HandleFunc("/api/tree-spec/unconfirm", s.handleTreeSpecUnconfirm)

	mux.HandleFunc("/api/branch/create", s.handleBranchCreate)
	mux.HandleFunc("/api/branch/create-worktree", s.handleBranchCreateWorktree)
	mux.HandleFunc("/api/branch/create-tree", s.handleBranchCreateTree)
	mux.HandleFunc("/api/branch/checkout", s.handleBranchCheckout)
	mux.HandleFunc("/api/branch/pull", s.handleBranchPull)
	mux.HandleFunc("/api/branch/rebase", s.handleBranchRebase)
	mux.HandleFunc("/api/branch/merge-parent", s.handleBranchMergeParent)
	mux.HandleFunc("/api/branch/push", s.handleBranchPush)
	mux.HandleFunc("/api/branch/delete", s.handleBranchDelete)
	mux.HandleFunc("/api/branch/delete-worktree", s.handleBranchDeleteWorktree)
	mux.HandleFunc("/api/branch/check-deletable", s.handleBranchCheckDeletable)
	mux.HandleFunc("/api/branch/cleanup-orphaned", s.handleBranchCleanupOrphaned)

	mux.HandleFunc("/api/term/sessions", s.handleTermSessions)
	mux.HandleFunc("/api/term/sessions/", s.handleTermSessionAction)

	mux.HandleFunc("/api/external-links", s.handleExternalLinks)
	mux.HandleFunc("/api/external-links/context", s.handleExternalLinksContext)
	mux.HandleFunc("/api/external-links/", s.handleExternalLinkByID)

	mux.HandleFunc("/api/planning-sessions", s.handlePlanningSessions)
	mux.HandleFunc("/api/planning-sessions/confirm", s.handlePlanningSessionConfirm)
	mux.HandleFunc("/api/planning-sessions/discard", s.handlePlanningSessionDiscard)
	mux.HandleFunc("/api/planning-sessions/", s.handlePlanningSessionByID)

	mux.HandleFunc("/api/chat-sessions", s.handleChatSessions)
	mux.HandleFunc("/api/chat-sessions/", s.handleChatSessionMessages)

	mux.HandleFunc("/api/branch-links", s.handleBranchLinks)
	mux.HandleFunc("/api/repo-pins", s.handleRepoPins)
	mux.HandleFunc("/api/instructions", s.handleInstructions)
	mux.HandleFunc("/api/instructions/log", s.handleInstructionLog)

	mux.HandleFunc("/api/requirements", s.handleUnimplementedDomain)
	mux.HandleFunc("/api/ai", s.handleUnimplementedDomain)
	mux.HandleFunc("/api/system", s.handleSystem)
}

// --- shared response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": map[string]string{field: message},
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "missing request body")
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func pathSuffix(r *http.Request, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
}
