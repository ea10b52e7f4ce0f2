package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// handleBusWS serves /ws, the main event bus. The first client message is
// expected to be {type:"subscribe", repoId}; the server then streams bus
// events matching that subscription.
func (s *Server) handleBusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.logger().Error("bus ws upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	client := s.hub.Register(conn)
	defer s.hub.Unregister(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		client.HandleClientFrame(data)
	}
}

type termFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// handleTermWS serves /ws/term?sessionId=<id>, a per-PTY pipe. On open it
// replays the current output buffer as one frame, then streams new chunks
// as they arrive and sends {type:"exit", code} on process exit. Client
// disconnection unsubscribes without killing the underlying PTY.
func (s *Server) handleTermWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.logger().Error("term ws upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	out := &safeConn{conn: conn}

	if buf, ok := s.deps.Terminals.GetOutputBuffer(sessionID); ok {
		_ = out.writeJSON(termFrame{Type: "data", Data: string(buf)})
	}

	unsubData, ok := s.deps.Terminals.OnData(sessionID, func(b []byte) {
		_ = out.writeJSON(termFrame{Type: "data", Data: string(b)})
	})
	if !ok {
		_ = out.writeJSON(termFrame{Type: "exit", Data: "session not found"})
		return
	}
	defer unsubData()

	unsubExit, _ := s.deps.Terminals.OnExit(sessionID, func(code int) {
		_ = out.writeJSON(map[string]any{"type": "exit", "code": code})
	})
	defer unsubExit()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame termFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "input":
			s.deps.Terminals.Write(sessionID, []byte(frame.Data))
		case "resize":
			if frame.Cols > 0 && frame.Rows > 0 {
				s.deps.Terminals.Resize(sessionID, frame.Cols, frame.Rows)
			}
		}
	}
}

// safeConn serializes concurrent writes to a single WS connection — the
// data subscriber callback and the exit callback can each fire from a
// different goroutine, and gorilla/websocket forbids concurrent writers.
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *safeConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
