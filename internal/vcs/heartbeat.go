package vcs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// heartbeatFreshness is how recently a worktree's .vibetree/heartbeat.json
// must have been touched for its agent to be considered active, per
// spec.md §4.1.
const heartbeatFreshness = 30 * time.Second

// HeartbeatPath returns the expected heartbeat file location for a
// worktree.
func HeartbeatPath(worktreePath string) string {
	return filepath.Join(worktreePath, ".vibetree", "heartbeat.json")
}

// ReadHeartbeat reads and parses a worktree's heartbeat file. It returns
// a nil Heartbeat and no error when the file does not exist — absence is
// the normal state for a worktree with no attached agent.
func ReadHeartbeat(worktreePath string) (*Heartbeat, error) {
	data, err := os.ReadFile(HeartbeatPath(worktreePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return nil, err
	}
	return &hb, nil
}

// IsHeartbeatActive reports whether hb was updated within heartbeatFreshness
// of now.
func IsHeartbeatActive(hb *Heartbeat, now time.Time) bool {
	if hb == nil {
		return false
	}
	return now.Sub(hb.UpdatedAt) <= heartbeatFreshness
}
