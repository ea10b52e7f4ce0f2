package broadcast

import "encoding/json"

// EventType enumerates the bus's message taxonomy, per spec.md §4.8.
type EventType string

const (
	EventScanUpdated        EventType = "scan.updated"
	EventPlanUpdated        EventType = "plan.updated"
	EventBranchesChanged    EventType = "branches.changed"
	EventExternalLinkCreate EventType = "external-link.created"
	EventExternalLinkUpdate EventType = "external-link.updated"
	EventExternalLinkDelete EventType = "external-link.deleted"
)

// Message is a bus event. RepoID scopes delivery to subscribed clients;
// SessionID additionally opts a client into a planning-session-scoped
// message by the same matching rule.
type Message struct {
	Type      EventType   `json:"type"`
	RepoID    string      `json:"repoId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// clientFrame is what a client sends to subscribe its connection.
type clientFrame struct {
	Type   string `json:"type"`
	RepoID string `json:"repoId"`
}

func decodeSubscribe(data []byte) (repoID string, ok bool) {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return "", false
	}
	if f.Type != "subscribe" {
		return "", false
	}
	return f.RepoID, true
}
