package broadcast

// ScannerAdapter implements scanner.Broadcaster on top of a Hub, so the
// scanner's event-agnostic Broadcast(eventType, repoID, payload) calls
// become typed Messages on the bus.
type ScannerAdapter struct {
	Hub *Hub
}

func (a ScannerAdapter) Broadcast(eventType, repoID string, payload any) {
	a.Hub.Broadcast(Message{Type: EventType(eventType), RepoID: repoID, Payload: payload})
}
