package gateway

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/vibetree/vibetree/internal/store"
)

func TestHandlePlanningSessionsSaveGetConfirmDiscard(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/planning-sessions", map[string]string{
		"id": "ps-1", "repoId": "repo-1", "title": "plan a feature",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/planning-sessions?repoId=repo-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var sessions []*store.PlanningSession
	if err := json.Unmarshal(w.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "ps-1" {
		t.Fatalf("sessions = %+v", sessions)
	}

	w = doJSON(t, mux, http.MethodGet, "/api/planning-sessions/ps-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get by id status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodPost, "/api/planning-sessions/confirm", map[string]string{"id": "ps-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body = %s", w.Code, w.Body.String())
	}
	got, err := s.deps.Store.GetPlanningSession("ps-1")
	if err != nil {
		t.Fatalf("GetPlanningSession: %v", err)
	}
	if got.Status != store.PlanningConfirmed {
		t.Errorf("status = %q, want confirmed", got.Status)
	}

	w = doJSON(t, mux, http.MethodPost, "/api/planning-sessions/discard", map[string]string{"id": "ps-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("discard status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleChatSessionsCreateAppendList(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/chat-sessions", map[string]string{
		"id": "cs-1", "repoId": "repo-1", "branchName": "feature/a", "worktreePath": "/tmp/wt",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodPost, "/api/chat-sessions/cs-1/messages", map[string]string{
		"role": "user", "content": "hello",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/chat-sessions/cs-1/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var messages []*store.ChatMessage
	if err := json.Unmarshal(w.Body.Bytes(), &messages); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "hello" {
		t.Fatalf("messages = %+v", messages)
	}

	w = doJSON(t, mux, http.MethodPost, "/api/chat-sessions/cs-1/archive", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleBranchLinksUpsertAndList(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/branch-links", map[string]any{
		"repoId": "repo-1", "branchName": "feature/a", "linkType": store.LinkPR, "url": "https://example.com/pr/1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/branch-links?repoId=repo-1&branchName=feature/a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var links []*store.BranchLink
	if err := json.Unmarshal(w.Body.Bytes(), &links); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("links = %+v", links)
	}
}

func TestHandleRepoPinsSetAndGet(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/repo-pins", map[string]string{
		"repoId": "repo-1", "baseBranchOverride": "develop",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/repo-pins?repoId=repo-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["baseBranchOverride"] != "develop" {
		t.Errorf("baseBranchOverride = %q", resp["baseBranchOverride"])
	}
}

func TestHandleInstructionsCreateAlsoAppendsLog(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/instructions", map[string]string{
		"repoId": "repo-1", "branchName": "feature/a", "content": "write tests first",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/instructions?repoId=repo-1&branchName=feature/a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}

	w = doJSON(t, mux, http.MethodGet, "/api/instructions/log?repoId=repo-1&branchName=feature/a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("log status = %d", w.Code)
	}
	var log []*store.InstructionLogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &log); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("log = %+v", log)
	}
}

func TestHandleUnimplementedDomainReportsUnsupported(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	for _, path := range []string{"/api/requirements", "/api/ai"} {
		w := doJSON(t, mux, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp["supported"] != false {
			t.Errorf("%s supported = %v, want false", path, resp["supported"])
		}
	}
}

func TestHandleSystemReportsOK(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, testMux(s), http.MethodGet, "/api/system", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleExternalLinksContextConcatenatesCachedContent(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/external-links", map[string]string{
		"planningSessionId": "ps-1", "url": "https://example.com/doc", "linkType": store.ExternalURL, "title": "design doc",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created store.ExternalLink
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if err := s.deps.Store.RefreshExternalLinkCache(created.ID, "the doc body"); err != nil {
		t.Fatalf("RefreshExternalLinkCache: %v", err)
	}

	w = doJSON(t, mux, http.MethodGet, "/api/external-links/context?planningSessionId=ps-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("context status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !contains(resp["context"], "the doc body") || !contains(resp["context"], "design doc") {
		t.Errorf("context = %q", resp["context"])
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
