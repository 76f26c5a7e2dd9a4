package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nilotpaul/meetsync/types"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// stubAPI answers each path with a canned status and JSON body and records
// every request it sees.
type stubAPI struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]stubRoute
	requests []recordedRequest
}

type stubRoute struct {
	status int
	body   any
}

func newStubAPI(t *testing.T) *stubAPI {
	s := &stubAPI{routes: make(map[string]stubRoute)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if b, _ := io.ReadAll(r.Body); len(b) != 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		route, ok := s.routes[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(route.status)
		_ = json.NewEncoder(w).Encode(route.body)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *stubAPI) handle(path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = stubRoute{status: status, body: body}
}

func (s *stubAPI) last() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return recordedRequest{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *stubAPI) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubAPI) call() types.ProviderCall {
	return types.ProviderCall{Client: s.Client(), BaseURL: s.URL}
}

func testCredential() *types.Credential {
	return &types.Credential{
		UserID:       "alice@example.com",
		AccessToken:  "tok1",
		RefreshToken: "r1",
		Connected:    true,
	}
}

func testInput(config map[string]any) types.ActionInput {
	return types.ActionInput{
		Meeting: &types.MeetingArtifact{
			ID:    "m-1",
			Title: "Weekly sync",
			Notes: "Discussed the roadmap.",
			ActionItems: map[string]types.ActionItem{
				"b": {Text: "Book the venue"},
				"a": {Text: "Send the deck", Assignee: "alice", Completed: true},
			},
			Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		Config: config,
	}
}
