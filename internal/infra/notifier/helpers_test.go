package notifier

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"notify-engine/internal/domain/entity"
)

func testNotification() *entity.Notification {
	return &entity.Notification{
		ID:         "n-1",
		EventType:  "ticket_assigned",
		Title:      "Ticket INC-42 assigned to you",
		Body:       "Printer on floor 3 is on fire.",
		EntityType: "incident",
		EntityID:   "INC-42",
		Metadata:   map[string]any{"priority": "P1"},
		User:       entity.User{ID: "u-1", Email: "jane.doe@example.com", Name: "jane.doe"},
	}
}

// capturedRequest is one request received by a providerStub.
type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// providerStub is an httptest server that records every request and answers
// with a fixed status and body.
type providerStub struct {
	*httptest.Server

	calls atomic.Int32

	mu       sync.Mutex
	requests []capturedRequest
}

func newProviderStub(t *testing.T, status int, body string) *providerStub {
	t.Helper()
	stub := &providerStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		data, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.requests = append(stub.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   data,
		})
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *providerStub) last(t *testing.T) capturedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("provider received no request")
	}
	return s.requests[len(s.requests)-1]
}
