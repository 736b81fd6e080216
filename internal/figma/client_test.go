package figma

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/srares76/figmaFeeder/internal/model"
)

// recordingServer is an httptest server that records request times and
// serves a scripted sequence of responses.
type recordingServer struct {
	mu        sync.Mutex
	times     []time.Time
	queries   []string
	responses []scriptedResponse
	server    *httptest.Server
}

type scriptedResponse struct {
	status int
	body   string
}

func newRecordingServer(t *testing.T, responses ...scriptedResponse) *recordingServer {
	t.Helper()
	rs := &recordingServer{responses: responses}
	rs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.times = append(rs.times, time.Now())
		rs.queries = append(rs.queries, r.URL.RawQuery)
		idx := len(rs.times) - 1
		rs.mu.Unlock()

		if r.Header.Get("X-Figma-Token") == "" {
			t.Error("request missing X-Figma-Token header")
		}

		resp := responses[len(responses)-1]
		if idx < len(responses) {
			resp = responses[idx]
		}
		w.WriteHeader(resp.status)
		fmt.Fprint(w, resp.body)
	}))
	t.Cleanup(rs.server.Close)
	return rs
}

func (rs *recordingServer) requestCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.times)
}

// waits returns the gaps between consecutive requests.
func (rs *recordingServer) waits() []time.Duration {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var gaps []time.Duration
	for i := 1; i < len(rs.times); i++ {
		gaps = append(gaps, rs.times[i].Sub(rs.times[i-1]))
	}
	return gaps
}

func newTestClient(t *testing.T, rs *recordingServer, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(rs.server.URL),
		WithBackoffBase(4 * time.Millisecond),
	}, opts...)
	c, err := NewClient("figd_test_token", opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

const nodesOK = `{"nodes":{"1:2":{"document":{"id":"1:2","name":"Frame","type":"FRAME"}}}}`

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("rejects an empty token", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient(""); !errors.Is(err, ErrNoToken) {
			t.Fatalf("expected ErrNoToken, got %v", err)
		}
	})
}

func TestFetchNodes(t *testing.T) {
	t.Parallel()

	t.Run("decodes documents and drops unresolved entries", func(t *testing.T) {
		t.Parallel()

		body := `{"nodes":{
			"1:2":{"document":{"id":"1:2","name":"Frame","type":"FRAME"}},
			"9:9":null
		}}`
		rs := newRecordingServer(t, scriptedResponse{http.StatusOK, body})
		c := newTestClient(t, rs)

		docs, err := c.FetchNodes(context.Background(), "filekey", []model.NodeID{"1:2", "9:9"}, 1)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("expected 1 document, got %d", len(docs))
		}
		if docs["1:2"].Name() != "Frame" {
			t.Errorf("unexpected document: %v", docs["1:2"])
		}
		if _, ok := docs["9:9"]; ok {
			t.Error("unresolved identifier must be absent, not present")
		}
	})

	t.Run("joins identifiers and requests depth 1", func(t *testing.T) {
		t.Parallel()

		rs := newRecordingServer(t, scriptedResponse{http.StatusOK, nodesOK})
		c := newTestClient(t, rs)

		if _, err := c.FetchNodes(context.Background(), "filekey", []model.NodeID{"1:2", "3:4"}, 1); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		query := rs.queries[0]
		if !strings.Contains(query, "ids=1%3A2%2C3%3A4") {
			t.Errorf("query %q does not carry the comma-joined id list", query)
		}
		if !strings.Contains(query, "depth=1") {
			t.Errorf("query %q does not request depth 1", query)
		}
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		t.Parallel()

		rs := newRecordingServer(t, scriptedResponse{http.StatusOK, nodesOK})
		c := newTestClient(t, rs)

		if _, err := c.FetchNodes(context.Background(), "filekey", nil, 1); !errors.Is(err, ErrEmptyBatch) {
			t.Fatalf("expected ErrEmptyBatch, got %v", err)
		}
		if rs.requestCount() != 0 {
			t.Error("empty batch must not reach the network")
		}
	})
}

func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	t.Run("retries rate limiting with growing backoff", func(t *testing.T) {
		t.Parallel()

		rs := newRecordingServer(t,
			scriptedResponse{http.StatusTooManyRequests, "rate limited"},
			scriptedResponse{http.StatusTooManyRequests, "rate limited"},
			scriptedResponse{http.StatusTooManyRequests, "rate limited"},
			scriptedResponse{http.StatusOK, nodesOK},
		)
		base := 4 * time.Millisecond
		c := newTestClient(t, rs, WithBackoffBase(base))

		docs, err := c.FetchNodes(context.Background(), "filekey", []model.NodeID{"1:2"}, 1)
		if err != nil {
			t.Fatalf("expected eventual success, got %v", err)
		}
		if len(docs) != 1 {
			t.Errorf("expected 1 document, got %d", len(docs))
		}
		if got := rs.requestCount(); got != 4 {
			t.Fatalf("expected 4 attempts, got %d", got)
		}

		// Jitter is intentionally non-deterministic, so only the
		// exponential lower bound is asserted: attempt n waits at
		// least base * 2^n.
		for i, wait := range rs.waits() {
			if minWait := base << uint(i); wait < minWait {
				t.Errorf("wait %d was %v, want at least %v", i, wait, minWait)
			}
		}
	})

	t.Run("non-retryable status fails immediately", func(t *testing.T) {
		t.Parallel()

		rs := newRecordingServer(t, scriptedResponse{http.StatusNotFound, "not found"})
		c := newTestClient(t, rs)

		_, err := c.FetchNodes(context.Background(), "filekey", []model.NodeID{"1:2"}, 1)

		var remote *RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("expected *RemoteError, got %v", err)
		}
		if remote.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", remote.StatusCode)
		}
		if remote.Body != "not found" {
			t.Errorf("Body = %q, want %q", remote.Body, "not found")
		}
		if got := rs.requestCount(); got != 1 {
			t.Errorf("expected exactly 1 attempt (no retries), got %d", got)
		}
	})

	t.Run("server failures exhaust the attempt budget", func(t *testing.T) {
		t.Parallel()

		rs := newRecordingServer(t, scriptedResponse{http.StatusServiceUnavailable, "down"})
		c := newTestClient(t, rs, WithMaxAttempts(3))

		_, err := c.FetchNodes(context.Background(), "filekey", []model.NodeID{"1:2"}, 1)

		var remote *RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("expected *RemoteError, got %v", err)
		}
		if remote.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d, want 503", remote.StatusCode)
		}
		if got := rs.requestCount(); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("error body is truncated", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", maxErrorBody*2)
		rs := newRecordingServer(t, scriptedResponse{http.StatusBadRequest, long})
		c := newTestClient(t, rs)

		_, err := c.FetchNodes(context.Background(), "filekey", []model.NodeID{"1:2"}, 1)

		var remote *RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("expected *RemoteError, got %v", err)
		}
		if len(remote.Body) != maxErrorBody {
			t.Errorf("Body length = %d, want %d", len(remote.Body), maxErrorBody)
		}
	})
}

func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("decodes metadata and the document root", func(t *testing.T) {
		t.Parallel()

		body := `{
			"name": "Design System",
			"version": "42",
			"lastModified": "2025-06-01T12:00:00Z",
			"document": {"id": "0:0", "type": "DOCUMENT", "children": [{"id": "0:1", "type": "CANVAS"}]}
		}`
		rs := newRecordingServer(t, scriptedResponse{http.StatusOK, body})
		c := newTestClient(t, rs)

		meta, err := c.File(context.Background(), "filekey")
		if err != nil {
			t.Fatalf("file fetch failed: %v", err)
		}
		if meta.Name != "Design System" {
			t.Errorf("Name = %q, want %q", meta.Name, "Design System")
		}
		if meta.Document.ID() != "0:0" {
			t.Errorf("document root = %q, want 0:0", meta.Document.ID())
		}
		if len(meta.Document.Children()) != 1 {
			t.Errorf("expected 1 canvas stub, got %d", len(meta.Document.Children()))
		}
	})
}
