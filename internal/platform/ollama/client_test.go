package ollama

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *client {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return &client{
		log:        log,
		baseURL:    "http://ollama.local",
		httpClient: &http.Client{Transport: roundTripFunc(roundTrip)},
		maxRetries: 0,
	}
}

func TestInflightSemaphoreCapsRequests(t *testing.T) {
	t.Setenv("OLLAMA_MAX_INFLIGHT", "2")
	sem := inflightSem()

	if !sem.TryAcquire(2) {
		t.Fatalf("both slots must be free")
	}
	if sem.TryAcquire(1) {
		t.Fatalf("acquire beyond the cap must fail")
	}
	sem.Release(2)
}

func TestDoReleasesInflightSlot(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"embeddings":[[1,2]]}`))),
		}, nil
	})
	if _, err := c.Embed(context.Background(), "bge-m3", []string{"hello"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	sem := inflightSem()
	if !sem.TryAcquire(1) {
		t.Fatalf("slot leaked across requests")
	}
	sem.Release(1)
}
