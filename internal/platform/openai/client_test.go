package openai

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
		baseURL:    "http://openai.local",
		apiKey:     "test-key",
		model:      "gpt-4o",
		httpClient: &http.Client{Transport: roundTripFunc(roundTrip)},
		maxRetries: 0,
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestInflightSemaphoreCapsRequests(t *testing.T) {
	t.Setenv("OPENAI_MAX_INFLIGHT", "3")
	sem := inflightSem()

	for i := 0; i < 3; i++ {
		if !sem.TryAcquire(1) {
			t.Fatalf("slot %d must be free", i)
		}
	}
	if sem.TryAcquire(1) {
		t.Fatalf("acquire beyond the cap must fail")
	}
	sem.Release(3)
}

func TestDoReleasesInflightSlot(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":[{"embedding":[1,2],"index":0}]}`), nil
	})
	if _, err := c.Embed(context.Background(), "text-embedding-3-small", []string{"hello"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	fail := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":{"message":"bad"}}`), nil
	})
	if _, err := fail.Embed(context.Background(), "text-embedding-3-small", []string{"hello"}); err == nil {
		t.Fatalf("expected error from 400 response")
	}

	// Both calls must have returned their slots.
	sem := inflightSem()
	if !sem.TryAcquire(1) {
		t.Fatalf("slot leaked across requests")
	}
	sem.Release(1)
}
