package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"testing"

	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

func TestIndexEnsureCollectionRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/brain_7" {
			t.Fatalf("path: want=%q got=%q", "/collections/brain_7", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, true), nil
	})

	if err := s.EnsureCollection(context.Background(), "7"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	vectors, ok := captured["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("vectors type: got=%T", captured["vectors"])
	}
	if vectors["distance"] != "Cosine" {
		t.Fatalf("distance: want=Cosine got=%v", vectors["distance"])
	}
	if vectors["size"] != float64(3) {
		t.Fatalf("size: want=3 got=%v", vectors["size"])
	}
}

func TestIndexEnsureCollectionConflictIsNotAnError(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusConflict,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"already exists"}}`))),
		}, nil
	})
	if err := s.EnsureCollection(context.Background(), "7"); err != nil {
		t.Fatalf("EnsureCollection on existing collection: %v", err)
	}
}

func TestIndexUpsertRequestShapeAndDeterministicIDs(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/brain_7/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/brain_7/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	points := []types.VectorPoint{
		{Name: "Neo4j", Description: "graph db", SourceID: "3", Vector: []float32{1, 2, 3}, FormatIndex: 0},
		{Name: "Qdrant", Description: "vector db", SourceID: "3", Vector: []float32{4, 5, 6}, FormatIndex: 1},
	}
	if err := s.Upsert(context.Background(), "7", points); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rows, ok := captured["points"].([]any)
	if !ok {
		t.Fatalf("points type: got=%T", captured["points"])
	}
	if len(rows) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(rows))
	}

	first, ok := rows[0].(map[string]any)
	if !ok {
		t.Fatalf("point[0] type: got=%T", rows[0])
	}
	if first["id"] != s.pointID("7", points[0]) {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload, ok := first["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload type: got=%T", first["payload"])
	}
	if payload["name"] != "Neo4j" || payload["source_id"] != "3" || payload["brain_id"] != "7" {
		t.Fatalf("payload mismatch: got=%v", payload)
	}

	// Same identity must map to the same point id on re-ingest.
	if s.pointID("7", points[0]) != s.pointID("7", points[0]) {
		t.Fatalf("point id not deterministic")
	}
	if s.pointID("7", points[0]) == s.pointID("8", points[0]) {
		t.Fatalf("point id must differ across brains")
	}
}

func TestIndexUpsertRejectsDimensionMismatch(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), "7", []types.VectorPoint{
		{Name: "Neo4j", Vector: []float32{1, 2}},
	})
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErrTyped.Code != OperationErrorValidation {
		t.Fatalf("error code: want=%q got=%q", OperationErrorValidation, opErrTyped.Code)
	}
}

func TestIndexSearchOrderingAndPayload(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/brain_7/points/search" {
			t.Fatalf("path: want=%q got=%q", "/collections/brain_7/points/search", r.URL.Path)
		}
		return okResponse(t, []map[string]any{
			{
				"id":    "a",
				"score": 0.40,
				"payload": map[string]any{
					"name": "Qdrant", "description": "vector db", "source_id": "3",
				},
			},
			{
				"id":    "b",
				"score": 0.90,
				"payload": map[string]any{
					"name": "Neo4j", "description": "graph db", "source_id": "3",
				},
			},
			{
				"id":      "c",
				"score":   0.80,
				"payload": map[string]any{"description": "nameless"},
			},
		}), nil
	})

	matches, err := s.Search(context.Background(), "7", []float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches length: want=2 got=%d", len(matches))
	}
	if matches[0].Name != "Neo4j" || matches[1].Name != "Qdrant" {
		t.Fatalf("ordering mismatch: got=%v", []string{matches[0].Name, matches[1].Name})
	}
	if matches[0].Description != "graph db" || matches[0].SourceID != "3" {
		t.Fatalf("payload mismatch: got=%+v", matches[0])
	}
}

func TestQualityIsMeanScore(t *testing.T) {
	if got := Quality(nil); got != 0 {
		t.Fatalf("empty quality: want=0 got=%v", got)
	}
	got := Quality([]Match{{Score: 0.9}, {Score: 0.6}, {Score: 0.3}})
	if math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("quality: want=0.6 got=%v", got)
	}
}

func TestIndexCountBySourceFilterShape(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/brain_7/points/count" {
			t.Fatalf("path: want=%q got=%q", "/collections/brain_7/points/count", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"count": 12}), nil
	})

	n, err := s.CountBySource(context.Background(), "7", "3")
	if err != nil {
		t.Fatalf("CountBySource: %v", err)
	}
	if n != 12 {
		t.Fatalf("count: want=12 got=%d", n)
	}

	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter type: got=%T", captured["filter"])
	}
	must, ok := filter["must"].([]any)
	if !ok || len(must) != 2 {
		t.Fatalf("must: got=%v", filter["must"])
	}
}

func TestIndexDeleteBySourceRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/brain_7/points/delete" {
			t.Fatalf("path: want=%q got=%q", "/collections/brain_7/points/delete", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	if err := s.DeleteBySource(context.Background(), "7", "3"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if _, ok := captured["filter"]; !ok {
		t.Fatalf("missing filter in delete body")
	}
}

func TestIndexDeleteCollectionMissingIsNotAnError(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodDelete {
			t.Fatalf("method: want=%s got=%s", http.MethodDelete, r.Method)
		}
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"not found"}}`))),
		}, nil
	})
	if err := s.DeleteCollection(context.Background(), "7"); err != nil {
		t.Fatalf("DeleteCollection on missing collection: %v", err)
	}
}

func TestIndexSearchMissingCollectionIsEmpty(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"Collection brain_42 doesn't exist!"}}`))),
		}, nil
	})
	matches, err := s.Search(context.Background(), "42", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search on missing collection: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches: want=0 got=%d", len(matches))
	}
}

func TestIndexCountBySourceMissingCollectionIsZero(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"not found"}}`))),
		}, nil
	})
	n, err := s.CountBySource(context.Background(), "42", "3")
	if err != nil {
		t.Fatalf("CountBySource on missing collection: %v", err)
	}
	if n != 0 {
		t.Fatalf("count: want=0 got=%d", n)
	}
}

func TestClassifyHTTPCallErrorTimeout(t *testing.T) {
	err := classifyHTTPCallError("search", "timeout", context.DeadlineExceeded)
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErrTyped.Code != OperationErrorTimeout {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTimeout, opErrTyped.Code)
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom"))
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErrTyped.Code != OperationErrorTransportFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTransportFailed, opErrTyped.Code)
	}
}

func newTestIndex(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *index {
	t.Helper()
	client := &http.Client{
		Transport: roundTripFunc(roundTrip),
	}
	return &index{
		log:     newTestLogger(t),
		cfg:     Config{CollectionPrefix: "brain_", VectorDim: 3},
		baseURL: "http://qdrant.local",
		http:    client,
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	payload := map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
