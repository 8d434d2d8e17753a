package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/braingraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

const maxErrorBodyBytes = 1024

var pointIDNamespaceUUID = uuid.MustParse("9b7d9c6e-55e1-4ce0-9a41-6a2f0d3c41aa")

// Index is the per-brain vector surface. Each brain owns one cosine
// collection named `<prefix><brain_id>`.
type Index interface {
	EnsureCollection(ctx context.Context, brainID string) error
	Upsert(ctx context.Context, brainID string, points []types.VectorPoint) error
	Search(ctx context.Context, brainID string, vector []float32, topK int) ([]Match, error)
	CountBySource(ctx context.Context, brainID, sourceID string) (int, error)
	DeleteBySource(ctx context.Context, brainID, sourceID string) error
	DeleteCollection(ctx context.Context, brainID string) error
}

// Match is one search hit with its cosine score and the identifying payload.
type Match struct {
	Name        string
	Description string
	SourceID    string
	Score       float64
}

// Quality is the retrieval-quality aggregate: the mean score of the hits
// clamped to [0,1], zero when there are none.
func Quality(matches []Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.Score
	}
	q := sum / float64(len(matches))
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}

type index struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewIndex(log *logger.Logger, cfg Config) (Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &index{
		log:     log.With("service", "QdrantIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if err := s.verifyReady(context.Background()); err != nil {
		return nil, err
	}

	log.Info(
		"Qdrant index ready",
		"url", s.baseURL,
		"collection_prefix", cfg.CollectionPrefix,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

// EnsureCollection creates the brain's collection when absent. A conflict
// response means it already exists and is not an error.
func (s *index) EnsureCollection(ctx context.Context, brainID string) error {
	const op = "ensure_collection"
	if strings.TrimSpace(brainID) == "" {
		return opErr(op, OperationErrorValidation, "brain id required", nil)
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(brainID, ""), req, nil)
	if err == nil {
		return nil
	}
	var opErrTyped *OperationError
	if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

func (s *index) Upsert(ctx context.Context, brainID string, points []types.VectorPoint) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(points))
	for _, p := range points {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return opErr(op, OperationErrorValidation, "point name is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", name), nil)
		}
		if s.cfg.VectorDim > 0 && len(p.Vector) != s.cfg.VectorDim {
			return opErr(
				op,
				OperationErrorValidation,
				fmt.Sprintf(
					"point %q dimension mismatch: expected=%d got=%d",
					name,
					s.cfg.VectorDim,
					len(p.Vector),
				),
				nil,
			)
		}
		rows = append(rows, map[string]any{
			"id":     s.pointID(brainID, p),
			"vector": p.Vector,
			"payload": map[string]any{
				"name":         name,
				"description":  p.Description,
				"source_id":    p.SourceID,
				"brain_id":     brainID,
				"format_index": p.FormatIndex,
			},
		})
	}

	req := map[string]any{"points": rows}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath(brainID, "/points?wait=true"), req, nil)
}

func (s *index) Search(ctx context.Context, brainID string, vector []float32, topK int) ([]Match, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)),
			nil,
		)
	}
	if topK <= 0 {
		topK = 10
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
	}
	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(
		ctx,
		op,
		http.MethodPost,
		s.collectionPath(brainID, "/points/search"),
		req,
		&rawResults,
	); err != nil {
		// A brain that was never ingested has no collection yet; that is an
		// empty result, not a failure.
		var opErrTyped *OperationError
		if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Match, 0, len(rawResults))
	for _, item := range rawResults {
		name := payloadString(item.Payload, "name")
		if name == "" {
			continue
		}
		out = append(out, Match{
			Name:        name,
			Description: payloadString(item.Payload, "description"),
			SourceID:    payloadString(item.Payload, "source_id"),
			Score:       item.Score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Name < out[j].Name
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (s *index) CountBySource(ctx context.Context, brainID, sourceID string) (int, error) {
	const op = "count"
	req := map[string]any{
		"filter": sourceFilter(brainID, sourceID),
		"exact":  true,
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := s.doJSON(
		ctx,
		op,
		http.MethodPost,
		s.collectionPath(brainID, "/points/count"),
		req,
		&result,
	); err != nil {
		var opErrTyped *OperationError
		if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}
	return result.Count, nil
}

func (s *index) DeleteBySource(ctx context.Context, brainID, sourceID string) error {
	const op = "delete_by_source"
	req := map[string]any{"filter": sourceFilter(brainID, sourceID)}
	return s.doJSON(
		ctx,
		op,
		http.MethodPost,
		s.collectionPath(brainID, "/points/delete?wait=true"),
		req,
		nil,
	)
}

// DeleteCollection drops the brain's whole collection. A 404 means it was
// never created; deletion is idempotent.
func (s *index) DeleteCollection(ctx context.Context, brainID string) error {
	const op = "delete_collection"
	err := s.doJSON(ctx, op, http.MethodDelete, s.collectionPath(brainID, ""), nil, nil)
	if err == nil {
		return nil
	}
	var opErrTyped *OperationError
	if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *index) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}
	return nil
}

func (s *index) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}

	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func sourceFilter(brainID, sourceID string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{"key": "brain_id", "match": map[string]any{"value": brainID}},
			map[string]any{"key": "source_id", "match": map[string]any{"value": sourceID}},
		},
	}
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (s *index) collectionName(brainID string) string {
	return s.cfg.CollectionPrefix + strings.TrimSpace(brainID)
}

func (s *index) collectionPath(brainID, suffix string) string {
	path := "/collections/" + s.collectionName(brainID)
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

// pointID is deterministic over the point's identity so re-ingesting the same
// source overwrites instead of duplicating.
func (s *index) pointID(brainID string, p types.VectorPoint) string {
	key := fmt.Sprintf("%s|%s|%s|%d", brainID, p.Name, p.SourceID, p.FormatIndex)
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(key)).String()
}
