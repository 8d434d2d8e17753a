package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/braingraph-backend/internal/observability"
	"github.com/yungbote/braingraph-backend/internal/pkg/httpx"
	"github.com/yungbote/braingraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/braingraph-backend/internal/platform/envutil"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
)

// Client talks to a local Ollama daemon over its native API. Chat can force
// JSON output; Embed batches over /api/embed; Pull fetches a model on demand.
type Client interface {
	Chat(ctx context.Context, model, system, user string, jsonMode bool, temperature float64) (string, error)
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
	Pull(ctx context.Context, model string) error
	Ready(ctx context.Context) error
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(envutil.String("OLLAMA_BASE_URL", "http://localhost:11434"), "/")
	timeoutSec := envutil.Int("OLLAMA_TIMEOUT_SECONDS", 300)
	maxRetries := envutil.Int("OLLAMA_MAX_RETRIES", 2)

	return &client{
		log:        log.With("service", "OllamaClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

// The daemon serializes heavy requests anyway; the cap keeps this side from
// piling goroutines onto it. Shared by every client in the process.
var (
	inflightOnce sync.Once
	inflight     *semaphore.Weighted
)

func inflightSem() *semaphore.Weighted {
	inflightOnce.Do(func() {
		inflight = semaphore.NewWeighted(int64(envutil.Int("OLLAMA_MAX_INFLIGHT", 2)))
	})
	return inflight
}

type ollamaHTTPError struct {
	StatusCode int
	Body       string
}

func (e *ollamaHTTPError) Error() string {
	return fmt.Sprintf("ollama http %d: %s", e.StatusCode, e.Body)
}

func (e *ollamaHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path, model string, body any, out any) error {
	sem := inflightSem()
	if err := sem.Acquire(ctxutil.Default(ctx), 1); err != nil {
		return err
	}
	defer sem.Release(1)

	backoff := 1 * time.Second
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, &buf)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		var raw []byte
		if err == nil {
			raw, err = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err == nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
				err = &ollamaHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
			}
		}

		if err == nil {
			if metrics := observability.Current(); metrics != nil {
				metrics.ObserveLLMRequest(model, path, strconv.Itoa(resp.StatusCode), time.Since(start), 0, 0)
			}
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("ollama decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			if metrics := observability.Current(); metrics != nil {
				metrics.ObserveLLMRequest(model, path, "error", time.Since(start), 0, 0)
			}
			return err
		}

		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("Ollama request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (c *client) Chat(ctx context.Context, model, system, user string, jsonMode bool, temperature float64) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", fmt.Errorf("ollama chat: model required")
	}
	req := chatRequest{
		Model:  model,
		Stream: false,
		Options: map[string]any{
			"temperature": temperature,
		},
	}
	req.Messages = []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	if jsonMode {
		req.Format = "json"
	}

	var resp chatResponse
	if err := c.do(ctx, "POST", "/api/chat", model, req, &resp); err != nil {
		return "", err
	}
	text := resp.Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ollama chat returned empty content (model=%s)", model)
	}
	return text, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (c *client) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama embed: model required")
	}

	req := embedRequest{Model: model, Input: inputs}
	var resp embedResponse
	if err := c.do(ctx, "POST", "/api/embed", model, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf(
			"ollama embed count mismatch: requested=%d returned=%d model=%s",
			len(inputs), len(resp.Embeddings), model,
		)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// Pull downloads the model if the daemon does not have it yet. Blocking;
// first pull of a large model can take minutes.
func (c *client) Pull(ctx context.Context, model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("ollama pull: model required")
	}
	c.log.Info("pulling ollama model", "model", model)
	return c.do(ctx, "POST", "/api/pull", model, pullRequest{Model: model, Stream: false}, nil)
}

func (c *client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", c.baseURL, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ollama readiness returned status=%d", resp.StatusCode)
	}
	return nil
}
