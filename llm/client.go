package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultTimeout    = 120 * time.Second
	defaultAttempts   = 4
	baseRetryDelay    = 2 * time.Second
	minRateLimitDelay = 5 * time.Second // minimum delay for 429 errors
)

// compatClient is the shared base for all OpenAI-compatible providers.
type compatClient struct {
	cfg        Config
	client     *http.Client
	pathPrefix string // API path prefix, defaults to "/v1"
	delay      time.Duration
}

func newCompatClient(cfg Config) compatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return compatClient{
		cfg:        cfg,
		pathPrefix: "/v1",
		delay:      baseRetryDelay,
		client:     &http.Client{Timeout: timeout},
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *compatClient) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	respBody, err := c.doPost(ctx, c.pathPrefix+"/chat/completions", chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *compatClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	respBody, err := c.doPost(ctx, c.pathPrefix+"/embeddings", embeddingRequest{
		Model: c.cfg.Model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}

	// Sort by index to ensure correct ordering
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedding response missing index %d", i)
		}
	}
	return embeddings, nil
}

// statusError is a non-200 answer from the API.
type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("LLM API error %d: %s", e.code, e.body)
}

// retryableStatusCode returns true for HTTP status codes that warrant a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// retryDelay backs off exponentially and waits longer on rate limits,
// honouring Retry-After when the server sends one.
func retryDelay(n uint, err error, config *retry.Config) time.Duration {
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusTooManyRequests {
		d := minRateLimitDelay * time.Duration(1<<n)
		if se.retryAfter > d {
			d = se.retryAfter
		}
		return d
	}
	return retry.BackOffDelay(n, err, config)
}

func (c *compatClient) doPost(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := c.cfg.BaseURL + path
	attempts := c.cfg.Attempts
	if attempts == 0 {
		attempts = defaultAttempts
	}

	var respBody []byte
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")
			if c.cfg.APIKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return fmt.Errorf("request to %s failed: %w", url, err)
			}
			b, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("reading response body: %w", err)
			}
			if resp.StatusCode == http.StatusOK {
				respBody = b
				return nil
			}

			se := &statusError{code: resp.StatusCode, body: string(b)}
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
					se.retryAfter = time.Duration(seconds) * time.Second
				}
			}
			if !retryableStatusCode(resp.StatusCode) {
				return retry.Unrecoverable(se)
			}
			return se
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.delay),
		retry.DelayType(retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("llm: retrying request", "url", url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return respBody, nil
}
