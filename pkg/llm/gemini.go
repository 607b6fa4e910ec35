package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hughisie/agent0-article-pipeline/pkg/metrics"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultMaxRetries  = 3
	DefaultCallSpacing = 2 * time.Second

	errorBackoff   = 10 * time.Second
	timeoutBackoff = 15 * time.Second
)

// GeminiClient calls the Gemini generateContent endpoint.
// A client is safe for concurrent use; calls share one rate limiter.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	search     bool
	logger     *slog.Logger
}

type Option func(*GeminiClient)

func WithBaseURL(u string) Option {
	return func(c *GeminiClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *GeminiClient) { c.httpClient = hc }
}

// WithLimiter shares a limiter between clients, e.g. the search and weave models.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *GeminiClient) { c.limiter = l }
}

func WithMaxRetries(n int) Option {
	return func(c *GeminiClient) { c.maxRetries = n }
}

// WithBackoff scales the retry waits; the defaults are 10s and 15s for timeouts.
func WithBackoff(d time.Duration) Option {
	return func(c *GeminiClient) { c.backoff = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *GeminiClient) { c.logger = l }
}

// NewLimiter returns the limiter used when none is given: one call every two seconds.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(DefaultCallSpacing), 1)
}

func NewGeminiClient(apiKey, model string, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewLimiter()
	}
	return c
}

// NewSearchClient returns a client whose requests enable the google_search tool.
func NewSearchClient(apiKey, model string, opts ...Option) *GeminiClient {
	c := NewGeminiClient(apiKey, model, opts...)
	c.search = true
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one prompt and returns the first candidate's text.
// 5xx responses and connection errors are retried with exponential waits.
func (c *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
	}
	if system != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	if c.search {
		payload.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Model: c.model, Msg: "failed to encode request", Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Model: c.model, Msg: "rate limiter", Err: err}
		}
		text, retryable, timeout, err := c.do(ctx, body)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "success").Inc()
			return text, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			break
		}

		wait := c.waitFor(attempt, timeout)
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "retry").Inc()
		c.logger.Warn("Retrying LLM request", "model", c.model, "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return "", &Error{Model: c.model, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
	metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
	return "", lastErr
}

func (c *GeminiClient) waitFor(attempt int, timeout bool) time.Duration {
	base := errorBackoff
	if timeout {
		base = timeoutBackoff
	}
	if c.backoff > 0 {
		base = c.backoff
	}
	return base * time.Duration(1<<attempt)
}

// do performs one HTTP round trip. It reports whether a failure is worth retrying.
func (c *GeminiClient) do(ctx context.Context, body []byte) (text string, retryable, timeout bool, err error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, false, &Error{Model: c.model, Msg: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		isTimeout := errors.As(err, &netErr) && netErr.Timeout()
		return "", ctx.Err() == nil, isTimeout, &Error{Model: c.model, Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, false, &Error{Model: c.model, Msg: "failed to read response", Err: err}
	}
	if resp.StatusCode >= 500 {
		return "", true, false, &Error{Model: c.model, StatusCode: resp.StatusCode, Msg: truncate(string(raw), 200)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, false, &Error{Model: c.model, StatusCode: resp.StatusCode, Msg: truncate(string(raw), 200)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", false, false, &Error{Model: c.model, Msg: "failed to decode response", Err: err}
	}
	if decoded.Error != nil {
		return "", false, false, &Error{Model: c.model, StatusCode: decoded.Error.Code, Msg: decoded.Error.Message}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", false, false, &Error{Model: c.model, Msg: "empty response"}
	}
	return decoded.Candidates[0].Content.Parts[0].Text, false, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
