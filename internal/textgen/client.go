package textgen

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
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotConfigured is returned when no OpenRouter API key was resolved at
// process start. Callers substitute their own canned replies.
var ErrNotConfigured = errors.New("OPENROUTER_API_KEY not set")

const maxTokensCap = 1000

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call. When Messages is non-nil it is
// forwarded verbatim and takes precedence over Prompt and System.
type Request struct {
	Prompt      string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Client talks to the OpenRouter chat-completions endpoint. It applies a
// request timeout with exactly one retry on timeout; any non-200 response is
// a hard failure and is not retried.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	log          *slog.Logger
	retryBackoff time.Duration
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if model == "" {
		model = "openrouter/auto"
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log,
		retryBackoff: time.Second,
	}
}

// Configured reports whether the client holds a credential.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Model returns the upstream model identifier used for completions.
func (c *Client) Model() string { return c.model }

// Complete runs one completion. An empty string with a nil error means the
// upstream answered well-formed but with no usable text; callers apply their
// own contextual fallback for that case rather than treating it as a hard
// failure.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	msgs := req.Messages
	if msgs == nil {
		if req.System != "" {
			msgs = append(msgs, Message{Role: "system", Content: req.System})
		}
		if req.Prompt != "" {
			msgs = append(msgs, Message{Role: "user", Content: req.Prompt})
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > maxTokensCap {
		maxTokens = maxTokensCap
	}

	payload, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    msgs,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	var resp *http.Response
	attempt := func() error {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		var doErr error
		resp, doErr = c.httpClient.Do(httpReq)
		if doErr != nil {
			if isTimeout(doErr) {
				c.log.Warn("openrouter timeout, retrying")
				return doErr
			}
			return backoff.Permanent(doErr)
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryBackoff), 1), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openrouter response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("openrouter API error", "status", resp.StatusCode, "body", truncate(rawBody))
		return "", fmt.Errorf("openrouter returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content   *string `json:"content"`
				Reasoning *string `json:"reasoning"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", fmt.Errorf("decode openrouter response: %w", err)
	}

	var text string
	if len(parsed.Choices) > 0 {
		msg := parsed.Choices[0].Message
		// Prefer content; fall back to the reasoning field when content is
		// explicitly empty or null.
		if msg.Content != nil && strings.TrimSpace(*msg.Content) != "" {
			text = strings.TrimSpace(*msg.Content)
		} else if msg.Reasoning != nil {
			text = strings.TrimSpace(*msg.Reasoning)
		}
	}

	if text == "" {
		c.log.Warn("openrouter returned empty content, caller should fall back")
	}
	return text, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
