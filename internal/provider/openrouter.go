package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// openRouterMaxImages is the documented per-request maximum of the endpoint.
const openRouterMaxImages = 2

// OpenRouterImages generates through OpenRouter's Flux image endpoint. It is
// last in the chain before the placeholder fallback.
type OpenRouterImages struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	log          *slog.Logger
	retryBackoff time.Duration
}

func NewOpenRouterImages(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *OpenRouterImages {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OpenRouterImages{
		apiKey:       apiKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log,
		retryBackoff: 2 * time.Second,
	}
}

func (o *OpenRouterImages) Name() string { return "openrouter" }

func (o *OpenRouterImages) Configured() bool { return o.apiKey != "" }

func (o *OpenRouterImages) Generate(ctx context.Context, prompt string, count int) Outcome {
	if !o.Configured() {
		o.log.Warn("OPENROUTER_API_KEY not set for image generation")
		return failure("Placeholder (no API key)")
	}

	n := count
	if n > openRouterMaxImages {
		n = openRouterMaxImages
	}

	payload, err := json.Marshal(map[string]any{
		"model":           "black-forest-labs/flux-pro",
		"prompt":          prompt,
		"num_images":      n,
		"size":            "512x512",
		"response_format": "url",
	})
	if err != nil {
		o.log.Error("marshal openrouter payload", "err", err)
		return failure("Placeholder (API error)")
	}

	o.log.Info("generating images via OpenRouter Flux", "count", n)

	// One retry, on timeout only. Non-timeout errors are permanent.
	var resp *http.Response
	attempt := func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", bytes.NewReader(payload))
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
		req.Header.Set("Content-Type", "application/json")

		var doErr error
		resp, doErr = o.httpClient.Do(req)
		if doErr != nil {
			if isTimeout(doErr) {
				o.log.Warn("openrouter timeout, retrying")
				return doErr
			}
			return backoff.Permanent(doErr)
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(o.retryBackoff), 1), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		if isTimeout(err) {
			o.log.Error("openrouter max retries reached")
			return failure("Placeholder (timeout)")
		}
		o.log.Error("openrouter request failed", "err", err)
		return failure("Placeholder (API error)")
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		o.log.Error("read openrouter response", "err", err)
		return failure("Placeholder (API error)")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed struct {
			Images []string `json:"images"`
		}
		if err := json.Unmarshal(rawBody, &parsed); err != nil {
			o.log.Error("invalid JSON from openrouter", "body", truncateBody(rawBody))
			return failure("Placeholder (invalid JSON)")
		}
		if len(parsed.Images) < n {
			o.log.Warn("fewer images returned than requested", "got", len(parsed.Images), "want", n)
			return failure("Placeholder (partial response)")
		}
		return Outcome{Images: parsed.Images[:n], Label: "OpenRouter Flux"}
	case http.StatusUnauthorized, http.StatusForbidden:
		o.log.Error("openrouter auth failed", "status", resp.StatusCode)
		return failure("Placeholder (OpenRouter auth failed)")
	case http.StatusPaymentRequired:
		o.log.Error("openrouter insufficient credits")
		return failure("Placeholder (OpenRouter insufficient credits)")
	case http.StatusTooManyRequests:
		o.log.Error("openrouter rate limited")
		return failure("Placeholder (OpenRouter rate limit)")
	default:
		o.log.Error("openrouter API error", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return failure("Placeholder (API error)")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
