package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const replicateMaxImages = 4

// Replicate drives the flux-schnell model through Replicate's asynchronous
// predictions API: create a prediction, then poll until it settles.
type Replicate struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	log          *slog.Logger
	pollInterval time.Duration
	maxPolls     int
}

func NewReplicate(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *Replicate {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Replicate{
		apiKey:       apiKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log,
		pollInterval: 2 * time.Second,
		maxPolls:     60,
	}
}

func (r *Replicate) Name() string { return "replicate" }

func (r *Replicate) Configured() bool { return r.apiKey != "" }

type replicatePrediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

func (r *Replicate) Generate(ctx context.Context, prompt string, count int) Outcome {
	if !r.Configured() {
		return failure("Placeholder (no Replicate key)")
	}

	n := count
	if n > replicateMaxImages {
		n = replicateMaxImages
	}

	pred, label := r.createPrediction(ctx, prompt, n)
	if label != "" {
		return failure(label)
	}

	output, label := r.pollPrediction(ctx, pred)
	if label != "" {
		return failure(label)
	}

	if len(output) == 0 {
		r.log.Warn("replicate returned no images")
		return failure("Placeholder (Replicate no output)")
	}
	if len(output) > n {
		output = output[:n]
	}
	r.log.Info("generated images via Replicate", "count", len(output))
	return Outcome{Images: output, Label: "Replicate (Flux Schnell)"}
}

// createPrediction returns the created prediction or a failure label.
func (r *Replicate) createPrediction(ctx context.Context, prompt string, count int) (replicatePrediction, string) {
	payload := map[string]any{
		"input": map[string]any{
			"prompt":         prompt,
			"go_fast":        true,
			"num_outputs":    count,
			"aspect_ratio":   "1:1",
			"output_format":  "webp",
			"output_quality": 80,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("marshal replicate payload", "err", err)
		return replicatePrediction{}, "Placeholder (Replicate error)"
	}

	url := r.baseURL + "/v1/models/black-forest-labs/flux-schnell/predictions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		r.log.Error("new replicate request", "err", err)
		return replicatePrediction{}, "Placeholder (Replicate error)"
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Error("replicate create failed", "err", err)
		return replicatePrediction{}, "Placeholder (Replicate error)"
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.log.Error("read replicate response", "err", err)
		return replicatePrediction{}, "Placeholder (Replicate error)"
	}

	if label := r.statusLabel(resp.StatusCode, rawBody); label != "" {
		return replicatePrediction{}, label
	}

	var pred replicatePrediction
	if err := json.Unmarshal(rawBody, &pred); err != nil {
		r.log.Error("decode replicate prediction", "err", err, "body", truncateBody(rawBody))
		return replicatePrediction{}, "Placeholder (Replicate invalid output)"
	}
	if pred.ID == "" {
		r.log.Error("empty prediction id", "body", truncateBody(rawBody))
		return replicatePrediction{}, "Placeholder (Replicate invalid output)"
	}
	return pred, ""
}

// pollPrediction polls until the prediction succeeds or fails. The creation
// response may already be terminal when the API answers synchronously.
func (r *Replicate) pollPrediction(ctx context.Context, pred replicatePrediction) ([]string, string) {
	for attempt := 0; attempt < r.maxPolls; attempt++ {
		switch pred.Status {
		case "succeeded":
			return pred.Output, ""
		case "failed", "canceled":
			r.log.Error("replicate prediction failed", "id", pred.ID, "error", pred.Error)
			return nil, "Placeholder (Replicate error)"
		}

		if attempt%10 == 0 {
			r.log.Info("replicate prediction pending", "id", pred.ID, "status", pred.Status, "attempt", attempt+1)
		}
		select {
		case <-ctx.Done():
			return nil, "Placeholder (Replicate timeout)"
		case <-time.After(r.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/predictions/"+pred.ID, nil)
		if err != nil {
			r.log.Error("new replicate poll request", "err", err)
			return nil, "Placeholder (Replicate error)"
		}
		req.Header.Set("Authorization", "Bearer "+r.apiKey)

		resp, err := r.httpClient.Do(req)
		if err != nil {
			r.log.Error("replicate poll failed", "err", err)
			return nil, "Placeholder (Replicate error)"
		}
		rawBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, "Placeholder (Replicate error)"
		}
		if label := r.statusLabel(resp.StatusCode, rawBody); label != "" {
			return nil, label
		}
		if err := json.Unmarshal(rawBody, &pred); err != nil {
			r.log.Error("decode replicate poll", "err", err, "body", truncateBody(rawBody))
			return nil, "Placeholder (Replicate invalid output)"
		}
	}
	r.log.Error("replicate prediction timed out", "id", pred.ID, "max_polls", r.maxPolls)
	return nil, "Placeholder (Replicate timeout)"
}

func (r *Replicate) statusLabel(status int, body []byte) string {
	switch status {
	case http.StatusOK, http.StatusCreated:
		return ""
	case http.StatusUnauthorized, http.StatusForbidden:
		r.log.Error("replicate auth failed", "status", status)
		return "Placeholder (Replicate auth failed)"
	case http.StatusPaymentRequired:
		r.log.Error("replicate insufficient credits")
		return "Placeholder (Replicate insufficient credits)"
	case http.StatusTooManyRequests:
		r.log.Error("replicate rate limited")
		return "Placeholder (Replicate rate limit)"
	default:
		r.log.Error("replicate error", "status", status, "body", truncateBody(body))
		return "Placeholder (Replicate error)"
	}
}
