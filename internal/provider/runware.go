package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// runwareMaxImages is the per-request cap we allow against Runware even
// though the API itself accepts more tasks per call.
const runwareMaxImages = 4

// Runware is the primary image provider. It speaks the task-based Runware
// REST API with Bearer authentication, one image per task for reliability.
type Runware struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewRunware(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *Runware {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runware{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (r *Runware) Name() string { return "runware" }

func (r *Runware) Configured() bool { return r.apiKey != "" }

type runwareTask struct {
	TaskType       string  `json:"taskType"`
	TaskUUID       string  `json:"taskUUID"`
	PositivePrompt string  `json:"positivePrompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"CFGScale"`
	Model          string  `json:"model"`
	OutputType     string  `json:"outputType"`
	OutputFormat   string  `json:"outputFormat"`
	NumberResults  int     `json:"numberResults"`
	DeliveryMethod string  `json:"deliveryMethod"`
}

type runwareResponse struct {
	Data []struct {
		ImageURL    string `json:"imageURL"`
		ImageURLAlt string `json:"imageUrl"`
	} `json:"data"`
}

// Generate issues one synchronous task per image. A failed unit does not
// abort the batch except for credential, credit and rate-limit responses,
// which cannot recover within the same request.
func (r *Runware) Generate(ctx context.Context, prompt string, count int) Outcome {
	if !r.Configured() {
		r.log.Warn("RUNWARE_API_KEY not set, skipping Runware")
		return failure("Placeholder (no Runware key)")
	}

	n := count
	if n > runwareMaxImages {
		n = runwareMaxImages
	}

	var urls []string
	for i := 0; i < n; i++ {
		img, stop, label := r.generateOne(ctx, prompt, i, n)
		if stop {
			return failure(label)
		}
		if img != "" {
			urls = append(urls, img)
		}
	}

	if len(urls) > 0 {
		r.log.Info("generated images via Runware", "count", len(urls))
		return Outcome{Images: urls, Label: fmt.Sprintf("Runware FLUX (%d images)", len(urls))}
	}
	r.log.Error("Runware returned no valid image URLs")
	return failure("Placeholder (Runware generation failed)")
}

// generateOne runs a single task. stop=true aborts the whole batch with the
// returned label.
func (r *Runware) generateOne(ctx context.Context, prompt string, index, total int) (image string, stop bool, label string) {
	task := runwareTask{
		TaskType:       "imageInference",
		TaskUUID:       uuid.NewString(),
		PositivePrompt: prompt,
		Width:          768,
		Height:         768,
		Steps:          30,
		CFGScale:       7.5,
		Model:          "runware:101@1", // FLUX.1 Dev
		OutputType:     "URL",
		OutputFormat:   "PNG",
		NumberResults:  1,
		DeliveryMethod: "sync",
	}

	// The endpoint accepts an array of tasks.
	body, err := json.Marshal([]runwareTask{task})
	if err != nil {
		r.log.Error("marshal runware task", "err", err)
		return "", false, ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		r.log.Error("new runware request", "err", err)
		return "", false, ""
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	r.log.Info("sending task to Runware", "image", index+1, "total", total)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport errors skip this unit only.
		r.log.Error("runware request failed", "image", index+1, "err", err)
		return "", false, ""
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.log.Error("read runware response", "err", err)
		return "", false, ""
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed runwareResponse
		if err := json.Unmarshal(rawBody, &parsed); err != nil {
			r.log.Warn("runware response not JSON", "body", truncateBody(rawBody))
			return "", false, ""
		}
		if len(parsed.Data) == 0 {
			r.log.Warn("empty data array in runware response", "body", truncateBody(rawBody))
			return "", false, ""
		}
		url := parsed.Data[0].ImageURL
		if url == "" {
			// Field casing changed once before; accept both.
			url = parsed.Data[0].ImageURLAlt
		}
		if url == "" {
			r.log.Warn("no imageURL in runware response", "body", truncateBody(rawBody))
			return "", false, ""
		}
		return url, false, ""
	case http.StatusUnauthorized, http.StatusForbidden:
		r.log.Error("runware auth failed", "status", resp.StatusCode)
		return "", true, "Placeholder (Runware auth failed)"
	case http.StatusPaymentRequired:
		r.log.Error("runware insufficient credits")
		return "", true, "Placeholder (Runware insufficient credits)"
	case http.StatusTooManyRequests:
		r.log.Error("runware rate limited")
		return "", true, "Placeholder (Runware rate limit)"
	default:
		r.log.Error("runware error", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return "", false, ""
	}
}
