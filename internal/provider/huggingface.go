package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const huggingFaceMaxImages = 4

// huggingFaceModels are tried in order of preference; free and stable first.
var huggingFaceModels = []string{
	"stabilityai/stable-diffusion-xl-base-1.0",
	"black-forest-labs/FLUX.1-schnell",
	"runwayml/stable-diffusion-v1-5",
}

// HuggingFace wraps the serverless inference API. Each model returns raw
// image bytes which are repackaged as PNG data URIs so the result needs no
// further fetching.
type HuggingFace struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewHuggingFace(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *HuggingFace {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HuggingFace{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

func (h *HuggingFace) Configured() bool { return h.apiKey != "" }

// Generate walks the model list until one yields at least one image. A failed
// unit inside a model's batch does not abort that batch; a model-level
// payment/permission/discontinued response moves on to the next model.
func (h *HuggingFace) Generate(ctx context.Context, prompt string, count int) Outcome {
	if !h.Configured() {
		h.log.Warn("HUGGINGFACE_API_KEY not set, skipping HuggingFace")
		return failure("Placeholder (no HuggingFace key)")
	}

	n := count
	if n > huggingFaceMaxImages {
		n = huggingFaceMaxImages
	}

	for _, model := range huggingFaceModels {
		short := model[strings.LastIndex(model, "/")+1:]
		h.log.Info("attempting HuggingFace model", "model", short)

		images := h.generateWithModel(ctx, model, prompt, n)
		if len(images) > 0 {
			h.log.Info("generated images via HuggingFace", "model", short, "count", len(images))
			return Outcome{Images: images, Label: fmt.Sprintf("HuggingFace (%s)", short)}
		}
		h.log.Warn("no images generated, trying next model", "model", short)
	}

	h.log.Error("all HuggingFace models exhausted")
	return failure("Placeholder (HuggingFace all models failed)")
}

func (h *HuggingFace) generateWithModel(ctx context.Context, model, prompt string, count int) []string {
	var images []string
	for i := 0; i < count; i++ {
		dataURI, modelDead := h.generateUnit(ctx, model, prompt)
		if modelDead {
			return images
		}
		if dataURI != "" {
			images = append(images, dataURI)
			h.log.Info("generated image", "model", model, "image", i+1, "total", count)
		}
	}
	return images
}

// generateUnit produces one image. modelDead=true means the model itself is
// unusable (payment required, forbidden, discontinued) and the remaining
// units for it should be skipped.
func (h *HuggingFace) generateUnit(ctx context.Context, model, prompt string) (dataURI string, modelDead bool) {
	payload, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		h.log.Error("marshal huggingface payload", "err", err)
		return "", false
	}

	url := h.baseURL + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		h.log.Error("new huggingface request", "err", err)
		return "", false
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.log.Warn("huggingface unit failed, continuing", "model", model, "err", err)
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.log.Warn("read huggingface response", "err", err)
		return "", false
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if len(body) == 0 {
			h.log.Warn("empty image body from huggingface", "model", model)
			return "", false
		}
		encoded := base64.StdEncoding.EncodeToString(body)
		return "data:image/png;base64," + encoded, false
	case http.StatusPaymentRequired:
		h.log.Warn("model requires payment, trying next", "model", model)
		return "", true
	case http.StatusForbidden:
		h.log.Warn("model access forbidden, trying next", "model", model)
		return "", true
	case http.StatusGone:
		h.log.Warn("model discontinued, trying next", "model", model)
		return "", true
	default:
		h.log.Warn("huggingface error", "model", model, "status", resp.StatusCode, "body", truncateBody(body))
		return "", false
	}
}
