package provider

import (
	"context"
	"strings"
)

// Outcome is what an adapter reports for a single generation attempt. Image
// references are either absolute URLs or self-contained data URIs. Failure is
// expressed as an empty image list with a label starting with "Placeholder";
// adapters never return errors for ordinary failure modes.
type Outcome struct {
	Images []string
	Label  string
}

// GenuineSuccess reports whether the outcome carries real provider output:
// a non-empty image list with a label that does not denote a fallback.
func (o Outcome) GenuineSuccess() bool {
	return len(o.Images) > 0 && !strings.HasPrefix(o.Label, "Placeholder")
}

// Adapter wraps one external image-generation API. Implementations clamp the
// requested count to their documented maximum and capture every HTTP-level
// failure into the outcome label instead of surfacing it.
type Adapter interface {
	Name() string
	// Configured reports whether the provider credential was resolved at
	// process start. Unconfigured adapters are skipped by the orchestrator.
	Configured() bool
	Generate(ctx context.Context, prompt string, count int) Outcome
}

func failure(label string) Outcome {
	return Outcome{Label: label}
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
