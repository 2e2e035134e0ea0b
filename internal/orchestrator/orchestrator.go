package orchestrator

import (
	"context"
	"log/slog"

	"github.com/deckoviz/vizzy-backend/internal/metrics"
	"github.com/deckoviz/vizzy-backend/internal/provider"
)

// Result is the outcome of a full generation attempt across the chain.
type Result struct {
	Images []string
	Label  string
}

// Success reports whether real provider output was obtained, as opposed to
// the placeholder fallback.
func (r Result) Success() bool {
	return provider.Outcome{Images: r.Images, Label: r.Label}.GenuineSuccess()
}

// Orchestrator tries providers in a fixed priority order and falls back to
// deterministic placeholders when the chain is exhausted. At most one
// provider is actually used per request; there are no speculative parallel
// calls.
type Orchestrator struct {
	providers []provider.Adapter
	metrics   *metrics.Registry
	log       *slog.Logger
}

// New builds an orchestrator over the given providers. The slice order is
// the priority order and is significant: it decides cost and latency.
func New(log *slog.Logger, reg *metrics.Registry, providers ...provider.Adapter) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		metrics:   reg,
		log:       log,
	}
}

// Generate walks the chain until one provider yields genuine output.
// Unconfigured providers are skipped. A provider panic is contained and
// treated as that provider's failure.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, count int) Result {
	for _, p := range o.providers {
		if !p.Configured() {
			o.log.Info("provider not configured, skipping", "provider", p.Name())
			continue
		}

		o.log.Info("attempting provider", "provider", p.Name())
		out := o.attempt(ctx, p, prompt, count)
		if out.GenuineSuccess() {
			o.log.Info("generated images", "provider", p.Name(), "label", out.Label, "count", len(out.Images))
			return Result{Images: out.Images, Label: out.Label}
		}
		o.log.Warn("provider fell through", "provider", p.Name(), "label", out.Label)
	}

	o.log.Info("all providers exhausted, using SVG placeholder images")
	o.metrics.RecordImageAPIFailure()
	return Result{
		Images: provider.Placeholders(count, prompt),
		Label:  provider.PlaceholderLabel,
	}
}

func (o *Orchestrator) attempt(ctx context.Context, p provider.Adapter, prompt string, count int) (out provider.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("provider panicked", "provider", p.Name(), "panic", r)
			out = provider.Outcome{Label: "Placeholder (" + p.Name() + " panic)"}
		}
	}()
	return p.Generate(ctx, prompt, count)
}
