package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/deckoviz/vizzy-backend/internal/models"
	"github.com/deckoviz/vizzy-backend/internal/prompts"
	"github.com/deckoviz/vizzy-backend/internal/textgen"
)

const defaultCopy = "A beautiful creation from your imagination."

// chatReply answers a purely conversational message. A hard text-client
// failure gets a generic canned reply keyed off the question shape; an
// empty-but-valid completion gets a contextual fallback that pivots to the
// creation features.
func (s *Service) chatReply(ctx context.Context, message string) string {
	minimalSystem := "You are Vizzy, a helpful creative AI assistant. Answer concisely and helpfully."
	text, err := s.text.Complete(ctx, textgen.Request{
		Prompt:      message,
		System:      minimalSystem,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		s.log.Error("chat reply generation failed", "err", err)
		return hardFallbackReply(message)
	}
	if strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}

	s.log.Warn("empty chat completion, using contextual fallback")
	return contextualFallbackReply(message)
}

// contextualFallbackReply is used when the upstream answered well-formed but
// empty.
func contextualFallbackReply(message string) string {
	lower := strings.ToLower(strings.TrimSpace(message))
	switch {
	case strings.Contains(lower, "who"):
		return fmt.Sprintf("That's a fascinating subject! %s touches on an interesting figure or idea. "+
			"I'd love to help you visualize it. Would you like me to generate an image, write some creative copy, or brainstorm ideas around this?", message)
	case strings.Contains(lower, "?"):
		first := lower
		if fields := strings.Fields(lower); len(fields) > 0 {
			first = fields[0]
		}
		return fmt.Sprintf("Great question about %s! While I work best with creative visual requests, I'm happy to help. "+
			"Would you like me to:\n• Create an image inspired by this\n• Generate creative copy\n• Brainstorm visual ideas\nWhat sounds good?", first)
	default:
		return fmt.Sprintf("I like that: '%s'. That could make a great visual! Would you like me to:\n"+
			"• Generate image variations\n• Create accompanying copy\n• Suggest a creative direction\nLet me know what you'd like to explore!", message)
	}
}

// hardFallbackReply is used when the text client failed outright.
func hardFallbackReply(message string) string {
	lower := strings.ToLower(strings.TrimSpace(message))
	switch {
	case strings.Contains(lower, "summarize"), strings.Contains(lower, "explain"),
		strings.Contains(lower, "what is"), strings.Contains(lower, "what's"):
		return "Vizzy Chat is a conversational AI creative assistant that helps you generate images, " +
			"write content, and explore creative ideas through visual brainstorming. " +
			"Would you like me to help you create something specific?"
	case strings.ContainsAny(lower, "?") || hasQuestionWord(lower):
		return fmt.Sprintf("That's an interesting question about '%s'. "+
			"I'd love to help! Vizzy Chat can generate images, write creative copy, or discuss ideas. "+
			"What would you like to explore today?", message)
	default:
		return fmt.Sprintf("Thanks for sharing '%s' with me. "+
			"I can help you create visuals, write content, or brainstorm ideas. "+
			"What sounds interesting to you?", message)
	}
}

func hasQuestionWord(lower string) bool {
	for _, w := range []string{"how", "why", "when", "where", "who", "what"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// generateCopy produces the short tagline accompanying generated images.
func (s *Service) generateCopy(ctx context.Context, message string, intent models.IntentCategory, userType models.UserType) string {
	copyPrompt := fmt.Sprintf("Create a short, poetic one-liner (max 15 words) for this artwork.\nRequest: %s\nIntent: %s\nRespond with only the tagline.", message, intent)
	text, err := s.complete(ctx, copyPrompt, userType, 60, 0.8)
	if err != nil {
		s.log.Error("copy generation failed", "err", err)
		return defaultCopy
	}
	if text = strings.TrimSpace(text); text == "" {
		return defaultCopy
	}
	return text
}

// describeVariations labels each generated variation. Model output is split
// into lines, truncated or padded to exactly n entries.
func (s *Service) describeVariations(ctx context.Context, prompt string, n int, userType models.UserType) []string {
	if n <= 0 {
		return nil
	}

	descPrompt := fmt.Sprintf(
		"You are an assistant that generates concise descriptions for each of "+
			"%d image variations based on the following prompt:\n'%s'\n"+
			"Each description should be a short phrase or sentence that includes "+
			"an orientation hint (e.g. 16:9, portrait), a style/mood cue, a color "+
			"or lighting note if relevant, and should be numbered from 1 to %d. "+
			"Separate entries with newlines.", n, prompt, n)

	text, err := s.complete(ctx, descPrompt, userType, 100, 0.7)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			s.log.Error("variation descriptions failed", "err", err)
		}
		return genericVariationLabels(0, n)
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) >= n {
		return lines[:n]
	}
	return append(lines, genericVariationLabels(len(lines), n)...)
}

func genericVariationLabels(from, to int) []string {
	labels := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		labels = append(labels, fmt.Sprintf("Variation %d", i+1))
	}
	return labels
}

// refinementSuggestion nudges the next iteration; empty on any failure.
func (s *Service) refinementSuggestion(ctx context.Context, prompt string, userType models.UserType) string {
	suggestionPrompt := fmt.Sprintf(
		"Suggest a concise refinement or tweak the user could make to the "+
			"prompt '%s' in order to change the output. Respond with one sentence only.", prompt)
	text, err := s.complete(ctx, suggestionPrompt, userType, 60, 0.7)
	if err != nil {
		s.log.Error("refinement suggestion failed", "err", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *Service) complete(ctx context.Context, prompt string, userType models.UserType, maxTokens int, temperature float64) (string, error) {
	return s.text.Complete(ctx, textgen.Request{
		Prompt:      prompt,
		System:      prompts.SystemFor(userType),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
}
