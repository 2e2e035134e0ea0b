package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deckoviz/vizzy-backend/internal/models"
	"github.com/deckoviz/vizzy-backend/internal/prompts"
	"github.com/deckoviz/vizzy-backend/internal/textgen"
)

// ClassifyIntent decodes a user message into an intent category, a cleaned
// generation prompt and a user tier guess. Any failure, including an
// unconfigured text client, falls back to ("creative", message, "home") so a
// request is never lost to classification.
func (s *Service) ClassifyIntent(ctx context.Context, message string) (models.IntentCategory, string, models.UserType) {
	intentPrompt := fmt.Sprintf(`You are an AI art director. Analyze the user's request and return a JSON
object with the following keys:
  - intent: one of ['creative', 'chat', 'refinement', 'commentary'] describing
    the general intent
  - prompt: a cleaned prompt suitable for use with an image model or generative
    API
  - user_type: either 'home' or 'enterprise' depending on whether the request
    seems consumer-oriented or business/brand-oriented

User request: "%s"

Respond with JSON only.`, message)

	text, err := s.text.Complete(ctx, textgen.Request{
		Prompt:      intentPrompt,
		System:      prompts.CoreSystem,
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		s.log.Warn("intent classification failed, using defaults", "err", err)
		return models.IntentCreative, message, models.UserTypeHome
	}
	if text == "" {
		s.log.Warn("intent generation returned empty, using defaults")
		return models.IntentCreative, message, models.UserTypeHome
	}

	// Models wrap the JSON in prose or fences; take the outermost object.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		s.log.Warn("no JSON found in intent response, using defaults")
		return models.IntentCreative, message, models.UserTypeHome
	}

	var parsed struct {
		Intent   string `json:"intent"`
		Prompt   string `json:"prompt"`
		UserType string `json:"user_type"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		s.log.Warn("intent response not valid JSON, using defaults", "err", err)
		return models.IntentCreative, message, models.UserTypeHome
	}

	intent := models.IntentCategory(parsed.Intent)
	switch intent {
	case models.IntentCreative, models.IntentChat, models.IntentRefinement, models.IntentCommentary:
	default:
		intent = models.IntentCreative
	}

	prompt := parsed.Prompt
	if prompt == "" {
		prompt = message
	}

	userType := models.UserType(parsed.UserType)
	if !userType.Valid() {
		userType = models.UserTypeHome
	}

	return intent, prompt, userType
}

// constructPrompt builds the structured generation prompt with default
// orientation and variation count.
func constructPrompt(basePrompt string, numImages int) string {
	return fmt.Sprintf(
		"%s\n\nGenerate %d variations in square 1:1 orientation. "+
			"Keep descriptions focused on style, lighting, color palette, and mood.",
		basePrompt, numImages)
}
