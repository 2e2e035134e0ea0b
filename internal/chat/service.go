package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/deckoviz/vizzy-backend/internal/metrics"
	"github.com/deckoviz/vizzy-backend/internal/models"
	"github.com/deckoviz/vizzy-backend/internal/orchestrator"
	"github.com/deckoviz/vizzy-backend/internal/prompts"
	"github.com/deckoviz/vizzy-backend/internal/quota"
	"github.com/deckoviz/vizzy-backend/internal/store"
	"github.com/deckoviz/vizzy-backend/internal/textgen"
)

// maxImagesPerCall caps how many images a single generation call may request
// regardless of quota headroom.
const maxImagesPerCall = 4

// DefaultNumImages is applied at request decode time when the field is
// absent. An explicit zero is honored and generates no images.
const DefaultNumImages = 4

// TextGenerator is the completion capability the service needs from the
// text client.
type TextGenerator interface {
	Complete(ctx context.Context, req textgen.Request) (string, error)
	Configured() bool
	Model() string
}

// ImageGenerator is the orchestration capability over the provider chain.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, count int) orchestrator.Result
}

// Service implements the conversational flow: intent classification, quota
// gating, image orchestration, auxiliary copy and session bookkeeping.
type Service struct {
	text     TextGenerator
	images   ImageGenerator
	sessions *store.SessionStore
	gate     *quota.Gate
	metrics  *metrics.Registry
	log      *slog.Logger
	now      func() time.Time
}

func NewService(text TextGenerator, images ImageGenerator, sessions *store.SessionStore, gate *quota.Gate, reg *metrics.Registry, log *slog.Logger) *Service {
	return &Service{
		text:     text,
		images:   images,
		sessions: sessions,
		gate:     gate,
		metrics:  reg,
		log:      log,
		now:      time.Now,
	}
}

// Request is one inbound chat message.
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	NumImages int    `json:"num_images"`
	// Refinement is appended to the message by the /refine endpoint.
	Refinement string `json:"refinement,omitempty"`
	// Mode forces "chat" intent when the frontend already knows the user is
	// only conversing.
	Mode string `json:"mode,omitempty"`
}

// Response mirrors the chat API payload.
type Response struct {
	SessionID            string                    `json:"session_id"`
	Message              string                    `json:"message"`
	Images               []string                  `json:"images"`
	ImageDescriptions    []string                  `json:"image_descriptions,omitempty"`
	RefinementSuggestion string                    `json:"refinement_suggestion,omitempty"`
	Copy                 string                    `json:"copy"`
	IntentCategory       models.IntentCategory     `json:"intent_category"`
	UserType             models.UserType           `json:"user_type"`
	ConversationHistory  []models.ChatMessage      `json:"conversation_history"`
	LLMModel             string                    `json:"llm_model"`
	ImageModel           string                    `json:"image_model"`
	RecentGenerations    []models.GenerationRecord `json:"recent_generations,omitempty"`
	DailyImageCount      int                       `json:"daily_image_count"`
	DailyImageLimit      int                       `json:"daily_image_limit"`
}

var moreOptionsRe = regexp.MustCompile(`(?i)try\s+(\d+)\s+more options`)

// HandleMessage runs the full flow for one chat message: session
// create/resume, daily quota reset, intent routing, generation with the
// fallback chain, copy and descriptions, history and persistence.
func (s *Service) HandleMessage(ctx context.Context, req Request) (*Response, error) {
	start := s.now()
	s.metrics.RecordChatStart()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess, isNew := s.sessions.GetOrCreate(sessionID, start)

	s.gate.CheckAndReset(sess, start)

	numImages := req.NumImages
	if numImages < 0 {
		numImages = 0
	}
	// Iteration requests like "try 3 more options" override the count.
	if m := moreOptionsRe.FindStringSubmatch(req.Message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.log.Info("iteration request detected", "count", n)
			numImages = n
		}
	}

	intent := models.IntentChat
	basePrompt := req.Message
	userType := models.UserTypeHome
	if req.Mode != "" && req.Mode != "chat" {
		intent, basePrompt, userType = s.ClassifyIntent(ctx, req.Message)
	}

	var (
		copyText     string
		images       = []string{} // serialize as [] rather than null
		descriptions []string
		suggestion   string
		imageModel   = "none"
	)

	if intent == models.IntentChat {
		copyText = s.chatReply(ctx, req.Message)
	} else {
		finalPrompt := constructPrompt(basePrompt, numImages)
		limit := s.gate.Limit(userType)

		if sess.ImageCount >= limit {
			warning := fmt.Sprintf(
				"You've reached your daily limit of %d images. Please try again later or upgrade to enterprise.",
				limit)
			s.log.Info("daily image limit reached", "session", sessionID, "limit", limit)
			copyText = warning
		} else {
			count := s.gate.Clamp(sess, userType, numImages)
			if count > maxImagesPerCall {
				count = maxImagesPerCall
			}
			result := s.images.Generate(ctx, finalPrompt, count)
			images = result.Images
			imageModel = result.Label

			s.gate.Charge(sess, len(images))
			s.metrics.RecordImages(len(images))

			copyText = s.generateCopy(ctx, req.Message, intent, userType)
			descriptions = s.describeVariations(ctx, finalPrompt, len(images), userType)
			suggestion = s.refinementSuggestion(ctx, finalPrompt, userType)
		}
	}

	if isNew {
		copyText = prompts.StartupFor(userType) + "\n\n" + copyText
	}

	recordPrompt := basePrompt
	if intent == models.IntentChat {
		recordPrompt = req.Message
	}
	sess.Generations = append(sess.Generations, models.GenerationRecord{
		Timestamp: s.now(),
		Prompt:    recordPrompt,
		Intent:    intent,
		UserType:  userType,
		Images:    images,
		Copy:      copyText,
	})

	sess.Messages = append(sess.Messages,
		models.ChatMessage{Role: "user", Content: req.Message},
		models.ChatMessage{Role: "assistant", Content: copyText, Images: images},
	)
	if !containsString(sess.Themes, string(intent)) {
		sess.Themes = append(sess.Themes, string(intent))
	}
	sess.UserType = userType

	s.sessions.Save(sess)

	elapsed := s.now().Sub(start)
	s.metrics.RecordChatDone(elapsed, userType)
	s.log.Info("chat handled", "session", sessionID, "intent", intent, "user_type", userType, "elapsed", elapsed.Round(10*time.Millisecond).String())

	resp := &Response{
		SessionID:            sessionID,
		Message:              copyText,
		Images:               images,
		RefinementSuggestion: suggestion,
		Copy:                 copyText,
		IntentCategory:       intent,
		UserType:             userType,
		ConversationHistory:  sess.Messages,
		LLMModel:             s.text.Model(),
		ImageModel:           imageModel,
		RecentGenerations:    sess.Generations,
		DailyImageCount:      sess.ImageCount,
		DailyImageLimit:      s.gate.Limit(userType),
	}
	if len(images) > 0 {
		resp.ImageDescriptions = descriptions
	}
	return resp, nil
}

// VideoConcept produces a storyboard concept for enterprise users.
func (s *Service) VideoConcept(ctx context.Context, message string, userType models.UserType) (string, error) {
	videoPrompt := fmt.Sprintf(`Create a detailed video storyboard concept for: %s

Include:
- Scene-by-scene breakdown (5-10 scenes)
- Suggested duration
- Camera movements and transitions
- Audio/music suggestions
- Visual style notes

Format as a JSON-compatible script outline.`, message)

	return s.text.Complete(ctx, textgen.Request{
		Prompt:      videoPrompt,
		System:      prompts.SystemFor(userType),
		MaxTokens:   500,
		Temperature: 0.7,
	})
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
