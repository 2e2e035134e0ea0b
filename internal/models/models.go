package models

import "time"

// UserType classifies a user as consumer ("home") or business ("enterprise").
// The type affects daily image limits and prompt framing.
type UserType string

const (
	UserTypeHome       UserType = "home"
	UserTypeEnterprise UserType = "enterprise"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	return t == UserTypeHome || t == UserTypeEnterprise
}

// IntentCategory is the classification of a user message.
type IntentCategory string

const (
	IntentCreative   IntentCategory = "creative"
	IntentChat       IntentCategory = "chat"
	IntentRefinement IntentCategory = "refinement"
	IntentCommentary IntentCategory = "commentary"
)

// ChatMessage is a single entry in a session's conversation history.
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// GenerationRecord captures one generation for debugging and the UI history.
type GenerationRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Prompt    string         `json:"prompt"`
	Intent    IntentCategory `json:"intent"`
	UserType  UserType       `json:"user_type"`
	Images    []string       `json:"images"`
	Copy      string         `json:"copy"`
}

// Session holds the conversational state for one chat session. Sessions are
// created on first reference to an unknown id and are never explicitly
// destroyed; the persisted copy survives restarts.
type Session struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `json:"messages"`
	// Themes accumulates intent categories seen in this session.
	Themes []string `json:"themes,omitempty"`
	// ImageCount is the cumulative number of images generated today.
	// Placeholder fallbacks charge it exactly like real provider output.
	ImageCount int `json:"image_count"`
	// QuotaResetDate is the calendar day (YYYY-MM-DD) the counter was last
	// reset for.
	QuotaResetDate string             `json:"quota_reset_date"`
	UserType       UserType           `json:"user_type,omitempty"`
	Generations    []GenerationRecord `json:"generations,omitempty"`
}

// UserProfile is the thin identity record behind the email login.
type UserProfile struct {
	UserID      string            `json:"user_id"`
	Email       string            `json:"email"`
	UserType    UserType          `json:"user_type"`
	CreatedAt   time.Time         `json:"created_at"`
	LastActive  time.Time         `json:"last_active"`
	Sessions    []string          `json:"sessions"`
	Preferences map[string]string `json:"preferences"`
	DailyQuota  int               `json:"daily_quota"`
}
