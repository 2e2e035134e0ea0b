package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the backend and its providers.
// Every provider credential is optional: the generation chain degrades to
// deterministic placeholders when nothing is configured.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	TextModel         string

	RunwareAPIKey  string
	RunwareBaseURL string

	HuggingFaceAPIKey  string
	HuggingFaceBaseURL string

	ReplicateAPIKey  string
	ReplicateBaseURL string

	RequestTimeout time.Duration
	// RunwareTimeout is separate: Runware tasks are synchronous and routinely
	// take longer than a chat completion.
	RunwareTimeout time.Duration

	HomeDailyLimit       int
	EnterpriseDailyLimit int

	SessionFile string
	ProfileFile string
	UploadsDir  string

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// S3Configured reports whether the upload store should use S3 instead of the
// local uploads directory.
func (c Config) S3Configured() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Region != ""
}

// Load reads configuration from environment variables, applying defaults.
// A .env file is loaded when present but is not required.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8000"),
		AllowedOrigins:       splitOrigins(getEnv("ALLOWED_ORIGINS", "*")),
		OpenRouterBaseURL:    strings.TrimRight(getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"), "/"),
		TextModel:            getEnv("OPENROUTER_TEXT_MODEL", "openrouter/auto"),
		RunwareBaseURL:       strings.TrimRight(getEnv("RUNWARE_BASE_URL", "https://api.runware.ai/v1"), "/"),
		HuggingFaceBaseURL:   strings.TrimRight(getEnv("HUGGINGFACE_BASE_URL", "https://api-inference.huggingface.co"), "/"),
		ReplicateBaseURL:     strings.TrimRight(getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"), "/"),
		RequestTimeout:       time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 45)),
		RunwareTimeout:       time.Second * time.Duration(getInt("RUNWARE_TIMEOUT_SECONDS", 120)),
		HomeDailyLimit:       getInt("HOME_DAILY_IMAGE_LIMIT", 5),
		EnterpriseDailyLimit: getInt("ENTERPRISE_DAILY_IMAGE_LIMIT", 100),
		SessionFile:          getEnv("SESSION_FILE", "sessions.json"),
		ProfileFile:          getEnv("PROFILE_FILE", "user_profiles.json"),
		UploadsDir:           getEnv("UPLOADS_DIR", "uploads"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3Region:             os.Getenv("S3_REGION"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		S3Bucket:             os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:      os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:       getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:             getEnv("S3_PREFIX", "uploads"),
	}

	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.RunwareAPIKey = os.Getenv("RUNWARE_API_KEY")
	cfg.HuggingFaceAPIKey = os.Getenv("HUGGINGFACE_API_KEY")

	// Some users and tools set REPLICATE_API_TOKEN instead; accept both.
	cfg.ReplicateAPIKey = os.Getenv("REPLICATE_API_KEY")
	if cfg.ReplicateAPIKey == "" {
		cfg.ReplicateAPIKey = os.Getenv("REPLICATE_API_TOKEN")
	}

	if cfg.HomeDailyLimit <= 0 || cfg.EnterpriseDailyLimit <= 0 {
		return Config{}, fmt.Errorf("daily image limits must be positive (home=%d enterprise=%d)",
			cfg.HomeDailyLimit, cfg.EnterpriseDailyLimit)
	}

	return cfg, nil
}

func splitOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Missing .env is fine: all credentials are optional.
	return nil
}
