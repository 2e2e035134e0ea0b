package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/deckoviz/vizzy-backend/internal/chat"
	"github.com/deckoviz/vizzy-backend/internal/config"
	"github.com/deckoviz/vizzy-backend/internal/metrics"
	"github.com/deckoviz/vizzy-backend/internal/orchestrator"
	"github.com/deckoviz/vizzy-backend/internal/provider"
	"github.com/deckoviz/vizzy-backend/internal/quota"
	"github.com/deckoviz/vizzy-backend/internal/server"
	"github.com/deckoviz/vizzy-backend/internal/storage"
	"github.com/deckoviz/vizzy-backend/internal/store"
	"github.com/deckoviz/vizzy-backend/internal/textgen"
	"github.com/deckoviz/vizzy-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()
	logr.Info("starting vizzy backend",
		"runware_configured", cfg.RunwareAPIKey != "",
		"huggingface_configured", cfg.HuggingFaceAPIKey != "",
		"replicate_configured", cfg.ReplicateAPIKey != "",
		"openrouter_configured", cfg.OpenRouterAPIKey != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	sessions := store.NewSessionStore(cfg.SessionFile, logr)
	profiles := store.NewProfileStore(cfg.ProfileFile, logr)

	textClient := textgen.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.TextModel, cfg.RequestTimeout, logr)

	// Priority order: Runware first, placeholder synthesis last. Reordering
	// this list changes cost and latency, not just preference.
	chain := orchestrator.New(logr, reg,
		provider.NewRunware(cfg.RunwareAPIKey, cfg.RunwareBaseURL, cfg.RunwareTimeout, logr),
		provider.NewHuggingFace(cfg.HuggingFaceAPIKey, cfg.HuggingFaceBaseURL, cfg.RequestTimeout, logr),
		provider.NewReplicate(cfg.ReplicateAPIKey, cfg.ReplicateBaseURL, cfg.RequestTimeout, logr),
		provider.NewOpenRouterImages(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.RequestTimeout, logr),
	)

	gate := quota.NewGate(cfg.HomeDailyLimit, cfg.EnterpriseDailyLimit)
	chatSvc := chat.NewService(textClient, chain, sessions, gate, reg, logr)

	var uploads storage.Store
	if cfg.S3Configured() {
		uploads, err = storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
	} else {
		uploads, err = storage.NewLocalStore(cfg.UploadsDir)
	}
	if err != nil {
		log.Fatalf("upload storage: %v", err)
	}

	srv := server.New(cfg.ListenAddr, cfg.AllowedOrigins, logr, chatSvc, sessions, profiles, reg, uploads)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
