package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deckoviz/vizzy-backend/internal/chat"
	"github.com/deckoviz/vizzy-backend/internal/metrics"
	"github.com/deckoviz/vizzy-backend/internal/models"
	"github.com/deckoviz/vizzy-backend/internal/storage"
	"github.com/deckoviz/vizzy-backend/internal/store"
)

const maxUploadBytes = 10 << 20

// Server exposes the chat API over HTTP.
type Server struct {
	addr     string
	log      *slog.Logger
	chat     *chat.Service
	sessions *store.SessionStore
	profiles *store.ProfileStore
	metrics  *metrics.Registry
	uploads  storage.Store
	router   *chi.Mux
}

func New(addr string, allowedOrigins []string, log *slog.Logger, chatSvc *chat.Service, sessions *store.SessionStore, profiles *store.ProfileStore, reg *metrics.Registry, uploads storage.Store) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	s := &Server{
		addr:     addr,
		log:      log,
		chat:     chatSvc,
		sessions: sessions,
		profiles: profiles,
		metrics:  reg,
		uploads:  uploads,
		router:   r,
	}

	r.Get("/", s.handleRoot)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/chat", s.handleChat)
	r.Post("/refine", s.handleRefine)
	r.Post("/video", s.handleVideo)
	r.Post("/upload", s.handleUpload)
	r.Post("/auth/login", s.handleLogin)
	r.Get("/session/{id}", s.handleGetSession)

	// Serve local uploads when the store is directory-backed.
	if local, ok := uploads.(*storage.LocalStore); ok {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir())))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // provider chains can be slow
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "Vizzy Chat Backend",
		"version": "0.1.0",
		"endpoints": map[string]string{
			"POST /chat":                "Send a message and get generated images + copy",
			"POST /upload":              "Upload an image for analysis and suggested transformations",
			"GET /session/{session_id}": "Retrieve session history",
			"GET /metrics":              "Return simple telemetry counters",
		},
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.chat.HandleMessage(r.Context(), req)
	if err != nil {
		s.log.Error("chat handler failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}
	if req.SessionID == "" {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if _, err := s.sessions.Get(req.SessionID); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	// Mode is forwarded so a creation refinement stays in the generation
	// flow instead of degrading to a chat reply.
	refined := chat.Request{
		SessionID: req.SessionID,
		Message:   strings.TrimSpace(req.Message + ". " + req.Refinement),
		NumImages: req.NumImages,
		Mode:      req.Mode,
	}
	resp, err := s.chat.HandleMessage(r.Context(), refined)
	if err != nil {
		s.log.Error("refine handler failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	userType := sess.UserType
	if !userType.Valid() {
		userType = models.UserTypeHome
	}

	if userType != models.UserTypeEnterprise {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "available_in_enterprise",
			"message":   "Video generation is an enterprise feature. Upgrade to create professional videos.",
			"video_url": nil,
		})
		return
	}

	concept, err := s.chat.VideoConcept(r.Context(), req.Message, userType)
	if err != nil {
		s.log.Error("video concept failed", "err", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "error",
			"message": "Video generation failed",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "success",
		"message":              "Video concept generated",
		"concept":              concept,
		"video_url":            nil,
		"duration_estimate":    "30-90 seconds",
		"format":               "Horizontal (16:9)",
		"ready_for_production": false,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "Failed to save upload", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	imageURL, err := s.uploads.Save(r.Context(), data, contentType)
	if err != nil {
		s.log.Error("failed to save upload", "err", err)
		http.Error(w, "Failed to save upload", http.StatusBadRequest)
		return
	}
	s.log.Info("uploaded image saved", "url", imageURL, "bytes", len(data))

	writeJSON(w, http.StatusOK, map[string]any{
		"image_url": imageURL,
		"analysis": "This image appears well-composed with balanced lighting. " +
			"You could try enhancing contrast or applying a stylistic filter.",
		"transform_options": []string{
			"Convert to watercolor style",
			"Increase brightness and contrast",
			"Crop to a square format",
		},
	})
}

type authRequest struct {
	Email string `json:"email"`
}

type authResponse struct {
	UserID   string          `json:"user_id"`
	UserType models.UserType `json:"user_type"`
	NewUser  bool            `json:"new_user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		http.Error(w, "email required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	if profile, err := s.profiles.Get(email); err == nil {
		profile.LastActive = now
		s.profiles.Save(profile)
		writeJSON(w, http.StatusOK, authResponse{
			UserID:   email,
			UserType: profile.UserType,
			NewUser:  false,
		})
		return
	}

	profile := &models.UserProfile{
		UserID:      email,
		Email:       email,
		UserType:    models.UserTypeHome,
		CreatedAt:   now,
		LastActive:  now,
		Sessions:    []string{},
		Preferences: map[string]string{},
		DailyQuota:  5,
	}
	s.profiles.Save(profile)
	s.metrics.RecordNewUser(models.UserTypeHome)
	s.log.Info("new user created", "user", email)
	writeJSON(w, http.StatusOK, authResponse{
		UserID:   email,
		UserType: models.UserTypeHome,
		NewUser:  true,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		SessionID string `json:"session_id"`
		*models.Session
	}{SessionID: id, Session: sess})
}

// decodeChatRequest reads the body applying the default image count for
// absent fields.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chat.Request, bool) {
	req := chat.Request{NumImages: chat.DefaultNumImages}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return chat.Request{}, false
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return chat.Request{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
