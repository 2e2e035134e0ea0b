package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deckoviz/vizzy-backend/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionStoreGetOrCreate(t *testing.T) {
	s := NewSessionStore(filepath.Join(t.TempDir(), "sessions.json"), testLogger())

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sess, isNew := s.GetOrCreate("abc", now)
	if !isNew {
		t.Fatal("first reference should create the session")
	}
	if sess.QuotaResetDate != "2026-03-14" {
		t.Errorf("quota reset date = %q", sess.QuotaResetDate)
	}
	if sess.Messages == nil {
		t.Error("messages must start as an empty slice, not nil")
	}

	again, isNew := s.GetOrCreate("abc", now.Add(time.Hour))
	if isNew {
		t.Fatal("second reference must not report new")
	}
	if again != sess {
		t.Error("expected the same session instance")
	}
	if s.Len() != 1 {
		t.Errorf("store holds %d sessions, want 1", s.Len())
	}
}

func TestSessionStoreGetUnknown(t *testing.T) {
	s := NewSessionStore(filepath.Join(t.TempDir(), "sessions.json"), testLogger())
	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStoreSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	log := testLogger()

	s := NewSessionStore(path, log)
	sess, _ := s.GetOrCreate("persisted", time.Now())
	sess.ImageCount = 3
	sess.Messages = append(sess.Messages, models.ChatMessage{Role: "user", Content: "hi"})
	sess.Themes = []string{"creative"}
	s.Save(sess)

	reloaded := NewSessionStore(path, log)
	got, err := reloaded.Get("persisted")
	if err != nil {
		t.Fatalf("session lost across restart: %v", err)
	}
	if got.ImageCount != 3 {
		t.Errorf("image count = %d, want 3", got.ImageCount)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("messages not restored: %+v", got.Messages)
	}
}

func TestSessionStoreCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSessionStore(path, testLogger())
	if s.Len() != 0 {
		t.Fatalf("corrupt snapshot should start empty, got %d sessions", s.Len())
	}
}

func TestProfileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	log := testLogger()

	p := NewProfileStore(path, log)
	if _, err := p.Get("nobody@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p.Save(&models.UserProfile{
		UserID:     "user@example.com",
		Email:      "user@example.com",
		UserType:   models.UserTypeEnterprise,
		CreatedAt:  time.Now(),
		DailyQuota: 100,
	})

	reloaded := NewProfileStore(path, log)
	got, err := reloaded.Get("user@example.com")
	if err != nil {
		t.Fatalf("profile lost across restart: %v", err)
	}
	if got.UserType != models.UserTypeEnterprise {
		t.Errorf("user type = %s", got.UserType)
	}
	if got.DailyQuota != 100 {
		t.Errorf("daily quota = %d", got.DailyQuota)
	}
}
