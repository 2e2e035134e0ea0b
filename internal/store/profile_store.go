package store

import (
	"log/slog"
	"sync"

	"github.com/deckoviz/vizzy-backend/internal/models"
)

// ProfileStore keeps user profiles keyed by normalized email.
type ProfileStore struct {
	mu       sync.Mutex
	path     string
	log      *slog.Logger
	profiles map[string]*models.UserProfile
}

func NewProfileStore(path string, log *slog.Logger) *ProfileStore {
	p := &ProfileStore{
		path:     path,
		log:      log,
		profiles: make(map[string]*models.UserProfile),
	}
	if err := loadSnapshot(path, &p.profiles); err != nil {
		log.Warn("failed to load profiles file", "path", path, "err", err)
		p.profiles = make(map[string]*models.UserProfile)
	} else if len(p.profiles) > 0 {
		log.Info("loaded profiles from disk", "count", len(p.profiles))
	}
	return p
}

// Get returns the profile for email.
func (p *ProfileStore) Get(email string) (*models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[email]
	if !ok {
		return nil, ErrNotFound
	}
	return profile, nil
}

// Save inserts or updates a profile and flushes the snapshot.
func (p *ProfileStore) Save(profile *models.UserProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[profile.UserID] = profile
	if err := writeSnapshot(p.path, p.profiles); err != nil {
		p.log.Warn("failed to write profiles file", "path", p.path, "err", err)
	}
}
