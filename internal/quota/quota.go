package quota

import (
	"time"

	"github.com/deckoviz/vizzy-backend/internal/models"
)

// DateFormat is the calendar-day granularity used for quota resets.
const DateFormat = "2006-01-02"

// Gate enforces the per-session daily image quota. Limits are per user tier;
// the gate itself holds no per-session state, it mutates the session it is
// handed.
type Gate struct {
	homeLimit       int
	enterpriseLimit int
}

func NewGate(homeLimit, enterpriseLimit int) *Gate {
	return &Gate{homeLimit: homeLimit, enterpriseLimit: enterpriseLimit}
}

// Limit returns the daily image limit for the given tier.
func (g *Gate) Limit(t models.UserType) int {
	if t == models.UserTypeEnterprise {
		return g.enterpriseLimit
	}
	return g.homeLimit
}

// CheckAndReset zeroes the session's image counter when a new calendar day
// has arrived. Repeated calls on the same day are no-ops; the counter is
// never reset mid-day.
func (g *Gate) CheckAndReset(s *models.Session, today time.Time) {
	day := today.Format(DateFormat)
	if s.QuotaResetDate != day {
		s.ImageCount = 0
		s.QuotaResetDate = day
	}
}

// Clamp returns how many images this request may ask for. Zero means the
// daily limit is already exhausted and generation must be skipped entirely.
// Otherwise the request is capped at the tier limit; already-consumed images
// are deliberately not subtracted from the per-request size, only the binary
// exceeded gate stops generation.
func (g *Gate) Clamp(s *models.Session, t models.UserType, requested int) int {
	limit := g.Limit(t)
	if s.ImageCount >= limit {
		return 0
	}
	if requested > limit {
		return limit
	}
	return requested
}

// Charge debits the quota by the number of images actually returned.
// Placeholder output charges exactly like real provider output.
func (g *Gate) Charge(s *models.Session, returned int) {
	s.ImageCount += returned
}
