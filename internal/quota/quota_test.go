package quota

import (
	"testing"
	"time"

	"github.com/deckoviz/vizzy-backend/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCheckAndResetOnNewDay(t *testing.T) {
	g := NewGate(5, 100)
	sess := &models.Session{ImageCount: 5, QuotaResetDate: "2026-08-28"}

	g.CheckAndReset(sess, day("2026-08-29"))

	if sess.ImageCount != 0 {
		t.Fatalf("image count not reset, got %d", sess.ImageCount)
	}
	if sess.QuotaResetDate != "2026-08-29" {
		t.Fatalf("reset date not updated, got %s", sess.QuotaResetDate)
	}
}

func TestCheckAndResetIdempotentSameDay(t *testing.T) {
	g := NewGate(5, 100)
	sess := &models.Session{ImageCount: 3, QuotaResetDate: "2026-08-29"}

	g.CheckAndReset(sess, day("2026-08-29"))
	g.CheckAndReset(sess, day("2026-08-29"))

	if sess.ImageCount != 3 {
		t.Fatalf("mid-day reset occurred, count %d", sess.ImageCount)
	}
}

func TestClampExhaustedQuota(t *testing.T) {
	g := NewGate(5, 100)
	sess := &models.Session{ImageCount: 5}

	if got := g.Clamp(sess, models.UserTypeHome, 4); got != 0 {
		t.Fatalf("exhausted quota should clamp to 0, got %d", got)
	}
}

func TestClampCapsAtTierLimit(t *testing.T) {
	g := NewGate(5, 100)
	sess := &models.Session{ImageCount: 0}

	if got := g.Clamp(sess, models.UserTypeHome, 10); got != 5 {
		t.Fatalf("expected clamp to tier limit 5, got %d", got)
	}
	if got := g.Clamp(sess, models.UserTypeEnterprise, 10); got != 10 {
		t.Fatalf("enterprise request under limit should pass through, got %d", got)
	}
}

func TestClampDoesNotSubtractConsumed(t *testing.T) {
	// The per-request cap ignores already-consumed count; only the binary
	// exceeded gate stops generation.
	g := NewGate(5, 100)
	sess := &models.Session{ImageCount: 4}

	if got := g.Clamp(sess, models.UserTypeHome, 4); got != 4 {
		t.Fatalf("expected request-size clamp of 4, got %d", got)
	}
}

func TestChargeByActualOutput(t *testing.T) {
	g := NewGate(5, 100)
	sess := &models.Session{ImageCount: 1}

	g.Charge(sess, 3)

	if sess.ImageCount != 4 {
		t.Fatalf("expected count 4 after charge, got %d", sess.ImageCount)
	}
}

func TestLimitPerTier(t *testing.T) {
	g := NewGate(5, 100)
	if g.Limit(models.UserTypeHome) != 5 {
		t.Error("home limit should be 5")
	}
	if g.Limit(models.UserTypeEnterprise) != 100 {
		t.Error("enterprise limit should be 100")
	}
}
