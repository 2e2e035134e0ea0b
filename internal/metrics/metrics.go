package metrics

import (
	"sync"
	"time"

	"github.com/deckoviz/vizzy-backend/internal/models"
)

// Registry accumulates basic telemetry counters served by /metrics.
type Registry struct {
	mu sync.Mutex

	chatCount           int64
	imageCount          int64
	imageAPIFailures    int64
	totalChatTime       float64
	homeUserCount       int64
	enterpriseUserCount int64
	latencyBuckets      map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		latencyBuckets: map[string]int64{
			"<1s":   0,
			"1-3s":  0,
			"3-10s": 0,
			">10s":  0,
		},
	}
}

// RecordChatStart counts an inbound chat request.
func (r *Registry) RecordChatStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatCount++
}

// RecordChatDone accumulates the handling time, its latency bucket and the
// user tier of a completed chat request.
func (r *Registry) RecordChatDone(elapsed time.Duration, userType models.UserType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seconds := elapsed.Seconds()
	r.totalChatTime += seconds
	switch {
	case seconds < 1:
		r.latencyBuckets["<1s"]++
	case seconds < 3:
		r.latencyBuckets["1-3s"]++
	case seconds < 10:
		r.latencyBuckets["3-10s"]++
	default:
		r.latencyBuckets[">10s"]++
	}

	if userType == models.UserTypeEnterprise {
		r.enterpriseUserCount++
	} else {
		r.homeUserCount++
	}
}

// RecordImages counts images actually returned to users.
func (r *Registry) RecordImages(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imageCount += int64(n)
}

// RecordImageAPIFailure counts a full provider-chain exhaustion.
func (r *Registry) RecordImageAPIFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imageAPIFailures++
}

// RecordNewUser counts a freshly registered profile.
func (r *Registry) RecordNewUser(userType models.UserType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userType == models.UserTypeEnterprise {
		r.enterpriseUserCount++
	} else {
		r.homeUserCount++
	}
}

// Snapshot returns a copy of all counters for serialization.
func (r *Registry) Snapshot() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	buckets := make(map[string]int64, len(r.latencyBuckets))
	for k, v := range r.latencyBuckets {
		buckets[k] = v
	}
	return map[string]any{
		"chat_count":            r.chatCount,
		"image_count":           r.imageCount,
		"image_api_failures":    r.imageAPIFailures,
		"total_chat_time":       r.totalChatTime,
		"home_user_count":       r.homeUserCount,
		"enterprise_user_count": r.enterpriseUserCount,
		"latency_buckets":       buckets,
	}
}

// ImageAPIFailures reports the current fallback counter.
func (r *Registry) ImageAPIFailures() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.imageAPIFailures
}
