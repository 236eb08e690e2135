package bot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"wakeroute/internal/itinerary"
	"wakeroute/internal/types"
)

// session pairs one conversation's itinerary store with its last activity
// timestamp.
type session struct {
	store    *itinerary.Store
	lastSeen time.Time
}

// Registry owns the mapping from conversation identity to itinerary handle.
// Handles are created on first use and removed after the idle timeout; the
// planning core itself never sees more than one handle at a time.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	idle     time.Duration
	clock    types.Clock
	logger   *slog.Logger
}

// NewRegistry creates a Registry that expires sessions after idle.
func NewRegistry(idle time.Duration, clock types.Clock, logger *slog.Logger) *Registry {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*session),
		idle:     idle,
		clock:    clock,
		logger:   logger,
	}
}

// Store returns the itinerary store for a session, creating it on first use
// and refreshing its idle deadline.
func (r *Registry) Store(sessionID string) *itinerary.Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{store: itinerary.NewStore()}
		r.sessions[sessionID] = s
	}
	s.lastSeen = r.clock.Now()
	return s.store
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle beyond the timeout and returns how many were
// dropped. Unsummarized segments in a swept session are discarded; itineraries
// are session-scoped by design and never outlive the conversation.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper schedules a periodic Sweep and returns the running scheduler;
// the caller stops it on shutdown.
func (r *Registry) StartSweeper(interval time.Duration) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).Do(func() {
		if removed := r.Sweep(); removed > 0 {
			r.logger.Info("swept idle sessions", "removed", removed, "remaining", r.Len())
		}
	})
	if err != nil {
		r.logger.Error("failed to schedule session sweeper", "error", err)
		return scheduler
	}
	scheduler.StartAsync()
	return scheduler
}
