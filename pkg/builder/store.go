package builder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/stepflow/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// Store keeps sessions in memory with a capacity limit and idle expiry.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewStore(maxSessions int, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		metrics:     m,
		logger:      logger.With("module", "builder_store"),
		now:         time.Now,
	}
}

// Add registers sess, evicting the least recently used session when full.
func (s *Store) Add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		var (
			oldestID   string
			oldestTime time.Time
		)

		for id, candidate := range s.sessions {
			if oldestID == "" || candidate.lastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = candidate.lastAccess
			}
		}

		delete(s.sessions, oldestID)
		s.logger.Info("evicted session", "session_id", oldestID)
	}

	sess.lastAccess = s.now()
	s.sessions[sess.ID] = sess
	s.metrics.SetSessions(len(s.sessions))
}

// Get returns a session and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	sess.lastAccess = s.now()

	return sess, true
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.metrics.SetSessions(len(s.sessions))

	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the ttl and returns how many
// were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0

	for id, sess := range s.sessions {
		if sess.lastAccess.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}

	s.metrics.SetSessions(len(s.sessions))

	if removed > 0 {
		s.logger.Info("expired sessions removed", "count", removed)
	}

	return removed
}

// StartCleanup runs Cleanup on a cron schedule such as "@every 1m" and
// returns a function that stops it.
func (s *Store) StartCleanup(schedule string) (func(), error) {
	c := cron.New()

	if _, err := c.AddFunc(schedule, func() { s.Cleanup() }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	c.Start()

	return func() {
		<-c.Stop().Done()
	}, nil
}
