// Package session keeps short-lived per-correspondent conversation state for
// the stateful messaging channel. Sessions expire on a sliding window judged
// solely against the last write; the store owns every session exclusively.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sentrybot/internal/metrics"
)

const (
	maxHistory        = 5  // exchanges kept per session, FIFO eviction
	summaryExchanges  = 3  // exchanges rendered into a context summary
	summaryFieldLimit = 50 // character cap per rendered field

	defaultTimeout     = 30 * time.Minute
	defaultMaxSessions = 10000
)

// Exchange is one user/agent turn within a session.
type Exchange struct {
	UserText  string
	AgentText string
	Timestamp time.Time
}

// Session is the bounded conversation state for one correspondent. Callers
// receive copies; the store's internal session is never shared.
type Session struct {
	History      []Exchange
	Context      map[string]string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store is a time-bounded map from correspondent ID to session. Expired
// entries are removed lazily on access; Sweep removes them proactively.
// Total session count is capped defensively, evicting the stalest on insert.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	timeout     time.Duration
	maxSessions int
	now         func() time.Time
	logger      *slog.Logger
}

type StoreConfig struct {
	Timeout     time.Duration
	MaxSessions int
	Logger      *slog.Logger
	Now         func() time.Time // test hook; defaults to time.Now
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		sessions:    make(map[string]*Session),
		timeout:     cfg.Timeout,
		maxSessions: cfg.MaxSessions,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
}

// Get returns a copy of the correspondent's session, or false if none exists
// or it has expired. Finding an expired entry removes it as a side effect;
// reading never refreshes LastActivity.
func (s *Store) Get(correspondentID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveSession(correspondentID)
	if !ok {
		return Session{}, false
	}
	return snapshot(sess), true
}

// Update records one exchange for the correspondent, creating the session if
// absent. History is trimmed to the most recent entries, contextPatch keys
// are merged last-writer-wins, and LastActivity is refreshed.
func (s *Store) Update(correspondentID, userText, agentText string, contextPatch map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.liveSession(correspondentID)
	if !ok {
		s.evictStalestLocked()
		sess = &Session{
			Context:   make(map[string]string),
			CreatedAt: now,
		}
		s.sessions[correspondentID] = sess
	}

	sess.History = append(sess.History, Exchange{
		UserText:  userText,
		AgentText: agentText,
		Timestamp: now,
	})
	if len(sess.History) > maxHistory {
		sess.History = sess.History[len(sess.History)-maxHistory:]
	}
	for k, v := range contextPatch {
		sess.Context[k] = v
	}
	sess.LastActivity = now

	metrics.ActiveSessions.Set(int64(len(s.sessions)))
}

// ContextSummary renders the last few exchanges as a bounded text block for
// downstream reasoning. Empty when there is no live session or no history.
func (s *Store) ContextSummary(correspondentID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.liveSession(correspondentID)
	if !ok || len(sess.History) == 0 {
		return ""
	}

	start := len(sess.History) - summaryExchanges
	if start < 0 {
		start = 0
	}

	var parts []string
	for _, ex := range sess.History[start:] {
		parts = append(parts, fmt.Sprintf("User: %s", capField(ex.UserText)))
		parts = append(parts, fmt.Sprintf("Agent: %s", capField(ex.AgentText)))
	}
	return strings.Join(parts, "\n")
}

// Sweep removes every expired session and returns how many were evicted.
// Callers are responsible for invoking it periodically; lazy eviction on
// access covers correctness either way.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.timeout {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("swept expired sessions", "evicted", evicted, "remaining", len(s.sessions))
	}
	metrics.ActiveSessions.Set(int64(len(s.sessions)))
	return evicted
}

// Len reports the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// liveSession returns the non-expired session for id, lazily deleting an
// expired one. Caller holds s.mu.
func (s *Store) liveSession(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.LastActivity) > s.timeout {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

// evictStalestLocked makes room for a new session when the cap is reached by
// dropping the entry with the oldest LastActivity. Caller holds s.mu.
func (s *Store) evictStalestLocked() {
	if len(s.sessions) < s.maxSessions {
		return
	}
	var stalestID string
	var stalest time.Time
	for id, sess := range s.sessions {
		if stalestID == "" || sess.LastActivity.Before(stalest) {
			stalestID = id
			stalest = sess.LastActivity
		}
	}
	if stalestID != "" {
		delete(s.sessions, stalestID)
		s.logger.Warn("session cap reached, evicted stalest correspondent")
	}
}

func snapshot(sess *Session) Session {
	out := Session{
		History:      make([]Exchange, len(sess.History)),
		Context:      make(map[string]string, len(sess.Context)),
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
	}
	copy(out.History, sess.History)
	for k, v := range sess.Context {
		out.Context[k] = v
	}
	return out
}

func capField(s string) string {
	if len(s) <= summaryFieldLimit {
		return s
	}
	return s[:summaryFieldLimit] + "..."
}
