package fieldcache

import (
	"sync"
	"time"
)

// SessionsName labels the open-session gauge in metrics.
const SessionsName = "otherfields_sessions"

// Sessions hands out one Cache per editing session, so a lookup stays stable
// while a condition dialog is open and a new dialog sees the current fields.
// A session is dropped after ttl without use, and the least recently used
// session is evicted once max sessions are open.
type Sessions struct {
	lister   Lister
	observer Observer
	ttl      time.Duration
	max      int
	now      func() time.Time

	mu   sync.Mutex
	open map[string]*session
}

type session struct {
	cache *Cache
	seen  time.Time
}

// NewSessions creates an empty session table. observer may be nil; max <= 0
// means no limit.
func NewSessions(lister Lister, observer Observer, ttl time.Duration, max int) *Sessions {
	return &Sessions{
		lister:   lister,
		observer: observer,
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		open:     make(map[string]*session),
	}
}

// For returns the cache of session id, opening it if needed.
func (s *Sessions) For(id string) *Cache {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire(now)
	defer s.report()
	if sess, ok := s.open[id]; ok {
		sess.seen = now
		return sess.cache
	}
	if s.max > 0 && len(s.open) >= s.max {
		s.evictOldest()
	}
	var obs Observer
	if s.observer != nil {
		obs = entryEvents{s.observer}
	}
	sess := &session{cache: New(s.lister, obs), seen: now}
	s.open[id] = sess
	return sess.cache
}

// End drops session id. Unknown ids are ignored.
func (s *Sessions) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.open[id]; ok {
		s.drop(id, sess)
		s.report()
	}
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

func (s *Sessions) expire(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.open {
		if now.Sub(sess.seen) > s.ttl {
			s.drop(id, sess)
		}
	}
}

func (s *Sessions) evictOldest() {
	var oldest string
	var at time.Time
	for id, sess := range s.open {
		if oldest == "" || sess.seen.Before(at) {
			oldest, at = id, sess.seen
		}
	}
	s.drop(oldest, s.open[oldest])
}

// drop closes a session. Callers still holding its cache stop getting
// memoized results, including loads already in flight.
func (s *Sessions) drop(id string, sess *session) {
	delete(s.open, id)
	sess.cache.Invalidate()
}

func (s *Sessions) report() {
	if s.observer != nil {
		s.observer.CacheSize(SessionsName, len(s.open))
	}
}

// entryEvents forwards hits and misses but not per-session sizes; the
// gauge tracks open sessions instead.
type entryEvents struct {
	Observer
}

func (entryEvents) CacheSize(string, int) {}
