package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/assessment-finder/internal/query"
)

type session struct {
	submitter *query.Submitter
	lastSeen  time.Time
}

// sessions keeps one submitter per browser, keyed by the session cookie.
type sessions struct {
	mu           sync.Mutex
	items        map[string]*session
	ttl          time.Duration
	newSubmitter func() *query.Submitter
	now          func() time.Time
}

func newSessions(ttl time.Duration, newSubmitter func() *query.Submitter) *sessions {
	return &sessions{
		items:        make(map[string]*session),
		ttl:          ttl,
		newSubmitter: newSubmitter,
		now:          time.Now,
	}
}

// get returns the session for id, creating a fresh one with a new id when id
// is unknown or malformed.
func (s *sessions) get(id string) (string, *query.Submitter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := uuid.Parse(id); err == nil {
		if sess, ok := s.items[id]; ok {
			sess.lastSeen = s.now()
			return id, sess.submitter
		}
	}

	id = uuid.NewString()
	sess := &session{submitter: s.newSubmitter(), lastSeen: s.now()}
	s.items[id] = sess

	return id, sess.submitter
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// sweep drops sessions idle for longer than the ttl. Sessions with a request
// in flight are kept.
func (s *sessions) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.items {
		if sess.lastSeen.After(cutoff) || sess.submitter.State().Loading() {
			continue
		}
		delete(s.items, id)
		removed++
	}

	return removed
}

func (s *sessions) run(ctx context.Context, interval time.Duration, onSweep func(removed, left int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.sweep()
			if onSweep != nil {
				onSweep(removed, s.len())
			}
		}
	}
}
