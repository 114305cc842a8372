package memory

import (
	"time"

	"podcast-studio-be/internal/composer"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps open composer sessions in memory. A session that is
// not touched for ttl is evicted and closed.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*composer.Session); ok {
			s.Close()
		}
	})
	return &SessionRepository{cache: c, ttl: ttl}
}

func (r *SessionRepository) Save(session *composer.Session) {
	r.cache.Set(session.Id, session, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (r *SessionRepository) Get(sessionID string) (*composer.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*composer.Session)
	r.cache.Set(sessionID, s, cache.DefaultExpiration)
	return s, true
}

// Delete removes the session; the eviction hook closes it.
func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) CountByUser(userID string) int {
	n := 0
	for _, item := range r.cache.Items() {
		if s, ok := item.Object.(*composer.Session); ok && s.UserId == userID {
			n++
		}
	}
	return n
}
