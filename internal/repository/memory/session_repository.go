package memory

import (
	"time"

	"rag-lab-ui/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps panel sessions in memory with a sliding TTL.
type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository purges expired sessions every ttl/6 (at least once a
// minute). onEvicted may be nil.
func NewSessionRepository(ttl time.Duration, onEvicted func(id string)) *SessionRepository {
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	c := cache.New(ttl, cleanup)
	if onEvicted != nil {
		c.OnEvicted(func(id string, _ interface{}) {
			onEvicted(id)
		})
	}
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the session and pushes its expiry back.
func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		session := x.(*store.Session)
		r.cache.Set(sessionID, session, cache.DefaultExpiration)
		return session, true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
