package memory

import (
	"time"

	"essay-coach-be/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps one live Session per user.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.UserID.String(), session, cache.DefaultExpiration)
}

// Get returns the user's Session and slides its expiry forward, so only
// idle Sessions age out.
func (r *SessionRepository) Get(userID uuid.UUID) (*store.Session, bool) {
	x, found := r.cache.Get(userID.String())
	if !found {
		return nil, false
	}
	session := x.(*store.Session)
	r.cache.Set(userID.String(), session, cache.DefaultExpiration)
	return session, true
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) Delete(userID uuid.UUID) {
	r.cache.Delete(userID.String())
}
