package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"essay-coach-be/internal/entity"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// ConversationListCache memoizes conversation listings per user. Entries are
// versioned: Invalidate moves a user to a new version, so a listing computed
// before a write can never be stored under the version read after it.
type ConversationListCache interface {
	Version(ctx context.Context, userID uuid.UUID) uint64
	Get(ctx context.Context, userID uuid.UUID, version uint64, page, size int) (*entity.ConversationPage, bool)
	Set(ctx context.Context, userID uuid.UUID, version uint64, page, size int, value *entity.ConversationPage)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

func entryKey(userID uuid.UUID, version uint64, page, size int) string {
	return fmt.Sprintf("conversations:%s:%d:%d:%d", userID, version, page, size)
}

type MemoryListCache struct {
	entries *gocache.Cache

	mu       sync.Mutex
	versions map[uuid.UUID]uint64
}

func NewMemoryListCache(ttl time.Duration) *MemoryListCache {
	return &MemoryListCache{
		entries:  gocache.New(ttl, 2*ttl),
		versions: make(map[uuid.UUID]uint64),
	}
}

func (c *MemoryListCache) Version(_ context.Context, userID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[userID]
}

func (c *MemoryListCache) Get(_ context.Context, userID uuid.UUID, version uint64, page, size int) (*entity.ConversationPage, bool) {
	x, found := c.entries.Get(entryKey(userID, version, page, size))
	if !found {
		return nil, false
	}
	stored := x.(entity.ConversationPage)
	return &stored, true
}

func (c *MemoryListCache) Set(_ context.Context, userID uuid.UUID, version uint64, page, size int, value *entity.ConversationPage) {
	if value == nil {
		return
	}
	c.entries.Set(entryKey(userID, version, page, size), *value, gocache.DefaultExpiration)
}

func (c *MemoryListCache) Invalidate(_ context.Context, userID uuid.UUID) {
	c.mu.Lock()
	old := c.versions[userID]
	c.versions[userID] = old + 1
	c.mu.Unlock()

	prefix := fmt.Sprintf("conversations:%s:%d:", userID, old)
	for key := range c.entries.Items() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.entries.Delete(key)
		}
	}
}
