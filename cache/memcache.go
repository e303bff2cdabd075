package cache

import (
	"sort"
	"sync"

	"github.com/nostrcore/corenostr"
)

// MemCache is the in-memory reference Cache implementation described in
// spec §4.2: two index maps (dedup key -> id for replaceable/addressable
// kinds, and the primary id -> event), guarded by a single RWMutex whose
// critical sections stay short so long-running queries don't block
// writers — the same discipline as the teacher's RelayInfoCache
// (internal/relay/cache.go), generalised from relay-info entries to events.
type MemCache struct {
	mu         sync.RWMutex
	byID       map[string]corenostr.Event
	dedupToID  map[string]string
	idToDedup  map[string]string // reverse index, for cleanup on Delete
}

// NewMemCache creates an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{
		byID:      make(map[string]corenostr.Event),
		dedupToID: make(map[string]string),
		idToDedup: make(map[string]string),
	}
}

// Store implements Cache.Store.
func (c *MemCache) Store(e corenostr.Event) error {
	switch corenostr.ClassifyKind(e.Kind) {
	case corenostr.KindEphemeral:
		return nil
	case corenostr.KindReplaceable, corenostr.KindAddressable:
		return c.storeReplaceable(e)
	default:
		return c.storeRegular(e)
	}
}

func (c *MemCache) storeReplaceable(e corenostr.Event) error {
	key := e.DedupKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existingID, ok := c.dedupToID[key]; ok {
		existing := c.byID[existingID]
		if e.CreatedAt <= existing.CreatedAt {
			// Not strictly newer: ties keep the first observed entry.
			return nil
		}
		delete(c.byID, existingID)
		delete(c.idToDedup, existingID)
	}

	c.byID[e.ID] = e
	c.dedupToID[key] = e.ID
	c.idToDedup[e.ID] = key
	return nil
}

func (c *MemCache) storeRegular(e corenostr.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[e.ID] = e
	return nil
}

// Query implements Cache.Query: it snapshots matching events under a short
// read lock, then streams them (sorted created_at descending, truncated by
// limit) over the returned channel without holding the lock.
func (c *MemCache) Query(filter corenostr.Filter) <-chan corenostr.Event {
	c.mu.RLock()
	matches := make([]corenostr.Event, 0)
	for _, e := range c.byID {
		if filter.Matches(e) {
			matches = append(matches, e)
		}
	}
	c.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt != matches[j].CreatedAt {
			return matches[i].CreatedAt > matches[j].CreatedAt
		}
		return matches[i].ID > matches[j].ID
	})
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}

	out := make(chan corenostr.Event, len(matches))
	for _, e := range matches {
		out <- e
	}
	close(out)
	return out
}

// Get implements Cache.Get.
func (c *MemCache) Get(id string) (corenostr.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	return e, ok
}

// Delete implements Cache.Delete.
func (c *MemCache) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id]; !ok {
		return ErrNotFound
	}
	delete(c.byID, id)
	if key, ok := c.idToDedup[id]; ok {
		delete(c.idToDedup, id)
		if c.dedupToID[key] == id {
			delete(c.dedupToID, key)
		}
	}
	return nil
}

// Clear implements Cache.Clear.
func (c *MemCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]corenostr.Event)
	c.dedupToID = make(map[string]string)
	c.idToDedup = make(map[string]string)
}

func (c *MemCache) byDedupKey(key string) (corenostr.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.dedupToID[key]
	if !ok {
		return corenostr.Event{}, false
	}
	e, ok := c.byID[id]
	return e, ok
}

// Profile implements Cache.Profile.
func (c *MemCache) Profile(pubkey string) (corenostr.Event, bool) {
	return c.byDedupKey(corenostr.ProfileDedupKey(pubkey))
}

// Contacts implements Cache.Contacts.
func (c *MemCache) Contacts(pubkey string) (corenostr.Event, bool) {
	return c.byDedupKey(corenostr.ContactsDedupKey(pubkey))
}

// RelayList implements Cache.RelayList.
func (c *MemCache) RelayList(pubkey string) (corenostr.Event, bool) {
	return c.byDedupKey(corenostr.RelayListDedupKey(pubkey))
}

var _ Cache = (*MemCache)(nil)
