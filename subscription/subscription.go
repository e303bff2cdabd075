// Package subscription implements the subscription manager of spec §4.5:
// relay selection (explicit set, outbox model, connected/available
// fallback), dedup-by-id event flow, EOSE aggregation, cache priming, and
// idempotent close.
package subscription

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/cache"
	"github.com/nostrcore/corenostr/pool"
	"github.com/nostrcore/corenostr/relayconn"
)

// DefaultRelayGoalPerAuthor is the default number of write relays consulted
// per author in the outbox model, per spec §4.5.
const DefaultRelayGoalPerAuthor = 2

// State is a subscription's lifecycle state.
type State int

const (
	Active State = iota
	Eosed
	Closed
)

// RelayListLookup resolves an author's kind-10002 relay list, e.g.
// profile.RelayList. Kept as an interface here (rather than importing the
// profile package directly) to avoid a dependency cycle: profile itself is
// built on subscription.
type RelayListLookup interface {
	WriteRelays(pubkey string) ([]string, bool)
	EnqueueFetch(pubkey string)
}

// Options configures one Subscribe call.
type Options struct {
	// Relays overrides relay selection with an explicit set.
	Relays []string
	// UseOutbox enables the outbox model for author-constrained filters.
	UseOutbox bool
	// RelayGoalPerAuthor overrides DefaultRelayGoalPerAuthor.
	RelayGoalPerAuthor int
	// OutboxDiscoveryRelays lists the small relay set for kind-10002
	// relay-list discovery. Subscribe does not read it: a missing relay
	// list is fetched through RelayListLookup.EnqueueFetch, which chooses
	// its own relays.
	OutboxDiscoveryRelays []string
}

// Subscription is a logical query across one or more relays.
type Subscription struct {
	ID      string
	Filters []corenostr.Filter

	mu          sync.Mutex
	state       State
	relays      map[string]bool
	eosedRelays map[string]bool
	seen        map[string]bool
	dropped     int64

	events chan corenostr.Event
	eose   chan struct{}
	eoseOnce sync.Once

	manager *Manager
}

// Events returns the subscription's deduplicated event stream.
func (s *Subscription) Events() <-chan corenostr.Event { return s.events }

// Eosed returns a channel that closes once every relay has reached EOSE or
// a terminal state for this subscription.
func (s *Subscription) Eosed() <-chan struct{} { return s.eose }

// State returns the subscription's current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close is idempotent: it sends CLOSE to every still-active relay, marks
// the subscription closed, and completes the event stream.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.state = Closed
	relays := make([]string, 0, len(s.relays))
	for url := range s.relays {
		relays = append(relays, url)
	}
	s.mu.Unlock()

	for _, url := range relays {
		if conn, ok := s.manager.pool.Get(url); ok {
			conn.Unsubscribe(s.ID)
			conn.UnsubscribeEvents(s.ID)
		}
	}
	s.manager.forget(s.ID)
	close(s.events)
}

func (s *Subscription) markRelayDone(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eosedRelays[url] {
		return
	}
	s.eosedRelays[url] = true
	if len(s.eosedRelays) >= len(s.relays) && s.state == Active {
		s.state = Eosed
		s.eoseOnce.Do(func() { close(s.eose) })
	}
}

func (s *Subscription) deliver(e corenostr.Event, fromRelay string) bool {
	s.mu.Lock()
	if s.seen[e.ID] {
		s.mu.Unlock()
		return false
	}
	s.seen[e.ID] = true
	s.mu.Unlock()

	select {
	case s.events <- e:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
	return true
}

// Manager creates and tracks subscriptions across a relay pool.
type Manager struct {
	pool  *pool.Pool
	cache cache.Cache

	mu   sync.Mutex
	subs map[string]*Subscription
}

// New constructs a Manager backed by the given pool and cache.
func New(p *pool.Pool, c cache.Cache) *Manager {
	return &Manager{pool: p, cache: c, subs: make(map[string]*Subscription)}
}

// Subscribe creates a subscription, primes it from the cache, selects
// relays per spec §4.5, and fans out REQ.
func (m *Manager) Subscribe(ctx context.Context, filters []corenostr.Filter, opts Options, lookup RelayListLookup) *Subscription {
	id := newSubID()
	relays := m.selectRelays(filters, opts, lookup)

	sub := &Subscription{
		ID:          id,
		Filters:     filters,
		relays:      make(map[string]bool, len(relays)),
		eosedRelays: make(map[string]bool),
		seen:        make(map[string]bool),
		events:      make(chan corenostr.Event, 256),
		eose:        make(chan struct{}),
		manager:     m,
	}
	for _, url := range relays {
		sub.relays[url] = true
	}

	m.mu.Lock()
	m.subs[id] = sub
	m.mu.Unlock()

	m.primeFromCache(sub, filters)

	if len(relays) == 0 {
		sub.eoseOnce.Do(func() { close(sub.eose) })
		return sub
	}

	for _, url := range relays {
		conn, ok := m.pool.Get(url)
		if !ok {
			sub.markRelayDone(url)
			continue
		}
		conn.Subscribe(id, filters)
		ch := conn.SubscribeEvents(id)
		go m.pump(sub, url, conn, ch)
	}
	return sub
}

func (m *Manager) primeFromCache(sub *Subscription, filters []corenostr.Filter) {
	if m.cache == nil {
		return
	}
	for _, f := range filters {
		for e := range m.cache.Query(f) {
			sub.deliver(e, "cache")
		}
	}
}

func (m *Manager) pump(sub *Subscription, url string, conn *relayconn.Conn, ch <-chan relayconn.IncomingEvent) {
	defer conn.UnsubscribeEvents(sub.ID)
	for ev := range ch {
		if sub.State() == Closed {
			return
		}
		switch ev.Kind {
		case relayconn.EventReceived:
			unique := sub.deliver(ev.Event, url)
			conn.RecordDedup(unique)
			if unique && m.cache != nil {
				m.cache.Store(ev.Event)
			}
		case relayconn.EoseReceived:
			sub.markRelayDone(url)
		case relayconn.ClosedReceived:
			sub.markRelayDone(url)
			return
		}
	}
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

// selectRelays implements spec §4.5's relay selection algorithm.
func (m *Manager) selectRelays(filters []corenostr.Filter, opts Options, lookup RelayListLookup) []string {
	if len(opts.Relays) > 0 {
		return opts.Relays
	}

	if opts.UseOutbox && corenostr.AnyConstrainsAuthors(filters) && lookup != nil {
		goal := opts.RelayGoalPerAuthor
		if goal <= 0 {
			goal = DefaultRelayGoalPerAuthor
		}
		seen := make(map[string]bool)
		var out []string
		for _, author := range corenostr.UnionAuthors(filters) {
			writeRelays, ok := lookup.WriteRelays(author)
			if !ok {
				lookup.EnqueueFetch(author)
				continue
			}
			n := 0
			for _, r := range writeRelays {
				if n >= goal {
					break
				}
				if !seen[r] {
					seen[r] = true
					out = append(out, r)
				}
				n++
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	connected := m.pool.ConnectedRelays().Get()
	if len(connected) > 0 {
		return connected
	}
	return m.pool.AvailableRelays().Get()
}

func newSubID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
