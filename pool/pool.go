// Package pool owns the set of relay connections for a client, per spec
// §4.4: URL normalisation as the single source of identity, idempotent
// add/remove, temporary relays with idle eviction, and observable
// available/connected relay sets — generalising the teacher's relay.Pool
// (internal/relay/pool.go), which already keeps a map[string]*RelayConn
// under one sync.RWMutex with O(1) critical sections.
package pool

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/relayconn"
	"github.com/nostrcore/corenostr/signer"
)

// EventKind classifies a value delivered on Pool.Events().
type EventKind int

const (
	RelayAdded EventKind = iota
	RelayRemoved
	RelayConnected
	RelayDisconnected
)

// Event is one pool-level notification.
type Event struct {
	Kind EventKind
	URL  string
}

// entry tracks one relay connection plus its temporary-eviction state.
type entry struct {
	conn      *relayconn.Conn
	cancel    context.CancelFunc
	temporary bool
	idleTimer *time.Timer
	idleDur   time.Duration
}

// Pool owns the set of relays a client talks to.
type Pool struct {
	mu      sync.RWMutex
	relays  map[string]*entry
	events  chan Event
	signer  signer.Signer
	dialOpt relayconn.Option

	available  *corenostr.Observable[[]string]
	connected  *corenostr.Observable[[]string]
	connOpts   []relayconn.Option
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithSigner attaches a signer used for AUTH on every relay connection
// the pool creates.
func WithSigner(s signer.Signer) Option {
	return func(p *Pool) { p.signer = s }
}

// WithConnOptions attaches extra relayconn.Options applied to every
// connection the pool creates, e.g. a test dialer.
func WithConnOptions(opts ...relayconn.Option) Option {
	return func(p *Pool) { p.connOpts = append(p.connOpts, opts...) }
}

// New constructs an empty Pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		relays:    make(map[string]*entry),
		events:    make(chan Event, 256),
		available: corenostr.NewObservable([]string{}),
		connected: corenostr.NewObservable([]string{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Events returns the channel of pool-level notifications.
func (p *Pool) Events() <-chan Event { return p.events }

// AvailableRelays is the observable set of every relay URL in the pool.
func (p *Pool) AvailableRelays() *corenostr.Observable[[]string] { return p.available }

// ConnectedRelays is the observable subset currently in the Connected or
// Authenticated state.
func (p *Pool) ConnectedRelays() *corenostr.Observable[[]string] { return p.connected }

// NormalizeURL lower-cases scheme+host, defaults to wss://, and strips a
// trailing slash, per spec §3's relay identity rule.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "://") {
		s = "wss://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return strings.TrimSuffix(strings.ToLower(s), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Add idempotently adds a relay, connecting it in the background unless
// connect is false.
func (p *Pool) Add(ctx context.Context, rawURL string, connect bool) *relayconn.Conn {
	norm := NormalizeURL(rawURL)

	p.mu.Lock()
	if e, ok := p.relays[norm]; ok {
		p.mu.Unlock()
		return e.conn
	}
	opts := append([]relayconn.Option{}, p.connOpts...)
	if p.signer != nil {
		opts = append(opts, relayconn.WithSigner(p.signer))
	}
	conn := relayconn.New(norm, opts...)
	connCtx, cancel := context.WithCancel(ctx)
	p.relays[norm] = &entry{conn: conn, cancel: cancel}
	p.mu.Unlock()

	p.publishAvailable()
	p.emit(Event{Kind: RelayAdded, URL: norm})

	go p.watchStatus(norm, conn)
	if connect {
		conn.Start(connCtx)
	}
	return conn
}

// Temporary adds a relay that is removed automatically once idle has
// passed since it was added or last passed to Touch. Touch resets the idle
// timer; subscribing or publishing through the relay does not reset it.
func (p *Pool) Temporary(ctx context.Context, rawURL string, idle time.Duration) *relayconn.Conn {
	norm := NormalizeURL(rawURL)
	conn := p.Add(ctx, rawURL, true)

	p.mu.Lock()
	if e, ok := p.relays[norm]; ok {
		e.temporary = true
		e.idleDur = idle
		e.idleTimer = time.AfterFunc(idle, func() { p.Remove(norm) })
	}
	p.mu.Unlock()
	return conn
}

// Touch resets a temporary relay's idle eviction timer.
func (p *Pool) Touch(rawURL string) {
	norm := NormalizeURL(rawURL)
	p.mu.RLock()
	e, ok := p.relays[norm]
	p.mu.RUnlock()
	if !ok || !e.temporary || e.idleTimer == nil {
		return
	}
	e.idleTimer.Reset(e.idleDur)
}

// Remove closes the relay, cancels its pending work, and removes it.
func (p *Pool) Remove(rawURL string) {
	norm := NormalizeURL(rawURL)
	p.mu.Lock()
	e, ok := p.relays[norm]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.relays, norm)
	p.mu.Unlock()

	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.cancel()
	e.conn.Disconnect()
	p.publishAvailable()
	p.emit(Event{Kind: RelayRemoved, URL: norm})
}

// Get returns the relay connection for url, normalising first.
func (p *Pool) Get(rawURL string) (*relayconn.Conn, bool) {
	norm := NormalizeURL(rawURL)
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.relays[norm]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// All returns every relay connection currently in the pool.
func (p *Pool) All() []*relayconn.Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*relayconn.Conn, 0, len(p.relays))
	for _, e := range p.relays {
		out = append(out, e.conn)
	}
	return out
}

func (p *Pool) watchStatus(url string, conn *relayconn.Conn) {
	for ev := range conn.StatusEvents() {
		if ev.Kind != relayconn.StatusChanged {
			continue
		}
		switch ev.State {
		case relayconn.Connected, relayconn.Authenticated:
			p.emit(Event{Kind: RelayConnected, URL: url})
		case relayconn.Disconnected, relayconn.Reconnecting:
			p.emit(Event{Kind: RelayDisconnected, URL: url})
		}
		p.publishConnected()
	}
}

func (p *Pool) publishAvailable() {
	p.mu.RLock()
	urls := make([]string, 0, len(p.relays))
	for u := range p.relays {
		urls = append(urls, u)
	}
	p.mu.RUnlock()
	p.available.Set(urls)
}

func (p *Pool) publishConnected() {
	p.mu.RLock()
	urls := make([]string, 0, len(p.relays))
	for u, e := range p.relays {
		switch e.conn.State() {
		case relayconn.Connected, relayconn.Authenticated:
			urls = append(urls, u)
		}
	}
	p.mu.RUnlock()
	p.connected.Set(urls)
}

func (p *Pool) emit(e Event) {
	select {
	case p.events <- e:
	default:
	}
}
