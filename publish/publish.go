// Package publish implements the publisher of spec §4.6: auto-signing,
// per-relay OK correlation, outcome aggregation, and the first-accept-
// returns-Ok policy with continued background collection to the deadline.
package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/pool"
	"github.com/nostrcore/corenostr/relayconn"
	"github.com/nostrcore/corenostr/signer"
)

// DefaultDeadline is the publish call's aggregate deadline if none is given.
const DefaultDeadline = 10 * time.Second

// Sentinel errors per spec §7's Publish taxonomy.
var (
	ErrNoSigner        = errors.New("publish: no signer available")
	ErrNoRelaysAvailable = errors.New("publish: no relays available")
)

// Outcome aggregates per-relay publish results.
type Outcome struct {
	Event     corenostr.Event
	Accepted  map[string]bool
	Rejected  map[string]string
	TimedOut  map[string]bool

	mu   sync.Mutex
	done chan struct{}
}

// Wait blocks until every relay has resolved or the aggregate deadline
// passes, then returns the final Outcome.
func (o *Outcome) Wait() *Outcome {
	<-o.done
	return o
}

func newOutcome(e corenostr.Event) *Outcome {
	return &Outcome{
		Event:    e,
		Accepted: make(map[string]bool),
		Rejected: make(map[string]string),
		TimedOut: make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Publisher sends events to relays and correlates their OK responses.
type Publisher struct {
	pool   *pool.Pool
	signer signer.Signer
}

// Option configures a Publisher at construction.
type Option func(*Publisher)

// WithSigner sets the signer used to auto-sign unsigned events.
func WithSigner(s signer.Signer) Option {
	return func(p *Publisher) { p.signer = s }
}

// New constructs a Publisher backed by the given pool.
func New(p *pool.Pool, opts ...Option) *Publisher {
	pub := &Publisher{pool: p}
	for _, o := range opts {
		o(pub)
	}
	return pub
}

// Publish sends event to relays (or every connected pool relay if relays is
// empty), auto-signing via the active signer if event.Sig is absent.
// Publish returns as soon as at least one relay accepts, but the returned
// Outcome continues to accumulate results until deadline; callers that want
// the full picture call Outcome.Wait.
func (p *Publisher) Publish(ctx context.Context, event corenostr.Event, relays []string, deadline time.Duration) (*Outcome, error) {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	if event.Sig == "" {
		if p.signer == nil {
			return nil, ErrNoSigner
		}
		signed, err := p.signer.Sign(event)
		if err != nil {
			return nil, err
		}
		event = signed
	}

	targets := relays
	if len(targets) == 0 {
		targets = p.pool.ConnectedRelays().Get()
	}
	if len(targets) == 0 {
		return nil, ErrNoRelaysAvailable
	}

	outcome := newOutcome(event)
	firstAccept := make(chan struct{})
	var firstAcceptOnce sync.Once

	var wg sync.WaitGroup
	for _, url := range targets {
		conn, ok := p.pool.Get(url)
		if !ok {
			conn = p.pool.Add(ctx, url, true)
		}
		wg.Add(1)
		go func(url string, conn *relayconn.Conn) {
			defer wg.Done()
			result := <-conn.Publish(event, deadline)
			outcome.mu.Lock()
			switch {
			case result.Reason == relayconn.OkReceived && result.Success:
				outcome.Accepted[url] = true
			case result.Reason == relayconn.OkReceived:
				outcome.Rejected[url] = result.Message
			case result.Reason == relayconn.OkTimeout:
				outcome.TimedOut[url] = true
			default:
				outcome.Rejected[url] = "disconnected"
			}
			outcome.mu.Unlock()

			if result.Success {
				firstAcceptOnce.Do(func() { close(firstAccept) })
			}
		}(url, conn)
	}

	go func() {
		wg.Wait()
		close(outcome.done)
	}()

	select {
	case <-firstAccept:
	case <-outcome.done:
	case <-time.After(deadline):
	case <-ctx.Done():
	}

	return outcome, nil
}
