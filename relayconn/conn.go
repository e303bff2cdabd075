// Package relayconn owns one WebSocket connection per relay URL: the
// connect/reconnect state machine, flap detection, the per-relay send queue,
// OK-future correlation for publishes, resubmission of active subscriptions
// after a reconnect, and the trust-based verification sampler of spec §4.3.
package relayconn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/crypto"
	"github.com/nostrcore/corenostr/relaywire"
	"github.com/nostrcore/corenostr/signer"
)

const (
	maxBackoff   = 60 * time.Second
	flapWindow   = 1 * time.Second
	flapLimit    = 3
	healthyReset = 60 * time.Second
)

// EventKind classifies a value delivered on Conn.StatusEvents() or a
// subscription's channel from Conn.SubscribeEvents().
type EventKind int

const (
	EventReceived EventKind = iota
	EoseReceived
	ClosedReceived
	NoticeReceived
	RelayMisbehavingNotice
	StatusChanged
)

// IncomingEvent is one item surfaced to the subscription manager.
type IncomingEvent struct {
	Kind    EventKind
	SubID   string
	Event   corenostr.Event
	Message string
	State   State
}

// Conn is one WebSocket connection to a relay URL, per spec §4.3.
//
// Incoming activity is demultiplexed, not broadcast: connection-level
// notifications (state transitions, NOTICE, relay-misbehaving reports) go
// to the single channel returned by StatusEvents, while EVENT/EOSE/CLOSED
// frames for a given subscription go only to that subscription's own
// channel from SubscribeEvents. A single shared channel would let Go's
// channel semantics split frames at random among concurrent rangers; a
// registry keyed by subscription id instead guarantees each frame reaches
// exactly the one consumer it belongs to.
type Conn struct {
	url    string
	dial   dialer
	signer signer.Signer

	mu          sync.Mutex
	state       State
	sock        socket
	attempt     int
	flapCount   int
	connectedAt time.Time

	subs    map[string][]corenostr.Filter
	pending map[string]*pendingOK

	sendCh  chan []byte
	stopCh  chan struct{}
	stopped bool

	sampler *Sampler
	stats   *statCounters
	pool    *verifyPool

	statusCh chan IncomingEvent

	subChansMu sync.Mutex
	subChans   map[string]chan IncomingEvent

	rand *rand.Rand
}

// Option configures a Conn at construction.
type Option func(*Conn)

// WithDialer overrides the socket dialer, used by tests to inject a fake
// transport instead of dialing a real network socket.
func WithDialer(d dialer) Option {
	return func(c *Conn) { c.dial = d }
}

// WithSigner attaches a signer capability used to respond to AUTH
// challenges (spec §4.3's "signer available? respond with kind-22242 event").
func WithSigner(s signer.Signer) Option {
	return func(c *Conn) { c.signer = s }
}

// New constructs a Conn for url in the Disconnected state.
func New(url string, opts ...Option) *Conn {
	c := &Conn{
		url:      url,
		dial:     defaultDialer,
		state:    Disconnected,
		subs:     make(map[string][]corenostr.Filter),
		pending:  make(map[string]*pendingOK),
		sendCh:   make(chan []byte, 64),
		stopCh:   make(chan struct{}),
		sampler:  NewSampler(),
		stats:    &statCounters{},
		pool:     newVerifyPool(0),
		statusCh: make(chan IncomingEvent, 64),
		subChans: make(map[string]chan IncomingEvent),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL returns the relay URL this connection was created for.
func (c *Conn) URL() string { return c.url }

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a point-in-time statistics snapshot.
func (c *Conn) Stats() Stats {
	return c.stats.snapshot(c.sampler.Rate())
}

// StatusEvents returns the channel of connection-level notifications for
// this connection: state transitions, NOTICE frames, and relay-misbehaving
// reports. There is exactly one such channel per Conn.
func (c *Conn) StatusEvents() <-chan IncomingEvent { return c.statusCh }

// SubscribeEvents registers (or returns the already-registered) channel
// that EVENT/EOSE/CLOSED frames for subID are routed to. Callers must
// call UnsubscribeEvents once they stop consuming it.
func (c *Conn) SubscribeEvents(subID string) <-chan IncomingEvent {
	c.subChansMu.Lock()
	defer c.subChansMu.Unlock()
	if ch, ok := c.subChans[subID]; ok {
		return ch
	}
	ch := make(chan IncomingEvent, 256)
	c.subChans[subID] = ch
	return ch
}

// UnsubscribeEvents closes and forgets subID's event channel, if any. It is
// safe to call more than once.
func (c *Conn) UnsubscribeEvents(subID string) {
	c.subChansMu.Lock()
	defer c.subChansMu.Unlock()
	ch, ok := c.subChans[subID]
	if !ok {
		return
	}
	delete(c.subChans, subID)
	close(ch)
}

// RecordDedup attributes one incoming event to this connection's unique or
// duplicate counter, per spec §4.5's event-flow step (d). unique is the
// subscription-level dedup result: true if this relay was first to deliver
// the event for that subscription, false if another relay already had.
func (c *Conn) RecordDedup(unique bool) {
	if unique {
		c.stats.incUniqueEvents()
	} else {
		c.stats.incDuplicateEvents()
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emitStatus(IncomingEvent{Kind: StatusChanged, State: s})
}

// emitStatus delivers a connection-level notification, dropping it if the
// status consumer isn't keeping up.
func (c *Conn) emitStatus(e IncomingEvent) {
	select {
	case c.statusCh <- e:
	default:
		c.stats.droppedEventsInc()
	}
}

// emitToSub delivers a subscription-scoped frame to subID's registered
// channel, if any, dropping it otherwise (no current consumer) or if that
// consumer isn't keeping up. The lookup and send happen under the same
// lock UnsubscribeEvents uses to delete+close, so a channel is never sent
// to after it's been closed.
func (c *Conn) emitToSub(subID string, e IncomingEvent) {
	c.subChansMu.Lock()
	defer c.subChansMu.Unlock()
	ch, ok := c.subChans[subID]
	if !ok {
		c.stats.droppedEventsInc()
		return
	}
	select {
	case ch <- e:
	default:
		c.stats.droppedEventsInc()
	}
}

// Start begins the connect/reconnect loop in a background goroutine. It
// returns immediately; observe State()/StatusEvents() for progress.
func (c *Conn) Start(ctx context.Context) {
	go c.runLoop(ctx)
}

// Disconnect tears the connection down permanently: cancels pending OKs with
// RelayClosed semantics, closes the socket, and transitions to Disconnected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	sock := c.sock
	c.mu.Unlock()

	close(c.stopCh)
	if sock != nil {
		sock.Close()
	}
	c.failAllPending(OkDisconnected)
	c.setState(Disconnected)
	c.pool.stop()
}

func (c *Conn) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return
		case <-c.stopCh:
			return
		default:
		}

		c.mu.Lock()
		c.attempt++
		c.mu.Unlock()
		c.stats.incConnectionAttempts()
		c.setState(Connecting)

		sock, err := c.dial(ctx, c.url)
		if err != nil {
			c.setState(Reconnecting)
			if !c.sleepBackoff(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.sock = sock
		c.attempt = 0
		c.connectedAt = time.Now()
		c.stats.setLastConnected(c.connectedAt)
		c.mu.Unlock()
		c.setState(Connected)
		c.resubmitActiveSubs()

		go c.writeLoop(sock)
		c.readLoop(sock)

		flapped := time.Since(c.connectedAt) < flapWindow
		c.failAllPending(OkDisconnected)

		c.mu.Lock()
		if flapped {
			c.flapCount++
		} else if time.Since(c.connectedAt) > healthyReset {
			c.flapCount = 0
		}
		flapping := c.flapCount >= flapLimit
		c.mu.Unlock()

		select {
		case <-c.stopCh:
			return
		default:
		}

		if flapping {
			c.setState(Flapping)
			if !c.sleepFor(ctx, maxBackoff) {
				return
			}
			continue
		}

		c.setState(Reconnecting)
		if !c.sleepBackoff(ctx) {
			return
		}
	}
}

func (c *Conn) sleepBackoff(ctx context.Context) bool {
	c.mu.Lock()
	attempt := c.attempt
	c.mu.Unlock()
	delay := time.Duration(1<<uint(minInt(attempt, 6))) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return c.sleepFor(ctx, delay)
}

func (c *Conn) sleepFor(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (c *Conn) writeLoop(sock socket) {
	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := sock.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			c.stats.incMessagesOut()
			c.stats.addBytesOut(int64(len(msg)))
		case <-c.stopCh:
			return
		}
	}
}

func (c *Conn) readLoop(sock socket) {
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			return
		}
		c.stats.incMessagesIn()
		c.stats.addBytesIn(int64(len(raw)))

		msg, err := relaywire.DecodeRelayMessage(raw)
		if err != nil {
			var merr *relaywire.ErrMalformed
			if errors.As(err, &merr) && merr.Unknown {
				log.Printf("[relayconn] %s: dropping unknown message type: %v", c.url, err)
				continue
			}
			log.Printf("[relayconn] %s: closing on malformed frame: %v", c.url, err)
			sock.Close()
			return
		}
		c.handleMessage(msg)
	}
}

func (c *Conn) handleMessage(msg relaywire.RelayMessage) {
	switch msg.Type {
	case relaywire.TypeEvent:
		c.handleEvent(msg)
	case relaywire.TypeEose:
		c.stats.incEoseCount()
		c.emitToSub(msg.SubID, IncomingEvent{Kind: EoseReceived, SubID: msg.SubID})
	case relaywire.TypeOk:
		c.completePending(msg.EventID, OkOutcome{Success: msg.Success, Message: msg.Message, Reason: OkReceived})
	case relaywire.TypeNotice:
		c.emitStatus(IncomingEvent{Kind: NoticeReceived, Message: msg.Message})
	case relaywire.TypeClosed:
		c.mu.Lock()
		delete(c.subs, msg.SubID)
		c.mu.Unlock()
		c.emitToSub(msg.SubID, IncomingEvent{Kind: ClosedReceived, SubID: msg.SubID, Message: msg.Message})
	case relaywire.TypeAuth:
		c.handleAuthChallenge(msg.Challenge)
	case relaywire.TypeCount:
		// COUNT replies are decoded but not surfaced: no status or
		// subscription channel receives them, and the frame is dropped here.
	}
}

func (c *Conn) handleEvent(msg relaywire.RelayMessage) {
	c.stats.incEventsIn()
	draw := c.rand.Float64()
	if c.sampler.ShouldVerify(draw) {
		c.pool.submit(func() {
			if err := crypto.Verify(msg.Event); err != nil {
				c.sampler.OnFailure()
				c.emitStatus(IncomingEvent{Kind: RelayMisbehavingNotice, Message: fmt.Sprintf("%s: %v", c.url, err)})
				return
			}
			c.sampler.OnSuccess()
			c.stats.incValidatedEvents()
			c.emitToSub(msg.SubID, IncomingEvent{Kind: EventReceived, SubID: msg.SubID, Event: msg.Event})
		})
		return
	}
	c.stats.incNonValidatedEvents()
	c.emitToSub(msg.SubID, IncomingEvent{Kind: EventReceived, SubID: msg.SubID, Event: msg.Event})
}

func (c *Conn) handleAuthChallenge(challenge string) {
	c.setState(Authenticating)
	if c.signer == nil {
		return
	}
	pub, err := c.signer.PubKey()
	if err != nil {
		return
	}
	unsigned := corenostr.Event{
		PubKey:    pub,
		Kind:      22242,
		CreatedAt: time.Now().Unix(),
		Tags: corenostr.Tags{
			{"relay", c.url},
			{"challenge", challenge},
		},
	}
	signed, err := c.signer.Sign(unsigned)
	if err != nil {
		return
	}
	raw, err := relaywire.EncodeAuth(signed)
	if err != nil {
		return
	}
	p := c.registerPending(signed.ID)
	c.send(raw)
	go func() {
		if o := <-p.wait(); o.Reason == OkReceived && o.Success {
			c.setState(Authenticated)
		}
	}()
}

// Publish sends ["EVENT", event] and returns a channel that completes once
// with the correlated OK (or a timeout/disconnect outcome), per spec §4.3's
// publish path.
func (c *Conn) Publish(event corenostr.Event, deadline time.Duration) <-chan OkOutcome {
	p := c.registerPending(event.ID)
	raw, err := relaywire.EncodeEvent(event)
	if err != nil {
		p.complete(OkOutcome{Success: false, Message: err.Error(), Reason: OkCancelled})
		return p.wait()
	}
	c.send(raw)

	if deadline > 0 {
		go func() {
			t := time.NewTimer(deadline)
			defer t.Stop()
			select {
			case <-t.C:
				p.complete(OkOutcome{Reason: OkTimeout})
			case <-p.wait():
			}
		}()
	}
	return p.wait()
}

func (c *Conn) registerPending(eventID string) *pendingOK {
	p := newPendingOK()
	c.mu.Lock()
	c.pending[eventID] = p
	c.mu.Unlock()
	return p
}

func (c *Conn) completePending(eventID string, outcome OkOutcome) {
	c.mu.Lock()
	p, ok := c.pending[eventID]
	if ok {
		delete(c.pending, eventID)
	}
	c.mu.Unlock()
	if ok {
		p.complete(outcome)
	}
}

func (c *Conn) failAllPending(reason OkReason) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingOK)
	c.mu.Unlock()
	for _, p := range pending {
		p.complete(OkOutcome{Reason: reason})
	}
}

// Subscribe sends ["REQ", sub_id, filters...] and records the filters so
// they can be resubmitted after a reconnect.
func (c *Conn) Subscribe(subID string, filters []corenostr.Filter) error {
	c.mu.Lock()
	c.subs[subID] = filters
	n := len(c.subs)
	c.mu.Unlock()
	c.stats.setActiveSubs(n)

	raw, err := relaywire.EncodeReq(subID, filters)
	if err != nil {
		return err
	}
	c.send(raw)
	return nil
}

// Unsubscribe sends ["CLOSE", sub_id] and forgets the subscription.
func (c *Conn) Unsubscribe(subID string) error {
	c.mu.Lock()
	delete(c.subs, subID)
	n := len(c.subs)
	c.mu.Unlock()
	c.stats.setActiveSubs(n)

	raw, err := relaywire.EncodeClose(subID)
	if err != nil {
		return err
	}
	c.send(raw)
	return nil
}

func (c *Conn) resubmitActiveSubs() {
	c.mu.Lock()
	subs := make(map[string][]corenostr.Filter, len(c.subs))
	for id, f := range c.subs {
		subs[id] = f
	}
	c.mu.Unlock()

	for id, filters := range subs {
		raw, err := relaywire.EncodeReq(id, filters)
		if err != nil {
			continue
		}
		c.send(raw)
	}
}

func (c *Conn) send(raw []byte) {
	select {
	case c.sendCh <- raw:
	case <-c.stopCh:
	}
}
