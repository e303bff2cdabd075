// Package client provides the top-level facade of spec §2 component 9: a
// plain Go value (no process-global state) that wires the pool, cache,
// subscription manager, publisher, and profile resolver together and
// exposes connect/subscribe/publish as its public surface, plus the
// active signer and "current user" handle.
package client

import (
	"context"
	"errors"
	"time"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/cache"
	"github.com/nostrcore/corenostr/pool"
	"github.com/nostrcore/corenostr/profile"
	"github.com/nostrcore/corenostr/publish"
	"github.com/nostrcore/corenostr/relayconn"
	"github.com/nostrcore/corenostr/signer"
	"github.com/nostrcore/corenostr/subscription"
)

// ErrNoSigner is returned by Me when no signer was configured. Publish with
// an unsigned event and no signer fails with publish.ErrNoSigner instead.
var ErrNoSigner = errors.New("client: no signer configured")

// BlobUploader uploads binary content to a blossom-style media host and
// returns its retrievable URL, per the supplemented media-upload surface.
// Implementations are expected to sign the upload authorization event via
// the same Signer a Client holds; the interface itself stays transport and
// auth-scheme agnostic.
type BlobUploader interface {
	Upload(ctx context.Context, blob []byte, mimeType string) (url string, err error)
}

// Client is the facade over every other package: a Pool of relay
// connections, a Cache of known events, a subscription Manager, a
// Publisher, and a profile Resolver, plus the active Signer.
type Client struct {
	opts Options

	pool    *pool.Pool
	cache   cache.Cache
	subs    *subscription.Manager
	pub     *publish.Publisher
	profile *profile.Resolver
	signer  signer.Signer
}

// New constructs a Client from Options, connecting to every configured
// default relay in the background.
func New(ctx context.Context, opts Options) *Client {
	c := cache.NewMemCache()

	var poolOpts []pool.Option
	if opts.Signer != nil {
		poolOpts = append(poolOpts, pool.WithSigner(opts.Signer))
	}
	p := pool.New(poolOpts...)

	subs := subscription.New(p, c)
	res := profile.New(c, subs)

	var pubOpts []publish.Option
	if opts.Signer != nil {
		pubOpts = append(pubOpts, publish.WithSigner(opts.Signer))
	}
	pub := publish.New(p, pubOpts...)

	cl := &Client{
		opts:    opts,
		pool:    p,
		cache:   c,
		subs:    subs,
		pub:     pub,
		profile: res,
		signer:  opts.Signer,
	}

	for _, url := range opts.OutboxDiscoveryRelays {
		p.Add(ctx, url, true)
	}
	for _, url := range opts.DefaultRelays {
		p.Add(ctx, url, true)
	}

	return cl
}

// Pool exposes the underlying relay pool for direct relay management.
func (c *Client) Pool() *pool.Pool { return c.pool }

// Cache exposes the underlying event cache.
func (c *Client) Cache() cache.Cache { return c.cache }

// Connect adds relay (normalising its URL) and begins connecting.
func (c *Client) Connect(ctx context.Context, relayURL string) *relayconn.Conn {
	return c.pool.Add(ctx, relayURL, true)
}

// Disconnect removes relay from the pool.
func (c *Client) Disconnect(relayURL string) {
	c.pool.Remove(relayURL)
}

// SetSigner replaces the active signer used by Me and for signing
// published events. Relay connections answer AUTH challenges with the
// signer the Client was constructed with; SetSigner does not change that.
func (c *Client) SetSigner(s signer.Signer) {
	c.signer = s
	c.opts.Signer = s
	c.pub = publish.New(c.pool, publish.WithSigner(s))
}

// Me returns the User handle for the active signer's pubkey.
func (c *Client) Me() (*profile.User, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	pub, err := c.signer.PubKey()
	if err != nil {
		return nil, err
	}
	return c.profile.User(pub), nil
}

// User returns the profile/contacts/relay-list handle for pubkey.
func (c *Client) User(pubkey string) *profile.User {
	return c.profile.User(pubkey)
}

// Subscribe opens a subscription for filters, using opts.UseOutbox /
// opts.RelayGoalPerAuthor from Client's Options as defaults when the
// caller's subscription.Options leaves them at the zero value.
func (c *Client) Subscribe(ctx context.Context, filters []corenostr.Filter, subOpts subscription.Options) *subscription.Subscription {
	if !subOpts.UseOutbox && c.opts.UseOutbox {
		subOpts.UseOutbox = c.opts.UseOutbox
	}
	if subOpts.RelayGoalPerAuthor == 0 {
		subOpts.RelayGoalPerAuthor = c.opts.RelayGoalPerAuthor
	}
	if len(subOpts.OutboxDiscoveryRelays) == 0 {
		subOpts.OutboxDiscoveryRelays = c.opts.OutboxDiscoveryRelays
	}
	return c.subs.Subscribe(ctx, filters, subOpts, c.profile)
}

// Publish signs (if needed) and sends event to relays, defaulting to every
// connected pool relay when relays is empty.
func (c *Client) Publish(ctx context.Context, event corenostr.Event, relays []string) (*publish.Outcome, error) {
	return c.pub.Publish(ctx, event, relays, c.opts.PublishDeadline)
}

// Fetch is a one-shot convenience over Subscribe: it collects every event
// delivered before EOSE (or ctx is done) and closes the subscription.
func (c *Client) Fetch(ctx context.Context, filters []corenostr.Filter, subOpts subscription.Options) []corenostr.Event {
	sub := c.Subscribe(ctx, filters, subOpts)
	defer sub.Close()

	var out []corenostr.Event
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		case <-sub.Eosed():
			return drainNonBlocking(sub.Events(), out)
		case <-ctx.Done():
			return out
		case <-time.After(c.opts.PublishDeadline):
			return out
		}
	}
}

func drainNonBlocking(ch <-chan corenostr.Event, out []corenostr.Event) []corenostr.Event {
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}
