package subscription

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/cache"
	"github.com/nostrcore/corenostr/crypto"
	"github.com/nostrcore/corenostr/pool"
	"github.com/nostrcore/corenostr/relayconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitConnConnected(t *testing.T, conn *relayconn.Conn, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if conn.State() == relayconn.Connected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for relay to connect, have %s", conn.State())
		case <-time.After(time.Millisecond):
		}
	}
}

// TestEventFlowsFromSocketThroughPoolToSubscription drives a signed EVENT
// frame through a FakeSocket and a real Pool/Manager pair end to end,
// exercising the fan-out from Conn to the one subscription it belongs to.
func TestEventFlowsFromSocketThroughPoolToSubscription(t *testing.T) {
	pub, sec, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	signed, err := crypto.Sign(corenostr.Event{PubKey: pub, Kind: 1, Content: "hi", CreatedAt: 1700000000}, sec)
	require.NoError(t, err)

	sock := relayconn.NewFakeSocket()
	p := pool.New(pool.WithConnOptions(relayconn.WithFakeDialer(sock)))
	conn := p.Add(context.Background(), "wss://relay.example.com", true)
	waitConnConnected(t, conn, time.Second)

	m := New(p, cache.NewMemCache())
	sub := m.Subscribe(context.Background(), []corenostr.Filter{{Kinds: []int{1}}}, Options{}, nil)

	raw, err := json.Marshal([3]interface{}{"EVENT", sub.ID, signed})
	require.NoError(t, err)
	sock.Push(string(raw))

	select {
	case e := <-sub.Events():
		assert.Equal(t, signed.ID, e.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event to arrive on subscription")
	}
}

func TestSubscribeWithNoRelaysIsImmediatelyEosed(t *testing.T) {
	m := New(pool.New(), cache.NewMemCache())
	sub := m.Subscribe(context.Background(), []corenostr.Filter{{Kinds: []int{1}}}, Options{}, nil)

	select {
	case <-sub.Eosed():
	case <-time.After(time.Second):
		t.Fatal("expected immediate eose with no relays")
	}
}

func TestSubscribePrimesFromCache(t *testing.T) {
	c := cache.NewMemCache()
	require.NoError(t, c.Store(corenostr.Event{ID: "e1", Kind: 1, CreatedAt: 1}))

	m := New(pool.New(), c)
	sub := m.Subscribe(context.Background(), []corenostr.Filter{{Kinds: []int{1}}}, Options{}, nil)

	select {
	case e := <-sub.Events():
		assert.Equal(t, "e1", e.ID)
	case <-time.After(time.Second):
		t.Fatal("expected cached event to be primed")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := New(pool.New(), cache.NewMemCache())
	sub := m.Subscribe(context.Background(), []corenostr.Filter{{Kinds: []int{1}}}, Options{}, nil)
	sub.Close()
	sub.Close() // must not panic

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestExplicitRelaySetOverridesSelection(t *testing.T) {
	m := New(pool.New(), cache.NewMemCache())
	opts := Options{Relays: []string{"wss://explicit.example.com"}}
	got := m.selectRelays([]corenostr.Filter{{Authors: []string{"AA"}}}, opts, nil)
	assert.Equal(t, []string{"wss://explicit.example.com"}, got)
}

func TestOutboxModelFallsBackWhenNoWriteRelaysFound(t *testing.T) {
	m := New(pool.New(), cache.NewMemCache())
	lookup := &fakeLookup{}
	got := m.selectRelays([]corenostr.Filter{{Authors: []string{"AA"}}}, Options{UseOutbox: true}, lookup)
	assert.Empty(t, got) // no connected/available relays either
	assert.Contains(t, lookup.fetched, "AA")
}

func TestOutboxModelUsesWriteRelays(t *testing.T) {
	m := New(pool.New(), cache.NewMemCache())
	lookup := &fakeLookup{writeRelays: map[string][]string{
		"AA": {"wss://one.example.com", "wss://two.example.com", "wss://three.example.com"},
	}}
	got := m.selectRelays([]corenostr.Filter{{Authors: []string{"AA"}}}, Options{UseOutbox: true}, lookup)
	assert.Len(t, got, DefaultRelayGoalPerAuthor)
}

type fakeLookup struct {
	writeRelays map[string][]string
	fetched     []string
}

func (f *fakeLookup) WriteRelays(pubkey string) ([]string, bool) {
	r, ok := f.writeRelays[pubkey]
	return r, ok
}

func (f *fakeLookup) EnqueueFetch(pubkey string) {
	f.fetched = append(f.fetched, pubkey)
}
