package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/crypto"
	"github.com/nostrcore/corenostr/pool"
	"github.com/nostrcore/corenostr/relayconn"
	"github.com/nostrcore/corenostr/signer"
	"github.com/stretchr/testify/require"
)

func waitConnected(t *testing.T, c *relayconn.Conn) {
	t.Helper()
	deadline := time.After(time.Second)
	for c.State() != relayconn.Connected {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for connection")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPublishSignsUnsignedEventAndAggregatesAccept(t *testing.T) {
	pub, sec, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	ks, err := signer.NewKeySigner(sec)
	require.NoError(t, err)

	sock := relayconn.NewFakeSocket()
	p := pool.New(pool.WithConnOptions(relayconn.WithFakeDialer(sock)))
	ctx := context.Background()
	conn := p.Add(ctx, "wss://relay.one", true)
	waitConnected(t, conn)

	publisher := New(p, WithSigner(ks))
	unsigned := corenostr.Event{Kind: 1, Content: "hello", CreatedAt: 1700000000}

	go func() {
		select {
		case raw := <-sock.Outbound():
			var arr [2]json.RawMessage
			_ = json.Unmarshal(raw, &arr)
			var e corenostr.Event
			_ = json.Unmarshal(arr[1], &e)
			okRaw, _ := json.Marshal([4]interface{}{"OK", e.ID, true, ""})
			sock.Push(string(okRaw))
		case <-time.After(time.Second):
		}
	}()

	outcome, err := publisher.Publish(ctx, unsigned, []string{"wss://relay.one"}, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, pub, outcome.Event.PubKey)

	outcome.Wait()
	require.True(t, outcome.Accepted["wss://relay.one"])
}

func TestPublishRefusesWithoutSignerForUnsignedEvent(t *testing.T) {
	p := pool.New()
	publisher := New(p)
	_, err := publisher.Publish(context.Background(), corenostr.Event{Kind: 1}, []string{"wss://relay.one"}, time.Second)
	require.ErrorIs(t, err, ErrNoSigner)
}

func TestPublishFailsWithNoRelays(t *testing.T) {
	_, sec, _ := crypto.GenerateKeypair()
	ks, _ := signer.NewKeySigner(sec)
	p := pool.New()
	publisher := New(p, WithSigner(ks))
	_, err := publisher.Publish(context.Background(), corenostr.Event{Kind: 1}, nil, time.Second)
	require.ErrorIs(t, err, ErrNoRelaysAvailable)
}
