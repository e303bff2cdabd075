package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURLDefaultsSchemeLowercasesAndStripsSlash(t *testing.T) {
	assert.Equal(t, "wss://relay.example.com", NormalizeURL("Relay.Example.COM/"))
	assert.Equal(t, "wss://relay.example.com", NormalizeURL("wss://relay.example.com"))
	assert.Equal(t, "wss://relay.example.com", NormalizeURL("wss://relay.example.com/"))
}

// TestURLNormalisationS4 is spec §8 scenario S4.
func TestURLNormalisationS4(t *testing.T) {
	p := New()
	ctx := context.Background()

	c1 := p.Add(ctx, "Relay.Example.COM/", false)
	c2 := p.Add(ctx, "wss://relay.example.com", false)
	c3, ok := p.Get("wss://relay.example.com/")

	assert.True(t, ok)
	assert.Same(t, c1, c2)
	assert.Same(t, c2, c3)
	assert.Len(t, p.AvailableRelays().Get(), 1)
}

func TestAddIsIdempotent(t *testing.T) {
	p := New()
	ctx := context.Background()
	c1 := p.Add(ctx, "wss://relay.one", false)
	c2 := p.Add(ctx, "wss://relay.one", false)
	assert.Same(t, c1, c2)
	assert.Len(t, p.All(), 1)
}

func TestRemoveDeletesRelay(t *testing.T) {
	p := New()
	ctx := context.Background()
	p.Add(ctx, "wss://relay.one", false)
	p.Remove("wss://relay.one")
	_, ok := p.Get("wss://relay.one")
	assert.False(t, ok)
	assert.Empty(t, p.AvailableRelays().Get())
}
