package profile

import (
	"testing"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/cache"
	"github.com/nostrcore/corenostr/pool"
	"github.com/nostrcore/corenostr/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSeedsFromCache(t *testing.T) {
	c := cache.NewMemCache()
	require.NoError(t, c.Store(corenostr.Event{ID: "p1", Kind: 0, PubKey: "AA", CreatedAt: 1, Content: `{"name":"alice","display_name":"Alice"}`}))

	r := New(c, subscription.New(pool.New(), c))
	u := r.User("AA")
	assert.Equal(t, "Alice", u.Profile().Get().BestName("AA"))
}

func TestBestNameFallsBackToHexPrefix(t *testing.T) {
	info := Info{}
	assert.Equal(t, "deadbeef", info.BestName("deadbeefcafe"))
}

func TestParseContactsExtractsPTags(t *testing.T) {
	e := corenostr.Event{Kind: 3, Tags: corenostr.Tags{
		{"p", "AA"},
		{"p", "BB"},
		{"e", "ignored"},
	}}
	got := parseContacts(e)
	assert.Equal(t, []string{"AA", "BB"}, got)
}

func TestParseRelayListMarkers(t *testing.T) {
	e := corenostr.Event{Kind: 10002, Tags: corenostr.Tags{
		{"r", "wss://read.example.com", "read"},
		{"r", "wss://write.example.com", "write"},
		{"r", "wss://both.example.com"},
	}}
	got := parseRelayList(e)
	require.Len(t, got, 3)
	assert.True(t, got[0].Read)
	assert.False(t, got[0].Write)
	assert.True(t, got[1].Write)
	assert.False(t, got[1].Read)
	assert.True(t, got[2].Read && got[2].Write)
}

func TestWriteRelaysFiltersToWriteMarked(t *testing.T) {
	c := cache.NewMemCache()
	require.NoError(t, c.Store(corenostr.Event{ID: "rl1", Kind: 10002, PubKey: "AA", CreatedAt: 1, Tags: corenostr.Tags{
		{"r", "wss://one.example.com", "write"},
		{"r", "wss://two.example.com", "read"},
	}}))
	r := New(c, subscription.New(pool.New(), c))
	relays, ok := r.WriteRelays("AA")
	require.True(t, ok)
	assert.Equal(t, []string{"wss://one.example.com"}, relays)
}

func TestWriteRelaysReportsMissing(t *testing.T) {
	c := cache.NewMemCache()
	r := New(c, subscription.New(pool.New(), c))
	_, ok := r.WriteRelays("unknown")
	assert.False(t, ok)
}
