package cache

import (
	"testing"

	"github.com/nostrcore/corenostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReplaceableReplacementS2 is spec §8 scenario S2.
func TestReplaceableReplacementS2(t *testing.T) {
	c := NewMemCache()

	e1 := corenostr.Event{ID: "e1", Kind: 0, PubKey: "AA", CreatedAt: 100, Content: `{"name":"a"}`}
	e2 := corenostr.Event{ID: "e2", Kind: 0, PubKey: "AA", CreatedAt: 200, Content: `{"name":"b"}`}
	require.NoError(t, c.Store(e1))
	require.NoError(t, c.Store(e2))

	p, ok := c.Profile("AA")
	require.True(t, ok)
	assert.Equal(t, `{"name":"b"}`, p.Content)

	// An older event arriving after does not replace the newer one.
	e3 := corenostr.Event{ID: "e3", Kind: 0, PubKey: "AA", CreatedAt: 150, Content: `{"name":"c"}`}
	require.NoError(t, c.Store(e3))
	p, ok = c.Profile("AA")
	require.True(t, ok)
	assert.Equal(t, `{"name":"b"}`, p.Content)

	// The superseded event is gone from the primary index.
	_, ok = c.Get("e1")
	assert.False(t, ok)
}

// TestAddressableByDTagS3 is spec §8 scenario S3.
func TestAddressableByDTagS3(t *testing.T) {
	c := NewMemCache()

	require.NoError(t, c.Store(corenostr.Event{ID: "x1", Kind: 30023, PubKey: "BB", CreatedAt: 1, Tags: corenostr.Tags{{"d", "x"}}}))
	require.NoError(t, c.Store(corenostr.Event{ID: "y1", Kind: 30023, PubKey: "BB", CreatedAt: 1, Tags: corenostr.Tags{{"d", "y"}}}))
	require.NoError(t, c.Store(corenostr.Event{ID: "x2", Kind: 30023, PubKey: "BB", CreatedAt: 2, Tags: corenostr.Tags{{"d", "x"}}}))

	got := Collect(c.Query(corenostr.Filter{Kinds: []int{30023}, Authors: []string{"BB"}}))
	require.Len(t, got, 2)

	ids := map[string]bool{}
	for _, e := range got {
		ids[e.ID] = true
	}
	assert.True(t, ids["x2"])
	assert.True(t, ids["y1"])
	assert.False(t, ids["x1"])
}

// TestEphemeralNeverStoredProperty4 is spec §8 property 4.
func TestEphemeralNeverStoredProperty4(t *testing.T) {
	c := NewMemCache()
	e := corenostr.Event{ID: "eph1", Kind: 20001, PubKey: "CC", CreatedAt: 1}
	require.NoError(t, c.Store(e))

	got := Collect(c.Query(corenostr.Filter{Kinds: []int{20001}}))
	assert.Empty(t, got)
	_, ok := c.Get("eph1")
	assert.False(t, ok)
}

func TestRegularUpsertByID(t *testing.T) {
	c := NewMemCache()
	e := corenostr.Event{ID: "r1", Kind: 1, PubKey: "DD", CreatedAt: 1, Content: "v1"}
	require.NoError(t, c.Store(e))
	e.Content = "v2"
	require.NoError(t, c.Store(e))

	got, ok := c.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "v2", got.Content)
}

func TestQueryOrderingAndLimit(t *testing.T) {
	c := NewMemCache()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.Store(corenostr.Event{ID: id, Kind: 1, PubKey: "EE", CreatedAt: int64(i)}))
	}
	got := Collect(c.Query(corenostr.Filter{Kinds: []int{1}, Limit: 2}))
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestDeleteCleansDedupIndex(t *testing.T) {
	c := NewMemCache()
	require.NoError(t, c.Store(corenostr.Event{ID: "p1", Kind: 0, PubKey: "FF", CreatedAt: 1}))
	require.NoError(t, c.Delete("p1"))
	_, ok := c.Profile("FF")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := NewMemCache()
	require.NoError(t, c.Store(corenostr.Event{ID: "z1", Kind: 1, CreatedAt: 1}))
	c.Clear()
	_, ok := c.Get("z1")
	assert.False(t, ok)
}
