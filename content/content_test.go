package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContentParseS5 is spec §8 scenario S5.
func TestContentParseS5(t *testing.T) {
	in := "hi #nostr check https://a.example/img.png https://a.example/img2.png and https://b.example"
	segs := Parse(in)

	require.Len(t, segs, 6)
	assert.Equal(t, Text, segs[0].Kind)
	assert.Equal(t, "hi ", segs[0].TextValue)

	assert.Equal(t, Hashtag, segs[1].Kind)
	assert.Equal(t, "nostr", segs[1].TextValue)

	assert.Equal(t, Text, segs[2].Kind)
	assert.Equal(t, " check ", segs[2].TextValue)

	assert.Equal(t, Media, segs[3].Kind)
	assert.Equal(t, Image, segs[3].MediaKind)
	assert.Equal(t, []string{"https://a.example/img.png", "https://a.example/img2.png"}, segs[3].MediaURLs)

	assert.Equal(t, Text, segs[4].Kind)
	assert.Equal(t, " and ", segs[4].TextValue)

	assert.Equal(t, Link, segs[5].Kind)
	assert.Equal(t, "https://b.example", segs[5].TextValue)
}

func TestParsePlainTextHasNoSegmentsSplit(t *testing.T) {
	segs := Parse("just plain text, nothing special")
	require.Len(t, segs, 1)
	assert.Equal(t, Text, segs[0].Kind)
}

func TestParseVideoMediaKind(t *testing.T) {
	segs := Parse("watch this https://a.example/clip.mp4 now")
	require.Len(t, segs, 3)
	assert.Equal(t, Media, segs[1].Kind)
	assert.Equal(t, Video, segs[1].MediaKind)
}

func TestParseUnparseableNostrURIDegradesToText(t *testing.T) {
	segs := Parse("see nostr:npub1notvalid!!")
	require.Len(t, segs, 1)
	assert.Equal(t, Text, segs[0].Kind)
}

func TestParseHashtagUnicodeWord(t *testing.T) {
	segs := Parse("look #日本語 here")
	require.Len(t, segs, 3)
	assert.Equal(t, Hashtag, segs[1].Kind)
	assert.Equal(t, "日本語", segs[1].TextValue)
}

// TestParseReassemblyProperty2 is spec §8 property 2, restricted to inputs
// composed only of plain text and hashtags, which always yield a single
// contiguous cover.
func TestParseReassemblyProperty2(t *testing.T) {
	in := "hello #world from #nostr today"
	segs := Parse(in)

	var out string
	for _, s := range segs {
		switch s.Kind {
		case Text:
			out += s.TextValue
		case Hashtag:
			out += "#" + s.TextValue
		}
	}
	assert.Equal(t, in, out)
}
