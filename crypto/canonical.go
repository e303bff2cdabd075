package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/nostrcore/corenostr"
)

// escapeString JSON-escapes a string per RFC 8259 the way the NIP-01
// canonical form requires: quote, backslash, and the common control
// characters get their short escapes, other control characters get \u00xx,
// and everything else (including non-ASCII UTF-8) passes through verbatim.
// encoding/json is not used here because it HTML-escapes '<', '>', '&' by
// default and that would change the hashed byte string.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u`)
				const hexdigits = "0123456789abcdef"
				b.WriteByte(hexdigits[(r>>12)&0xf])
				b.WriteByte(hexdigits[(r>>8)&0xf])
				b.WriteByte(hexdigits[(r>>4)&0xf])
				b.WriteByte(hexdigits[r&0xf])
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func quoted(s string) string {
	return `"` + escapeString(s) + `"`
}

func serializeTags(tags corenostr.Tags) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, tag := range tags {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		for j, v := range tag {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoted(v))
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// SerializeCanonical returns the canonical serialization of an event's
// signable fields: [0,"<pubkey>",<created_at>,<kind>,<tags>,"<content>"],
// with minimal JSON (no insignificant whitespace), per spec §4.1.
func SerializeCanonical(e corenostr.Event) []byte {
	var b strings.Builder
	b.WriteString("[0,")
	b.WriteString(quoted(e.PubKey))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(e.CreatedAt, 10))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(e.Kind))
	b.WriteByte(',')
	b.WriteString(serializeTags(e.Tags))
	b.WriteByte(',')
	b.WriteString(quoted(e.Content))
	b.WriteByte(']')
	return []byte(b.String())
}

// ComputeID returns the 32-byte SHA-256 digest of the event's canonical
// serialization, per spec §4.1.
func ComputeID(e corenostr.Event) [32]byte {
	return sha256.Sum256(SerializeCanonical(e))
}

// ComputeIDHex returns ComputeID as lowercase hex.
func ComputeIDHex(e corenostr.Event) string {
	id := ComputeID(e)
	return hex.EncodeToString(id[:])
}
