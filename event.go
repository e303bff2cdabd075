// Package corenostr holds the canonical Nostr data model shared by every
// subpackage of the engine: events, tags, filters, and the kind-class rules
// that decide how an event is stored and deduplicated.
package corenostr

import "fmt"

// Tag is a single Nostr tag: a name followed by zero or more values.
type Tag []string

// Name returns the tag's name (first element), or "" if the tag is empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's first value (second element), or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is an ordered sequence of tag entries.
type Tags []Tag

// First returns the first tag with the given name, and whether one exists.
func (t Tags) First(name string) (Tag, bool) {
	for _, tag := range t {
		if tag.Name() == name {
			return tag, true
		}
	}
	return nil, false
}

// Event is a canonical Nostr event as described in spec §3.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig,omitempty"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	tags := make(Tags, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = append(Tag{}, t...)
	}
	e.Tags = tags
	return e
}

// DTag returns the first value of the event's first "d" tag, or "" if absent.
// Used to compute the dedup key of addressable events.
func (e Event) DTag() string {
	if tag, ok := e.Tags.First("d"); ok {
		return tag.Value()
	}
	return ""
}

// KindClass classifies a kind's storage/dedup behavior, per spec §3.
type KindClass int

const (
	// KindRegular events are stored and deduplicated by id.
	KindRegular KindClass = iota
	// KindReplaceable events are superseded by a later event of the same
	// kind from the same author.
	KindReplaceable
	// KindEphemeral events are never cached.
	KindEphemeral
	// KindAddressable events are replaceable per (kind, pubkey, d-tag).
	KindAddressable
)

// ClassifyKind returns the storage class of a kind per spec §3's ranges.
func ClassifyKind(kind int) KindClass {
	switch {
	case kind == 0 || kind == 3 || (kind >= 10000 && kind < 20000):
		return KindReplaceable
	case kind >= 20000 && kind < 30000:
		return KindEphemeral
	case kind >= 30000 && kind < 40000:
		return KindAddressable
	default:
		return KindRegular
	}
}

// DedupKey returns the cache deduplication key for the event, per spec §3:
// "{kind}:{pubkey}" for replaceable, "{kind}:{pubkey}:{d}" for addressable,
// and the event id for regular events.
func (e Event) DedupKey() string {
	switch ClassifyKind(e.Kind) {
	case KindReplaceable:
		return fmt.Sprintf("%d:%s", e.Kind, e.PubKey)
	case KindAddressable:
		return fmt.Sprintf("%d:%s:%s", e.Kind, e.PubKey, e.DTag())
	default:
		return e.ID
	}
}

// ProfileDedupKey returns the dedup key for a user's kind-0 profile event.
func ProfileDedupKey(pubkey string) string { return fmt.Sprintf("0:%s", pubkey) }

// ContactsDedupKey returns the dedup key for a user's kind-3 contacts event.
func ContactsDedupKey(pubkey string) string { return fmt.Sprintf("3:%s", pubkey) }

// RelayListDedupKey returns the dedup key for a user's kind-10002 relay list.
func RelayListDedupKey(pubkey string) string { return fmt.Sprintf("10002:%s", pubkey) }
