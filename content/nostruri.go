package content

import "github.com/nostrcore/corenostr/crypto"

// parseNostrURI decodes the bech32 payload of a nostr: URI into a Mention
// or EventRef segment. Unparseable URIs return ok=false so the caller can
// degrade the match to plain Text, per spec §4.7.
func parseNostrURI(uri, bech string) (Segment, bool) {
	switch {
	case hasPrefix(bech, "npub1"):
		pub, err := crypto.DecodeNpub(bech)
		if err != nil {
			return Segment{}, false
		}
		return Segment{Kind: Mention, URI: uri, PubKey: pub}, true

	case hasPrefix(bech, "nprofile1"):
		p, err := crypto.DecodeNprofile(bech)
		if err != nil {
			return Segment{}, false
		}
		return Segment{Kind: Mention, URI: uri, PubKey: p.PubKey, Relays: p.Relays}, true

	case hasPrefix(bech, "note1"):
		id, err := crypto.DecodeNote(bech)
		if err != nil {
			return Segment{}, false
		}
		return Segment{Kind: EventRef, URI: uri, ID: id, EvKind: -1}, true

	case hasPrefix(bech, "nevent1"):
		p, err := crypto.DecodeNevent(bech)
		if err != nil {
			return Segment{}, false
		}
		evKind := -1
		if p.EventKind != 0 {
			evKind = p.EventKind
		}
		return Segment{Kind: EventRef, URI: uri, ID: p.ID, PubKey: p.PubKey, EvKind: evKind, Relays: p.Relays}, true

	case hasPrefix(bech, "naddr1"):
		p, err := crypto.DecodeNaddr(bech)
		if err != nil {
			return Segment{}, false
		}
		evKind := -1
		if p.EventKind != 0 {
			evKind = p.EventKind
		}
		return Segment{Kind: EventRef, URI: uri, ID: p.Identifier, PubKey: p.PubKey, EvKind: evKind, Relays: p.Relays}, true

	default:
		return Segment{}, false
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
