package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32 identifiers per spec §4.1 and §6: npub/nsec/note are HRP + 32-byte
// payload; nprofile/nevent/naddr are HRP + TLV. TLV types: 0 = identifier
// bytes or UTF-8 string, 1 = relay URL, 2 = author pubkey, 3 = kind
// (big-endian 32-bit).
const (
	tlvSpecial = 0
	tlvRelay   = 1
	tlvAuthor  = 2
	tlvKind    = 3
)

func encodeSimple(hrp string, payload []byte) (string, error) {
	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("crypto: bech32 convert: %w", err)
	}
	return bech32.Encode(hrp, data)
}

func decodeSimple(hrp, s string) ([]byte, error) {
	gotHRP, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if gotHRP != hrp {
		return nil, fmt.Errorf("%w: expected hrp %q, got %q", ErrMalformed, hrp, gotHRP)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return payload, nil
}

// EncodeNpub encodes a 32-byte hex public key as npub1....
func EncodeNpub(pubkeyHex string) (string, error) {
	b, err := decodeHexFixed(pubkeyHex, 32)
	if err != nil {
		return "", err
	}
	return encodeSimple("npub", b)
}

// DecodeNpub decodes an npub1... string to a 32-byte hex public key.
func DecodeNpub(npub string) (string, error) {
	b, err := decodeSimple("npub", npub)
	if err != nil {
		return "", err
	}
	if len(b) != 32 {
		return "", fmt.Errorf("%w: npub payload must be 32 bytes", ErrMalformed)
	}
	return hex.EncodeToString(b), nil
}

// EncodeNsec encodes a 32-byte hex secret key as nsec1....
func EncodeNsec(seckeyHex string) (string, error) {
	b, err := decodeHexFixed(seckeyHex, 32)
	if err != nil {
		return "", err
	}
	return encodeSimple("nsec", b)
}

// DecodeNsec decodes an nsec1... string to a 32-byte hex secret key.
func DecodeNsec(nsec string) (string, error) {
	b, err := decodeSimple("nsec", nsec)
	if err != nil {
		return "", err
	}
	if len(b) != 32 {
		return "", fmt.Errorf("%w: nsec payload must be 32 bytes", ErrMalformed)
	}
	return hex.EncodeToString(b), nil
}

// EncodeNote encodes a 32-byte hex event id as note1....
func EncodeNote(idHex string) (string, error) {
	b, err := decodeHexFixed(idHex, 32)
	if err != nil {
		return "", err
	}
	return encodeSimple("note", b)
}

// DecodeNote decodes a note1... string to a 32-byte hex event id.
func DecodeNote(note string) (string, error) {
	b, err := decodeSimple("note", note)
	if err != nil {
		return "", err
	}
	if len(b) != 32 {
		return "", fmt.Errorf("%w: note payload must be 32 bytes", ErrMalformed)
	}
	return hex.EncodeToString(b), nil
}

// Pointer identifies a profile, event, or addressable-event reference
// decoded from nprofile/nevent/naddr, or constructed for encoding one.
type Pointer struct {
	Kind       string // "nprofile", "nevent", "naddr"
	PubKey     string // hex, nprofile/nevent/naddr author
	ID         string // hex, nevent only
	Identifier string // naddr's "d" tag value
	EventKind  int    // naddr/nevent optional kind
	Relays     []string
}

func appendTLV(buf []byte, typ byte, data []byte) []byte {
	buf = append(buf, typ, byte(len(data)))
	return append(buf, data...)
}

// EncodeNprofile encodes a pubkey and optional relay hints as nprofile1....
func EncodeNprofile(p Pointer) (string, error) {
	pub, err := decodeHexFixed(p.PubKey, 32)
	if err != nil {
		return "", err
	}
	var buf []byte
	buf = appendTLV(buf, tlvSpecial, pub)
	for _, r := range p.Relays {
		buf = appendTLV(buf, tlvRelay, []byte(r))
	}
	return encodeSimple("nprofile", buf)
}

// EncodeNevent encodes an event id with optional relay hints, author, and
// kind as nevent1....
func EncodeNevent(p Pointer) (string, error) {
	id, err := decodeHexFixed(p.ID, 32)
	if err != nil {
		return "", err
	}
	var buf []byte
	buf = appendTLV(buf, tlvSpecial, id)
	for _, r := range p.Relays {
		buf = appendTLV(buf, tlvRelay, []byte(r))
	}
	if p.PubKey != "" {
		pub, err := decodeHexFixed(p.PubKey, 32)
		if err != nil {
			return "", err
		}
		buf = appendTLV(buf, tlvAuthor, pub)
	}
	if p.EventKind != 0 {
		kindBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(kindBytes, uint32(p.EventKind))
		buf = appendTLV(buf, tlvKind, kindBytes)
	}
	return encodeSimple("nevent", buf)
}

// EncodeNaddr encodes a (kind, pubkey, d-identifier) addressable pointer
// with optional relay hints as naddr1....
func EncodeNaddr(p Pointer) (string, error) {
	pub, err := decodeHexFixed(p.PubKey, 32)
	if err != nil {
		return "", err
	}
	var buf []byte
	buf = appendTLV(buf, tlvSpecial, []byte(p.Identifier))
	for _, r := range p.Relays {
		buf = appendTLV(buf, tlvRelay, []byte(r))
	}
	buf = appendTLV(buf, tlvAuthor, pub)
	kindBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(kindBytes, uint32(p.EventKind))
	buf = appendTLV(buf, tlvKind, kindBytes)
	return encodeSimple("naddr", buf)
}

func parseTLV(hrp, s string) (Pointer, error) {
	raw, err := decodeSimple(hrp, s)
	if err != nil {
		return Pointer{}, err
	}
	p := Pointer{Kind: hrp}
	i := 0
	for i+2 <= len(raw) {
		typ := raw[i]
		length := int(raw[i+1])
		i += 2
		if i+length > len(raw) {
			return Pointer{}, fmt.Errorf("%w: truncated TLV", ErrMalformed)
		}
		val := raw[i : i+length]
		i += length

		switch typ {
		case tlvSpecial:
			if hrp == "naddr" {
				p.Identifier = string(val)
			} else if len(val) == 32 {
				if hrp == "nprofile" {
					p.PubKey = hex.EncodeToString(val)
				} else {
					p.ID = hex.EncodeToString(val)
				}
			}
		case tlvRelay:
			p.Relays = append(p.Relays, string(val))
		case tlvAuthor:
			if len(val) == 32 {
				p.PubKey = hex.EncodeToString(val)
			}
		case tlvKind:
			if len(val) == 4 {
				p.EventKind = int(binary.BigEndian.Uint32(val))
			}
		}
	}
	return p, nil
}

// DecodeNprofile decodes an nprofile1... string.
func DecodeNprofile(s string) (Pointer, error) { return parseTLV("nprofile", s) }

// DecodeNevent decodes an nevent1... string.
func DecodeNevent(s string) (Pointer, error) { return parseTLV("nevent", s) }

// DecodeNaddr decodes an naddr1... string.
func DecodeNaddr(s string) (Pointer, error) { return parseTLV("naddr", s) }

// NormalizePubKey accepts either a 64-char hex public key or an npub1...
// string and returns hex, per spec §6's "accepts either hex or bech32"
// boundary rule.
func NormalizePubKey(s string) (string, error) {
	if len(s) == 64 {
		if _, err := decodeHexFixed(s, 32); err == nil {
			return s, nil
		}
	}
	return DecodeNpub(s)
}

// NormalizeEventID accepts either a 64-char hex id or a note1... string
// and returns hex.
func NormalizeEventID(s string) (string, error) {
	if len(s) == 64 {
		if _, err := decodeHexFixed(s, 32); err == nil {
			return s, nil
		}
	}
	return DecodeNote(s)
}
