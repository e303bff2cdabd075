// Package relaywire implements the NIP-01 line-oriented JSON message codec:
// encoding client->relay frames and decoding relay->client frames. Incoming
// frames are type-dispatched with a single gjson lookup on the first array
// element before paying for a full encoding/json unmarshal, the same
// shortcut the corpus's underlying nostr libraries take to avoid unmarshalling
// a whole EVENT frame just to read its message type.
package relaywire

import (
	"encoding/json"
	"fmt"

	"github.com/nostrcore/corenostr"
	"github.com/tidwall/gjson"
)

// Type identifies a wire message's first array element.
type Type string

const (
	TypeEvent  Type = "EVENT"
	TypeReq    Type = "REQ"
	TypeClose  Type = "CLOSE"
	TypeAuth   Type = "AUTH"
	TypeCount  Type = "COUNT"
	TypeEose   Type = "EOSE"
	TypeOk     Type = "OK"
	TypeNotice Type = "NOTICE"
	TypeClosed Type = "CLOSED"
)

// ErrMalformed is returned when a frame is not a JSON array, has the wrong
// arity for its declared type, or carries a type that isn't recognised.
// Unknown distinguishes the last case: an otherwise well-formed frame whose
// leading type tag this codec doesn't know, which callers should log and
// drop rather than treat as a protocol error.
type ErrMalformed struct {
	Reason  string
	Unknown bool
}

func (e *ErrMalformed) Error() string { return "relaywire: malformed frame: " + e.Reason }

// ClientMessage is the sum type of frames a client sends to a relay.
type ClientMessage struct {
	Type    Type
	Event   corenostr.Event   // EVENT, AUTH
	SubID   string            // REQ, CLOSE, COUNT
	Filters []corenostr.Filter // REQ, COUNT
}

// EncodeEvent builds a client->relay ["EVENT", event] frame.
func EncodeEvent(e corenostr.Event) ([]byte, error) {
	return json.Marshal([2]interface{}{string(TypeEvent), e})
}

// EncodeAuth builds a client->relay ["AUTH", event] frame.
func EncodeAuth(e corenostr.Event) ([]byte, error) {
	return json.Marshal([2]interface{}{string(TypeAuth), e})
}

// EncodeReq builds a client->relay ["REQ", sub_id, filter, ...] frame.
func EncodeReq(subID string, filters []corenostr.Filter) ([]byte, error) {
	arr := make([]interface{}, 0, len(filters)+2)
	arr = append(arr, string(TypeReq), subID)
	for _, f := range filters {
		arr = append(arr, filterWire(f))
	}
	return json.Marshal(arr)
}

// EncodeCount builds a client->relay ["COUNT", sub_id, filter, ...] frame.
func EncodeCount(subID string, filters []corenostr.Filter) ([]byte, error) {
	arr := make([]interface{}, 0, len(filters)+2)
	arr = append(arr, string(TypeCount), subID)
	for _, f := range filters {
		arr = append(arr, filterWire(f))
	}
	return json.Marshal(arr)
}

// EncodeClose builds a client->relay ["CLOSE", sub_id] frame.
func EncodeClose(subID string) ([]byte, error) {
	return json.Marshal([2]string{string(TypeClose), subID})
}

// filterWire is the JSON-marshalable shape of a Filter, including the
// single-letter tag fields (#e, #p, ...) that corenostr.Filter keeps out of
// its own json tags because they're dynamic keys, not static fields.
func filterWire(f corenostr.Filter) map[string]interface{} {
	m := make(map[string]interface{})
	if len(f.IDs) > 0 {
		m["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	if f.Since != nil {
		m["since"] = *f.Since
	}
	if f.Until != nil {
		m["until"] = *f.Until
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	if f.Search != "" {
		m["search"] = f.Search
	}
	for name, values := range f.Tags {
		m["#"+name] = values
	}
	return m
}

// RelayMessage is the sum type of frames a relay sends to a client.
type RelayMessage struct {
	Type      Type
	SubID     string
	EventID   string // OK
	Event     corenostr.Event
	Success   bool   // OK
	Message   string // OK, NOTICE, CLOSED
	Count     int64  // COUNT
	Challenge string // AUTH
}

// DecodeRelayMessage parses a single relay->client frame. Unknown message
// types return *ErrMalformed with Unknown set so callers can log and drop
// per spec, distinguishing that case from outright invalid JSON or a
// wrong-arity frame, both of which are protocol errors.
func DecodeRelayMessage(raw []byte) (RelayMessage, error) {
	if !gjson.ValidBytes(raw) {
		return RelayMessage{}, &ErrMalformed{Reason: "invalid JSON"}
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return RelayMessage{}, &ErrMalformed{Reason: "not an array"}
	}
	arr := parsed.Array()
	if len(arr) == 0 {
		return RelayMessage{}, &ErrMalformed{Reason: "empty array"}
	}
	typ := Type(arr[0].String())

	switch typ {
	case TypeEvent:
		if len(arr) != 3 {
			return RelayMessage{}, &ErrMalformed{Reason: "EVENT wants 3 elements"}
		}
		var e corenostr.Event
		if err := json.Unmarshal([]byte(arr[2].Raw), &e); err != nil {
			return RelayMessage{}, &ErrMalformed{Reason: "bad event payload: " + err.Error()}
		}
		return RelayMessage{Type: TypeEvent, SubID: arr[1].String(), Event: e}, nil

	case TypeEose:
		if len(arr) != 2 {
			return RelayMessage{}, &ErrMalformed{Reason: "EOSE wants 2 elements"}
		}
		return RelayMessage{Type: TypeEose, SubID: arr[1].String()}, nil

	case TypeOk:
		if len(arr) != 4 {
			return RelayMessage{}, &ErrMalformed{Reason: "OK wants 4 elements"}
		}
		return RelayMessage{
			Type:    TypeOk,
			EventID: arr[1].String(),
			Success: arr[2].Bool(),
			Message: arr[3].String(),
		}, nil

	case TypeNotice:
		if len(arr) != 2 {
			return RelayMessage{}, &ErrMalformed{Reason: "NOTICE wants 2 elements"}
		}
		return RelayMessage{Type: TypeNotice, Message: arr[1].String()}, nil

	case TypeAuth:
		if len(arr) != 2 {
			return RelayMessage{}, &ErrMalformed{Reason: "AUTH wants 2 elements"}
		}
		return RelayMessage{Type: TypeAuth, Challenge: arr[1].String()}, nil

	case TypeClosed:
		if len(arr) != 3 {
			return RelayMessage{}, &ErrMalformed{Reason: "CLOSED wants 3 elements"}
		}
		return RelayMessage{Type: TypeClosed, SubID: arr[1].String(), Message: arr[2].String()}, nil

	case TypeCount:
		if len(arr) != 3 {
			return RelayMessage{}, &ErrMalformed{Reason: "COUNT wants 3 elements"}
		}
		count := gjson.Get(arr[2].Raw, "count")
		return RelayMessage{Type: TypeCount, SubID: arr[1].String(), Count: count.Int()}, nil

	default:
		return RelayMessage{}, &ErrMalformed{Reason: fmt.Sprintf("unknown type %q", typ), Unknown: true}
	}
}
