// Package cache implements the cache adapter contract of spec §4.2: an
// interface abstraction plus an in-memory reference implementation that
// stores events, resolves replaceable/addressable keys, and answers filter
// queries ordered by created_at descending.
package cache

import (
	"errors"

	"github.com/nostrcore/corenostr"
)

// ErrNotFound is returned by Delete when the id is unknown.
var ErrNotFound = errors.New("cache: not found")

// Cache is the contract every backend (the in-memory reference
// implementation, or an on-disk/LMDB/Sqlite adapter) must satisfy, per
// spec §4.2 and §6. Alternative backends must preserve the
// replaceable/addressable semantics and the created_at-descending
// ordering contract; everything beyond that is the adapter's choice.
type Cache interface {
	// Store installs an event per spec §4.2's per-kind-class rule:
	// ephemeral events are a no-op, replaceable/addressable events install
	// iff strictly newer than any existing entry for the dedup key (ties
	// keep the first observed entry), regular events upsert by id.
	Store(e corenostr.Event) error

	// Query returns a lazy sequence of matching events ordered by
	// created_at descending, truncated by filter.Limit if set. The
	// returned channel is closed once every match has been sent.
	Query(filter corenostr.Filter) <-chan corenostr.Event

	// Get returns the event with the given id.
	Get(id string) (corenostr.Event, bool)

	// Delete removes the event with the given id.
	Delete(id string) error

	// Clear removes every stored event.
	Clear()

	// Profile returns the cached kind-0 event for pubkey, if any.
	Profile(pubkey string) (corenostr.Event, bool)

	// Contacts returns the cached kind-3 event for pubkey, if any.
	Contacts(pubkey string) (corenostr.Event, bool)

	// RelayList returns the cached kind-10002 event for pubkey, if any.
	RelayList(pubkey string) (corenostr.Event, bool)
}

// Collect drains a Query channel into a slice. Convenience for callers that
// don't need streaming semantics.
func Collect(ch <-chan corenostr.Event) []corenostr.Event {
	var out []corenostr.Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}
