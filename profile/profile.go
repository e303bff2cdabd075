// Package profile implements the user/profile resolver of spec §4.8, plus
// the supplemented contacts and relay-list resolvers SPEC_FULL names:
// lazy-fetching kind-0 and kind-10002 events for a pubkey and exposing
// kind-0/3/10002 data as reactive observable values. Kind-3 contacts are
// read from the cache only; there is no network fetch for them.
package profile

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/cache"
	"github.com/nostrcore/corenostr/subscription"
)

// Info is the parsed kind-0 profile content, per spec §4.8.
type Info struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
	Lud06       string `json:"lud06,omitempty"`
	Lud16       string `json:"lud16,omitempty"`
	Website     string `json:"website,omitempty"`
}

// BestName derives a best-effort display name, per spec §4.8.
func (i Info) BestName(pubkey string) string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Name != "" {
		return i.Name
	}
	if len(pubkey) >= 8 {
		return pubkey[:8]
	}
	return pubkey
}

// RelayEntry is one parsed kind-10002 relay list entry.
type RelayEntry struct {
	URL   string
	Read  bool
	Write bool
}

// User is a handle on one pubkey's reactive profile/contacts/relay-list.
type User struct {
	PubKey string

	profile    *corenostr.Observable[Info]
	contacts   *corenostr.Observable[[]string]
	relayList  *corenostr.Observable[[]RelayEntry]
}

// Profile returns the observable parsed kind-0 profile.
func (u *User) Profile() *corenostr.Observable[Info] { return u.profile }

// Contacts returns the observable ordered kind-3 "p"-tag pubkey list.
func (u *User) Contacts() *corenostr.Observable[[]string] { return u.contacts }

// RelayList returns the observable parsed kind-10002 relay list.
func (u *User) RelayList() *corenostr.Observable[[]RelayEntry] { return u.relayList }

// WriteRelays implements subscription.RelayListLookup for the outbox model.
func (u *User) WriteRelays() []string {
	var out []string
	for _, e := range u.relayList.Get() {
		if e.Write {
			out = append(out, e.URL)
		}
	}
	return out
}

// Resolver resolves and caches User handles keyed by pubkey.
type Resolver struct {
	cache   cache.Cache
	manager *subscription.Manager

	mu    sync.Mutex
	users map[string]*User

	fetchMu     sync.Mutex
	fetching    map[string]bool
}

// New constructs a Resolver backed by the given cache and subscription manager.
func New(c cache.Cache, m *subscription.Manager) *Resolver {
	return &Resolver{
		cache:    c,
		manager:  m,
		users:    make(map[string]*User),
		fetching: make(map[string]bool),
	}
}

// User returns the handle for pubkey, creating it (and seeding it from the
// cache, if present) on first access.
func (r *Resolver) User(pubkey string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[pubkey]; ok {
		return u
	}
	u := &User{
		PubKey:    pubkey,
		profile:   corenostr.NewObservable(Info{}),
		contacts:  corenostr.NewObservable([]string{}),
		relayList: corenostr.NewObservable([]RelayEntry{}),
	}
	r.seedFromCache(u)
	r.users[pubkey] = u
	return u
}

func (r *Resolver) seedFromCache(u *User) {
	if r.cache == nil {
		return
	}
	if e, ok := r.cache.Profile(u.PubKey); ok {
		u.profile.Set(parseInfo(e.Content))
	}
	if e, ok := r.cache.Contacts(u.PubKey); ok {
		u.contacts.Set(parseContacts(e))
	}
	if e, ok := r.cache.RelayList(u.PubKey); ok {
		u.relayList.Set(parseRelayList(e))
	}
}

// FetchProfile creates a short-lived subscription for the user's kind-0
// event, closing on the first event or EOSE, per spec §4.8.
func (r *Resolver) FetchProfile(ctx context.Context, pubkey string) {
	r.fetchGeneric(ctx, pubkey, 0)
}

// EnqueueFetch implements subscription.RelayListLookup: it kicks off a
// background kind-10002 fetch for pubkey if one isn't already in flight.
func (r *Resolver) EnqueueFetch(pubkey string) {
	go r.fetchGeneric(context.Background(), pubkey, 10002)
}

// WriteRelays implements subscription.RelayListLookup.
func (r *Resolver) WriteRelays(pubkey string) ([]string, bool) {
	u := r.User(pubkey)
	relays := u.WriteRelays()
	if len(relays) == 0 {
		return nil, false
	}
	return relays, true
}

func (r *Resolver) fetchGeneric(ctx context.Context, pubkey string, kind int) {
	key := pubkeyKindKey(pubkey, kind)
	r.fetchMu.Lock()
	if r.fetching[key] {
		r.fetchMu.Unlock()
		return
	}
	r.fetching[key] = true
	r.fetchMu.Unlock()
	defer func() {
		r.fetchMu.Lock()
		delete(r.fetching, key)
		r.fetchMu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sub := r.manager.Subscribe(fetchCtx, []corenostr.Filter{{
		Authors: []string{pubkey},
		Kinds:   []int{kind},
		Limit:   1,
	}}, subscription.Options{}, nil)
	defer sub.Close()

	select {
	case e, ok := <-sub.Events():
		if ok {
			r.applyEvent(e)
		}
	case <-sub.Eosed():
	case <-fetchCtx.Done():
	}
}

// applyEvent updates the relevant User observable for a freshly-seen
// replaceable event, per spec §4.8's "updates are reactive" rule.
func (r *Resolver) applyEvent(e corenostr.Event) {
	u := r.User(e.PubKey)
	switch e.Kind {
	case 0:
		u.profile.Set(parseInfo(e.Content))
	case 3:
		u.contacts.Set(parseContacts(e))
	case 10002:
		u.relayList.Set(parseRelayList(e))
	}
}

func parseInfo(content string) Info {
	var info Info
	_ = json.Unmarshal([]byte(content), &info)
	return info
}

func parseContacts(e corenostr.Event) []string {
	var out []string
	for _, tag := range e.Tags {
		if tag.Name() == "p" && tag.Value() != "" {
			out = append(out, tag.Value())
		}
	}
	return out
}

func parseRelayList(e corenostr.Event) []RelayEntry {
	var out []RelayEntry
	for _, tag := range e.Tags {
		if tag.Name() != "r" || tag.Value() == "" {
			continue
		}
		marker := ""
		if len(tag) > 2 {
			marker = tag[2]
		}
		entry := RelayEntry{URL: tag.Value()}
		switch strings.ToLower(marker) {
		case "read":
			entry.Read = true
		case "write":
			entry.Write = true
		default:
			entry.Read = true
			entry.Write = true
		}
		out = append(out, entry)
	}
	return out
}

func pubkeyKindKey(pubkey string, kind int) string {
	return pubkey + ":" + strconv.Itoa(kind)
}

var _ subscription.RelayListLookup = (*Resolver)(nil)
