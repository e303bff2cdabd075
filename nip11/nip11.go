// Package nip11 fetches and caches relay information documents (NIP-11),
// per spec §6: HTTP GET with scheme substitution, a single 5-second timeout
// covering the whole request (there are no separate per-phase timeouts),
// best-effort JSON decoding, and a shared LRU+singleflight cache so
// concurrent fetches for the same relay collapse into one request — the
// teacher's own RelayInfoCache (internal/relay/cache.go) did the TTL half of
// this job by hand; this module now owns the whole discovery client
// in-process instead of borrowing one, so it's built on the pack's own
// transitive dependencies (golang-lru, singleflight) directly.
package nip11

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	cacheSize   = 1000
	cacheTTL    = time.Hour
	fetchTimeout = 5 * time.Second
)

// Errors surfaced per spec §7's Discovery taxonomy.
var (
	ErrTimeout = errors.New("nip11: timeout")
	ErrHTTP    = errors.New("nip11: http error")
	ErrParse   = errors.New("nip11: parse error")
)

// Limitation mirrors the NIP-11 "limitation" object.
type Limitation struct {
	MaxMessageLength   int  `json:"max_message_length,omitempty"`
	MaxSubscriptions   int  `json:"max_subscriptions,omitempty"`
	MaxFilters         int  `json:"max_filters,omitempty"`
	MaxLimit           int  `json:"max_limit,omitempty"`
	MaxSubidLength     int  `json:"max_subid_length,omitempty"`
	MaxEventTags       int  `json:"max_event_tags,omitempty"`
	MaxContentLength   int  `json:"max_content_length,omitempty"`
	MinPowDifficulty   int  `json:"min_pow_difficulty,omitempty"`
	AuthRequired       bool `json:"auth_required,omitempty"`
	PaymentRequired    bool `json:"payment_required,omitempty"`
	CreatedAtLowerLimit int64 `json:"created_at_lower_limit,omitempty"`
	CreatedAtUpperLimit int64 `json:"created_at_upper_limit,omitempty"`
}

// Info is the relay information document, unknown fields ignored.
type Info struct {
	Name          string         `json:"name,omitempty"`
	Description   string         `json:"description,omitempty"`
	Icon          string         `json:"icon,omitempty"`
	Banner        string         `json:"banner,omitempty"`
	PubKey        string         `json:"pubkey,omitempty"`
	Contact       string         `json:"contact,omitempty"`
	SupportedNIPs []int          `json:"supported_nips,omitempty"`
	Software      string         `json:"software,omitempty"`
	Version       string         `json:"version,omitempty"`
	Limitation    Limitation     `json:"limitation,omitempty"`
	Retention     []json.RawMessage `json:"retention,omitempty"`
	Fees          json.RawMessage `json:"fees,omitempty"`
	FetchedAt     time.Time       `json:"-"`
}

// Client fetches and caches relay information documents.
type Client struct {
	http  *http.Client
	cache *lru.Cache[string, Info]
	group singleflight.Group
}

// NewClient constructs a Client with the default cache size and TTL.
func NewClient() *Client {
	cache, err := lru.New[string, Info](cacheSize)
	if err != nil {
		// lru.New only errors on non-positive size, which cacheSize never is.
		panic(err)
	}
	return &Client{
		http:  &http.Client{Timeout: fetchTimeout},
		cache: cache,
	}
}

// Fetch returns the relay information document for relayURL, using the
// cache if a fresh entry exists and deduplicating concurrent fetches for
// the same URL via singleflight.
func (c *Client) Fetch(ctx context.Context, relayURL string) (Info, error) {
	if cached, ok := c.cache.Get(relayURL); ok {
		if time.Since(cached.FetchedAt) < cacheTTL {
			return cached, nil
		}
		c.cache.Remove(relayURL)
	}

	v, err, _ := c.group.Do(relayURL, func() (interface{}, error) {
		info, err := c.fetch(ctx, relayURL)
		if err != nil {
			return Info{}, err
		}
		info.FetchedAt = time.Now()
		c.cache.Add(relayURL, info)
		return info, nil
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

func (c *Client) fetch(ctx context.Context, relayURL string) (Info, error) {
	httpURL := toHTTPURL(relayURL)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	req.Header.Set("Accept", "application/nostr+json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, ErrTimeout
		}
		return Info{}, fmt.Errorf("%w: %v", ErrHTTP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("%w: status %d", ErrHTTP, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return info, nil
}

// toHTTPURL substitutes wss->https and ws->http, per spec §6.
func toHTTPURL(relayURL string) string {
	switch {
	case strings.HasPrefix(relayURL, "wss://"):
		return "https://" + strings.TrimPrefix(relayURL, "wss://")
	case strings.HasPrefix(relayURL, "ws://"):
		return "http://" + strings.TrimPrefix(relayURL, "ws://")
	default:
		return relayURL
	}
}
