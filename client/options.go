package client

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/nostrcore/corenostr/signer"
)

// Options configures a Client at construction, following the teacher's
// config.Load() .env-plus-os.Getenv shape (internal/config/config.go) but
// expressed as idiomatic functional options for the library's construction
// knobs instead of a CLI app's flat config struct.
type Options struct {
	DefaultRelays         []string
	OutboxDiscoveryRelays []string
	UseOutbox             bool
	RelayGoalPerAuthor    int
	PublishDeadline       time.Duration
	Signer                signer.Signer
}

func defaultOptions() Options {
	return Options{
		DefaultRelays:         []string{"wss://relay.damus.io", "wss://nos.lol"},
		OutboxDiscoveryRelays: []string{"wss://purplepag.es", "wss://relay.nostr.band"},
		UseOutbox:             true,
		RelayGoalPerAuthor:    2,
		PublishDeadline:       10 * time.Second,
	}
}

// Option mutates Options at construction.
type Option func(*Options)

// WithDefaultRelays sets the relay set connected to on Client construction.
func WithDefaultRelays(relays ...string) Option {
	return func(o *Options) { o.DefaultRelays = relays }
}

// WithOutboxDiscoveryRelays sets the small relay set used to resolve
// authors' kind-10002 relay lists for the outbox model.
func WithOutboxDiscoveryRelays(relays ...string) Option {
	return func(o *Options) { o.OutboxDiscoveryRelays = relays }
}

// WithOutbox toggles the outbox model for author-constrained subscriptions.
func WithOutbox(enabled bool) Option {
	return func(o *Options) { o.UseOutbox = enabled }
}

// WithRelayGoalPerAuthor overrides the default of 2 write relays per author.
func WithRelayGoalPerAuthor(n int) Option {
	return func(o *Options) { o.RelayGoalPerAuthor = n }
}

// WithPublishDeadline overrides the default 10s aggregate publish deadline.
func WithPublishDeadline(d time.Duration) Option {
	return func(o *Options) { o.PublishDeadline = d }
}

// WithSigner attaches the active signer used to sign outgoing events and
// respond to AUTH challenges.
func WithSigner(s signer.Signer) Option {
	return func(o *Options) { o.Signer = s }
}

// LoadOptionsFromEnv builds Options from a ".env" file (if present) plus
// os.Getenv overrides, mirroring the teacher's config.Load(): NOSTR_RELAYS
// (comma-separated) overrides DefaultRelays, NOSTR_OUTBOX_RELAYS overrides
// OutboxDiscoveryRelays, NOSTR_SECRET_KEY constructs a signer.KeySigner.
func LoadOptionsFromEnv() (Options, error) {
	opts := defaultOptions()

	if err := loadEnvFile(".env"); err != nil && !os.IsNotExist(err) {
		return opts, err
	}

	if relays := os.Getenv("NOSTR_RELAYS"); relays != "" {
		opts.DefaultRelays = parseRelayList(relays)
	}
	if relays := os.Getenv("NOSTR_OUTBOX_RELAYS"); relays != "" {
		opts.OutboxDiscoveryRelays = parseRelayList(relays)
	}
	if sk := os.Getenv("NOSTR_SECRET_KEY"); sk != "" {
		s, err := signer.NewKeySigner(sk)
		if err != nil {
			return opts, err
		}
		opts.Signer = s
	}

	return opts, nil
}

func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if os.Getenv(key) == "" && value != "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func parseRelayList(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}
