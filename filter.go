package corenostr

// Filter is a Nostr query object as described in spec §3. Zero-valued
// (nil/zero) fields are unconstrained.
type Filter struct {
	IDs     []string         `json:"ids,omitempty"`
	Authors []string         `json:"authors,omitempty"`
	Kinds   []int            `json:"kinds,omitempty"`
	Tags    map[string][]string `json:"-"` // single-letter tag name -> required first-values
	Since   *int64           `json:"since,omitempty"`
	Until   *int64           `json:"until,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	Search  string           `json:"search,omitempty"`
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Matches reports whether the event satisfies the filter per spec §4.2:
// id/pubkey/kind membership, since/until bounds, and tag-value membership
// (at least one tag with the given name whose first value is in the set).
func (f Filter) Matches(e Event) bool {
	if len(f.IDs) > 0 && !containsStr(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsStr(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	for name, values := range f.Tags {
		if len(values) == 0 {
			continue
		}
		matched := false
		for _, tag := range e.Tags {
			if tag.Name() == name && containsStr(values, tag.Value()) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// AuthorSet returns the de-duplicated union of authors constrained by the
// filter, or nil if the filter does not constrain authors.
func (f Filter) AuthorSet() []string {
	if len(f.Authors) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(f.Authors))
	out := make([]string, 0, len(f.Authors))
	for _, a := range f.Authors {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// UnionAuthors returns the de-duplicated union of authors across filters.
func UnionAuthors(filters []Filter) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range filters {
		for _, a := range f.Authors {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// AnyConstrainsAuthors reports whether at least one filter in the set
// constrains authors, per spec §4.5's outbox-model trigger condition.
func AnyConstrainsAuthors(filters []Filter) bool {
	for _, f := range filters {
		if len(f.Authors) > 0 {
			return true
		}
	}
	return false
}
