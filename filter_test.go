package corenostr

import "testing"

func TestFilterMatchesTags(t *testing.T) {
	f := Filter{Kinds: []int{1}, Tags: map[string][]string{"e": {"abc"}}}
	e := Event{Kind: 1, Tags: Tags{{"e", "abc", "wss://relay"}}}
	if !f.Matches(e) {
		t.Fatal("expected match")
	}

	e2 := Event{Kind: 1, Tags: Tags{{"e", "xyz"}}}
	if f.Matches(e2) {
		t.Fatal("expected no match")
	}
}

func TestFilterMatchesSinceUntil(t *testing.T) {
	since := int64(100)
	until := int64(200)
	f := Filter{Since: &since, Until: &until}

	if !f.Matches(Event{CreatedAt: 150}) {
		t.Fatal("expected in-range match")
	}
	if f.Matches(Event{CreatedAt: 99}) {
		t.Fatal("expected since to exclude")
	}
	if f.Matches(Event{CreatedAt: 201}) {
		t.Fatal("expected until to exclude")
	}
}

func TestAnyConstrainsAuthors(t *testing.T) {
	if AnyConstrainsAuthors([]Filter{{Kinds: []int{1}}}) {
		t.Fatal("expected false with no author constraint")
	}
	if !AnyConstrainsAuthors([]Filter{{Authors: []string{"a"}}}) {
		t.Fatal("expected true with author constraint")
	}
}

func TestUnionAuthorsDedup(t *testing.T) {
	got := UnionAuthors([]Filter{{Authors: []string{"a", "b"}}, {Authors: []string{"b", "c"}}})
	want := map[string]bool{"a": true, "b": true, "c": true}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique authors, got %v", got)
	}
	for _, a := range got {
		if !want[a] {
			t.Errorf("unexpected author %q", a)
		}
	}
}
