package corenostr

import "testing"

func TestClassifyKind(t *testing.T) {
	cases := []struct {
		kind int
		want KindClass
	}{
		{0, KindReplaceable},
		{3, KindReplaceable},
		{1, KindRegular},
		{10000, KindReplaceable},
		{19999, KindReplaceable},
		{20000, KindEphemeral},
		{29999, KindEphemeral},
		{30000, KindAddressable},
		{39999, KindAddressable},
		{40000, KindRegular},
	}
	for _, c := range cases {
		if got := ClassifyKind(c.kind); got != c.want {
			t.Errorf("ClassifyKind(%d) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestDedupKeyReplaceable(t *testing.T) {
	e := Event{Kind: 0, PubKey: "AA"}
	if got, want := e.DedupKey(), "0:AA"; got != want {
		t.Errorf("DedupKey() = %q, want %q", got, want)
	}
}

func TestDedupKeyAddressable(t *testing.T) {
	e := Event{Kind: 30023, PubKey: "BB", Tags: Tags{{"d", "x"}}}
	if got, want := e.DedupKey(), "30023:BB:x"; got != want {
		t.Errorf("DedupKey() = %q, want %q", got, want)
	}
}

func TestDedupKeyRegular(t *testing.T) {
	e := Event{Kind: 1, ID: "deadbeef"}
	if got, want := e.DedupKey(), "deadbeef"; got != want {
		t.Errorf("DedupKey() = %q, want %q", got, want)
	}
}

func TestDTagMissing(t *testing.T) {
	e := Event{Kind: 30023, PubKey: "BB"}
	if got, want := e.DedupKey(), "30023:BB:"; got != want {
		t.Errorf("DedupKey() = %q, want %q", got, want)
	}
}
