package crypto

import (
	"testing"

	"github.com/nostrcore/corenostr"
)

// TestCanonicalS1 is spec §8 scenario S1: a fixed event canonicalises to a
// known byte string and id.
func TestCanonicalS1(t *testing.T) {
	e := corenostr.Event{
		PubKey:    "0000000000000000000000000000000000000000000000000000000000000001",
		CreatedAt: 1700000000,
		Kind:      1,
		Tags:      corenostr.Tags{},
		Content:   "hello",
	}

	want := `[0,"0000000000000000000000000000000000000000000000000000000000000001",1700000000,1,[],"hello"]`
	if got := string(SerializeCanonical(e)); got != want {
		t.Fatalf("SerializeCanonical() = %s, want %s", got, want)
	}

	wantID := "b8591d69d0638d47eb20e0505fdbaf565e52675fa998010df62813ad3d11b486"
	if got := ComputeIDHex(e); got != wantID {
		t.Fatalf("ComputeIDHex() = %s, want %s", got, wantID)
	}
}

func TestEscapeStringControlChars(t *testing.T) {
	e := corenostr.Event{Content: "a\tb\nc\x01d\"e\\f"}
	got := string(SerializeCanonical(e))
	want := "[0,\"\",0,0,[],\"a\\tb\\nc\\u0001d\\\"e\\\\f\"]"
	if got != want {
		t.Fatalf("SerializeCanonical() = %s, want %s", got, want)
	}
}

func TestEscapeStringPreservesUnicode(t *testing.T) {
	e := corenostr.Event{Content: "héllo 世界"}
	got := string(SerializeCanonical(e))
	want := "[0,\"\",0,0,[],\"héllo 世界\"]"
	if got != want {
		t.Fatalf("SerializeCanonical() = %s, want %s", got, want)
	}
}

func TestSerializeTags(t *testing.T) {
	e := corenostr.Event{Tags: corenostr.Tags{{"e", "abc"}, {"p", "def", "wss://relay"}}}
	got := string(SerializeCanonical(e))
	want := `[0,"",0,0,[["e","abc"],["p","def","wss://relay"]],""]`
	if got != want {
		t.Fatalf("SerializeCanonical() = %s, want %s", got, want)
	}
}
