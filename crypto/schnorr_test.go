package crypto

import (
	"errors"
	"testing"

	"github.com/nostrcore/corenostr"
)

func TestSignThenVerify(t *testing.T) {
	pub, sec, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	unsigned := corenostr.Event{
		PubKey:    pub,
		CreatedAt: 1700000000,
		Kind:      1,
		Content:   "hello world",
	}

	signed, err := Sign(unsigned, sec)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed.ID == "" || signed.Sig == "" {
		t.Fatal("expected id and sig to be populated")
	}
	if err := Verify(signed); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerifyDetectsTamperedID(t *testing.T) {
	pub, sec, _ := GenerateKeypair()
	signed, _ := Sign(corenostr.Event{PubKey: pub, Kind: 1, Content: "x"}, sec)
	signed.ID = "00" + signed.ID[2:]
	if err := Verify(signed); err == nil {
		t.Fatal("expected verification failure for tampered id")
	}
}

func TestVerifyDetectsTamperedSignature(t *testing.T) {
	pub, sec, _ := GenerateKeypair()
	signed, _ := Sign(corenostr.Event{PubKey: pub, Kind: 1, Content: "x"}, sec)
	signed.Sig = "00" + signed.Sig[2:]
	if err := Verify(signed); err != ErrInvalidSignature {
		t.Fatalf("Verify() = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsMalformedHex(t *testing.T) {
	e := corenostr.Event{ID: "not-hex", PubKey: "alsonothex", Sig: "zz"}
	if err := Verify(e); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Verify() = %v, want ErrMalformed", err)
	}
}
