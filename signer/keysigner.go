package signer

import (
	"github.com/nostrcore/corenostr"
	"github.com/nostrcore/corenostr/crypto"
)

// KeySigner is the in-process secret-key Signer implementation named in
// spec §6. It holds the raw secret key in memory for the lifetime of the
// process; callers that need key storage semantics beyond that are expected
// to bring their own Signer (spec §1's non-goal: "end-user key storage").
type KeySigner struct {
	secretHex string
	pubHex    string
}

// NewKeySigner derives the public key from a hex secret key.
func NewKeySigner(secretHex string) (*KeySigner, error) {
	pub, _, err := crypto.PubKeyFromSecret(secretHex)
	if err != nil {
		return nil, err
	}
	return &KeySigner{secretHex: secretHex, pubHex: pub}, nil
}

func (k *KeySigner) PubKey() (string, error) { return k.pubHex, nil }

func (k *KeySigner) Sign(unsigned corenostr.Event) (corenostr.Event, error) {
	unsigned.PubKey = k.pubHex
	return crypto.Sign(unsigned, k.secretHex)
}

func (k *KeySigner) Nip04Encrypt(string, string) (string, error) { return "", ErrUnsupported }
func (k *KeySigner) Nip04Decrypt(string, string) (string, error) { return "", ErrUnsupported }
func (k *KeySigner) Nip44Encrypt(string, string) (string, error) { return "", ErrUnsupported }
func (k *KeySigner) Nip44Decrypt(string, string) (string, error) { return "", ErrUnsupported }
func (k *KeySigner) GetRelays() ([]string, error)                { return nil, ErrUnsupported }

var _ Signer = (*KeySigner)(nil)
