// Package signer defines the signer capability consumed by the engine
// (spec §6) and an in-process secret-key implementation. The engine never
// owns secret material directly: it talks to whatever Signer it's handed,
// whether that's the in-process implementation here or a bridge to an
// external signer app.
package signer

import (
	"errors"

	"github.com/nostrcore/corenostr"
)

// Sentinel errors a Signer implementation may return, per spec §7.
var (
	ErrUserCancelled = errors.New("signer: user cancelled")
	ErrUnavailable   = errors.New("signer: unavailable")
	ErrUnsupported   = errors.New("signer: operation unsupported")
)

// Signer is a capability, not an inheritance hierarchy: a record of
// function pointers the engine calls without ever seeing private key
// material for non-in-process implementations.
type Signer interface {
	// PubKey returns the signer's 32-byte x-only hex public key.
	PubKey() (string, error)

	// Sign populates id and sig on unsigned and returns the signed event.
	Sign(unsigned corenostr.Event) (corenostr.Event, error)

	// Nip04Encrypt/Decrypt implement the legacy direct-message scheme.
	// Implementations that don't support it return ErrUnsupported.
	Nip04Encrypt(peerPubKey, plaintext string) (string, error)
	Nip04Decrypt(peerPubKey, ciphertext string) (string, error)

	// Nip44Encrypt/Decrypt implement the current direct-message scheme.
	// Implementations that don't support it return ErrUnsupported.
	Nip44Encrypt(peerPubKey, plaintext string) (string, error)
	Nip44Decrypt(peerPubKey, ciphertext string) (string, error)

	// GetRelays returns the signer's preferred relay list, if it has an
	// opinion. Implementations that don't support it return ErrUnsupported.
	GetRelays() ([]string, error)
}
