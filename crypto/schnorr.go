package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nostrcore/corenostr"
)

func decodeHexFixed(s string, n int) ([]byte, error) {
	if len(s) != n*2 {
		return nil, fmt.Errorf("%w: expected %d hex chars, got %d", ErrMalformed, n*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return b, nil
}

// GenerateKeypair generates a new secp256k1 keypair and returns the
// x-only public key and the secret key, both lowercase hex.
func GenerateKeypair() (pubkeyHex, seckeyHex string, err error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return "", "", err
	}
	return PubKeyFromSecret(hex.EncodeToString(priv.Serialize()))
}

// PubKeyFromSecret derives the x-only hex public key from a hex secret key.
func PubKeyFromSecret(seckeyHex string) (pubkeyHex, normalizedSeckeyHex string, err error) {
	skBytes, err := decodeHexFixed(seckeyHex, 32)
	if err != nil {
		return "", "", err
	}
	priv, pub := btcec.PrivKeyFromBytes(skBytes)
	defer priv.Zero()
	return hex.EncodeToString(schnorr.SerializePubKey(pub)), hex.EncodeToString(priv.Serialize()), nil
}

// Sign signs the unsigned event with the given hex secret key: it computes
// the id, produces a Schnorr signature over it, and returns the signed
// event with id and sig populated, per spec §4.1.
func Sign(unsigned corenostr.Event, seckeyHex string) (corenostr.Event, error) {
	skBytes, err := decodeHexFixed(seckeyHex, 32)
	if err != nil {
		return corenostr.Event{}, err
	}
	priv, pub := btcec.PrivKeyFromBytes(skBytes)
	defer priv.Zero()

	signed := unsigned.Clone()
	signed.PubKey = hex.EncodeToString(schnorr.SerializePubKey(pub))

	id := ComputeID(signed)
	signed.ID = hex.EncodeToString(id[:])

	sig, err := schnorr.Sign(priv, id[:])
	if err != nil {
		return corenostr.Event{}, fmt.Errorf("crypto: sign: %w", err)
	}
	signed.Sig = hex.EncodeToString(sig.Serialize())
	return signed, nil
}

// Verify checks an event's id and signature, per spec §4.1:
// it fails with ErrInvalidID when id doesn't match the recomputed hash,
// ErrInvalidSignature when the Schnorr check fails, and ErrMalformed when
// hex lengths/charsets are wrong.
func Verify(e corenostr.Event) error {
	idBytes, err := decodeHexFixed(e.ID, 32)
	if err != nil {
		return err
	}
	pubBytes, err := decodeHexFixed(e.PubKey, 32)
	if err != nil {
		return err
	}
	sigBytes, err := decodeHexFixed(e.Sig, 64)
	if err != nil {
		return err
	}

	want := ComputeID(e)
	if !equalBytes(want[:], idBytes) {
		return ErrInvalidID
	}

	pub, err := schnorr.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !sig.Verify(idBytes, pub) {
		return ErrInvalidSignature
	}
	return nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
