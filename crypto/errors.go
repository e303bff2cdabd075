// Package crypto implements the canonical serialization, id computation,
// Schnorr signing/verification, and bech32 codecs named in spec §4.1.
package crypto

import "errors"

// Validation errors returned by Verify, per spec §4.1 and §7.
var (
	// ErrInvalidID means the event's id does not match the recomputed hash.
	ErrInvalidID = errors.New("crypto: invalid id")
	// ErrInvalidSignature means Schnorr verification failed.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	// ErrMalformed means a hex length or character set was wrong.
	ErrMalformed = errors.New("crypto: malformed event")
)
