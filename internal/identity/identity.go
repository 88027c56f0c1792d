// Package identity provides ed25519 identities for authorities, borrowers,
// and bot owners. Public keys are base58-encoded, and keypairs can be
// derived deterministically from seed bytes so tests and scenarios need no
// key provisioning service.
package identity

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 identity.
type Keypair struct {
	seed   []byte
	public string
}

// FromSeed derives a keypair from 32 seed bytes using the standard ed25519
// expansion: SHA-512 of the seed, clamped scalar, scalar-mult of the base
// point.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != 32 {
		return nil, fmt.Errorf("seed must be 32 bytes, got %d", len(seed))
	}

	h := sha512.Sum512(seed)
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, fmt.Errorf("derive scalar: %w", err)
	}
	point := (&edwards25519.Point{}).ScalarBaseMult(s)

	return &Keypair{
		seed:   append([]byte(nil), seed...),
		public: base58.Encode(point.Bytes()),
	}, nil
}

// Generate creates a keypair from a random seed.
func Generate() (*Keypair, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return FromSeed(seed)
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	return k.public
}
