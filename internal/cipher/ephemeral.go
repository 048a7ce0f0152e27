// Package cipher implements spec.md §4.4: ephemeral X25519 key
// agreement, HMAC-SHA384 seed derivation, and the ChaCha20-Poly1305
// session AEAD with per-direction frame counters.
package cipher

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"github.com/librelois/pkstl/internal/domain"
	"github.com/librelois/pkstl/internal/util/memzero"
)

// GenerateEphemeral returns a fresh X25519 key pair, clamped per RFC 7748.
func GenerateEphemeral() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

// DH computes the X25519 Diffie-Hellman shared point.
func DH(priv domain.X25519Private, pub domain.X25519Public) ([32]byte, error) {
	var out [32]byte
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	return out, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}

// ZeroPrivate wipes an ephemeral private key in place.
func ZeroPrivate(k *domain.X25519Private) { memzero.Zero(k[:]) }
