package cipher

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/librelois/pkstl/internal/domain"
)

// DirectionalAEAD seals/opens USER frames for one direction of traffic.
// The nonce is the seed's base nonce XORed with a monotonically
// incrementing 64-bit counter right-aligned into the low 8 bytes,
// per spec.md §4.4 — the static-nonce-from-seed scheme the external
// documentation describes would otherwise reuse a nonce across every
// frame in a direction, which breaks ChaCha20-Poly1305 (spec.md §9).
type DirectionalAEAD struct {
	aead aeadSealer

	baseNonce [domain.AEADNonceSize]byte
	assocData [domain.AEADAssocDataSize]byte
	counter   uint64
	exhausted bool
}

// aeadSealer is the subset of cipher.AEAD this package relies on.
type aeadSealer interface {
	Seal(dst, nonce, plaintext, ad []byte) []byte
	Open(dst, nonce, ciphertext, ad []byte) ([]byte, error)
}

// NewDirectionalAEAD builds one direction's AEAD state from a seed.
func NewDirectionalAEAD(seed *Seed) (*DirectionalAEAD, error) {
	aead, err := chacha20poly1305.New(seed.Key())
	if err != nil {
		return nil, err
	}
	d := &DirectionalAEAD{aead: aead}
	copy(d.baseNonce[:], seed.BaseNonce())
	copy(d.assocData[:], seed.AssocData())
	return d, nil
}

// nonceFor XORs counter, big-endian and right-aligned, into the base nonce.
func (d *DirectionalAEAD) nonceFor(counter uint64) []byte {
	var nonce [domain.AEADNonceSize]byte
	copy(nonce[:], d.baseNonce[:])
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], counter)
	for i := 0; i < 8; i++ {
		nonce[domain.AEADNonceSize-8+i] ^= ctr[i]
	}
	return nonce[:]
}

// Seal encrypts plaintext under the current send counter and advances it.
// The returned ciphertext embeds the 16-byte Poly1305 tag.
func (d *DirectionalAEAD) Seal(plaintext []byte) ([]byte, error) {
	if d.exhausted {
		return nil, domain.NewError(domain.ErrNonceExhausted, "send counter exhausted")
	}
	nonce := d.nonceFor(d.counter)
	ct := d.aead.Seal(nil, nonce, plaintext, d.assocData[:])
	d.advance()
	return ct, nil
}

// Open decrypts ciphertext under the current receive counter and
// advances it. Authentication failure (wrong counter or tampered bytes)
// is reported as ErrAuthenticationFailed without distinguishing the two
// causes, per spec.md §8 property 5 (replay/counter-mismatch indistinguishable
// from tampering to an observer).
func (d *DirectionalAEAD) Open(ciphertext []byte) ([]byte, error) {
	if d.exhausted {
		return nil, domain.NewError(domain.ErrNonceExhausted, "receive counter exhausted")
	}
	nonce := d.nonceFor(d.counter)
	pt, err := d.aead.Open(nil, nonce, ciphertext, d.assocData[:])
	if err != nil {
		return nil, domain.WrapError(domain.ErrAuthenticationFailed, "AEAD tag mismatch", err)
	}
	d.advance()
	return pt, nil
}

// advance moves to the next frame counter, marking the direction
// exhausted once the space of 2^64 frames is used up rather than
// silently wrapping around to a reused nonce.
func (d *DirectionalAEAD) advance() {
	if d.counter == math.MaxUint64 {
		d.exhausted = true
		return
	}
	d.counter++
}
