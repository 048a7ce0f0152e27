package cipher

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"

	"github.com/librelois/pkstl/internal/domain"
)

// Seed is the 48-byte HMAC-SHA384 output of spec.md §4.4, sliced into an
// AEAD key, a base nonce, and a per-frame associated-data tag.
type Seed [domain.SeedSize]byte

// Key returns the ChaCha20-Poly1305 key slice.
func (s *Seed) Key() []byte { return s[0:domain.AEADKeySize] }

// BaseNonce returns the 12-byte base nonce slice.
func (s *Seed) BaseNonce() []byte {
	return s[domain.AEADKeySize : domain.AEADKeySize+domain.AEADNonceSize]
}

// AssocData returns the 4-byte associated-data tag slice.
func (s *Seed) AssocData() []byte {
	return s[domain.AEADKeySize+domain.AEADNonceSize:]
}

// Zero wipes the seed in place.
func (s *Seed) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// DeriveSeed computes seed = HMAC-SHA384(key=max(localEPK, remoteEPK),
// data=sharedPoint), per spec.md §4.4. Ordering by lexicographic byte
// comparison of the two EPKs means both peers compute the same HMAC key
// without a role distinction (spec.md §9 "symmetry without role").
func DeriveSeed(localEPK, remoteEPK domain.X25519Public, sharedPoint [32]byte) Seed {
	hmacKey := localEPK.Slice()
	if bytes.Compare(remoteEPK.Slice(), localEPK.Slice()) > 0 {
		hmacKey = remoteEPK.Slice()
	}

	mac := hmac.New(sha512.New384, hmacKey)
	mac.Write(sharedPoint[:])
	sum := mac.Sum(nil)

	var seed Seed
	copy(seed[:], sum)
	return seed
}
