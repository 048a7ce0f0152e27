// Package signature provides the tagged-variant Signer/Verifier
// abstraction of spec.md §4.3. Ed25519 is the only variant today; a new
// signature algorithm is added as a new SigAlgo constant plus a new
// Signer/Verifier pair, with no change to the wire format.
package signature

import (
	"crypto/ed25519"
	"io"

	"github.com/librelois/pkstl/internal/domain"
)

// Signer signs a message with a long-term private key.
type Signer interface {
	Algo() domain.SigAlgo
	Sign(priv domain.Ed25519Private, msg []byte) []byte
}

// Verifier checks a signature against a long-term public key.
type Verifier interface {
	Algo() domain.SigAlgo
	Verify(pub domain.Ed25519Public, msg, sig []byte) bool
}

// ed25519Scheme implements both Signer and Verifier for SigAlgoEd25519.
type ed25519Scheme struct{}

// Ed25519 is the single present signature-scheme variant.
var Ed25519 Signer = ed25519Scheme{}

// Ed25519Verifier is the verifier half of the same scheme.
var Ed25519Verifier Verifier = ed25519Scheme{}

func (ed25519Scheme) Algo() domain.SigAlgo { return domain.SigAlgoEd25519 }

func (ed25519Scheme) Sign(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv.Slice()), msg)
}

func (ed25519Scheme) Verify(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub.Slice()), msg, sig)
}

// GenerateKeyPair returns a fresh long-term Ed25519 identity, reading
// randomness from rand (use crypto/rand.Reader in production).
func GenerateKeyPair(rand io.Reader) (domain.Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return domain.Ed25519KeyPair{}, err
	}
	var kp domain.Ed25519KeyPair
	copy(kp.Private[:], priv)
	copy(kp.Public[:], pub)
	return kp, nil
}

// VerifierForAlgo resolves the verifier for a wire-carried SigAlgo, or
// reports ok=false for an unsupported algorithm (ErrUnsupportedSigAlgo).
func VerifierForAlgo(algo domain.SigAlgo) (Verifier, bool) {
	if algo == domain.SigAlgoEd25519 {
		return Ed25519Verifier, true
	}
	return nil, false
}
