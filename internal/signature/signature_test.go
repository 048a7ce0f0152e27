package signature_test

import (
	"crypto/rand"
	"testing"

	"github.com/librelois/pkstl/internal/domain"
	"github.com/librelois/pkstl/internal/signature"
)

func TestEd25519_SignVerify(t *testing.T) {
	kp, err := signature.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	msg := []byte("header || payload span")
	sig := signature.Ed25519.Sign(kp.Private, msg)

	if !signature.Ed25519Verifier.Verify(kp.Public, msg, sig) {
		t.Fatal("valid signature failed to verify")
	}

	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 0xFF
	if signature.Ed25519Verifier.Verify(kp.Public, tampered, sig) {
		t.Fatal("signature verified against tampered message")
	}
}

func TestVerifierForAlgo(t *testing.T) {
	v, ok := signature.VerifierForAlgo(domain.SigAlgoEd25519)
	if !ok || v.Algo() != domain.SigAlgoEd25519 {
		t.Fatalf("expected Ed25519 verifier to resolve")
	}

	if _, ok := signature.VerifierForAlgo(domain.SigAlgo(99)); ok {
		t.Fatal("expected unsupported algorithm to fail resolution")
	}
}
