// Package keystore persists a PKSTL long-term Ed25519 identity to disk,
// sealed behind a passphrase. This is purely a CLI convenience (spec.md
// §3.1): SecureLayer itself never touches the filesystem and accepts an
// already-loaded domain.Ed25519KeyPair.
package keystore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/librelois/pkstl/internal/domain"
)

const keystoreFormatVersion = 1

// scryptCost are the tunables applied to every newly sealed identity.
// N is the CPU/memory cost parameter, r the block size, p parallelism.
var scryptCost = struct{ N, r, p int }{N: 1 << 15, r: 8, p: 1}

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed blob has been corrupted — the two are indistinguishable to an AEAD.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// sealedIdentity is the on-disk JSON encoding: the scrypt parameters that
// produced the key plus the ChaCha20-Poly1305-sealed key-pair bytes.
type sealedIdentity struct {
	V    int    `json:"v"`
	Salt []byte `json:"salt"`
	N    int    `json:"scrypt_N"`
	R    int    `json:"scrypt_r"`
	P    int    `json:"scrypt_p"`
	Seal []byte `json:"seal"`
}

// Save seals kp behind passphrase and atomically writes it to path. The
// sealed plaintext is the raw 64-byte private key followed by the raw
// 32-byte public key — no intermediate JSON encoding of the key pair.
func Save(path string, passphrase string, kp domain.Ed25519KeyPair) error {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return err
	}

	aead, err := deriveAEAD(passphrase, salt[:], scryptCost.N, scryptCost.r, scryptCost.p)
	if err != nil {
		return err
	}

	plaintext := append(append([]byte(nil), kp.Private.Slice()...), kp.Public.Slice()...)
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key is single-use

	doc, err := json.Marshal(sealedIdentity{
		V:    keystoreFormatVersion,
		Salt: salt[:],
		N:    scryptCost.N,
		R:    scryptCost.r,
		P:    scryptCost.p,
		Seal: aead.Seal(nil, nonce[:], plaintext, salt[:]),
	})
	if err != nil {
		return err
	}

	return atomicWrite(path, doc, 0o600)
}

// Load opens path and unseals the identity under passphrase.
func Load(path string, passphrase string) (domain.Ed25519KeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Ed25519KeyPair{}, err
	}

	var doc sealedIdentity
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Ed25519KeyPair{}, err
	}
	if doc.V > keystoreFormatVersion {
		return domain.Ed25519KeyPair{}, fmt.Errorf("unsupported keystore version %d", doc.V)
	}

	aead, err := deriveAEAD(passphrase, doc.Salt, doc.N, doc.R, doc.P)
	if err != nil {
		return domain.Ed25519KeyPair{}, err
	}

	var nonce [chacha20poly1305.NonceSize]byte
	plaintext, err := aead.Open(nil, nonce[:], doc.Seal, doc.Salt)
	if err != nil {
		return domain.Ed25519KeyPair{}, ErrWrongPassphrase
	}
	if len(plaintext) != 64+32 {
		return domain.Ed25519KeyPair{}, errors.New("keystore: unexpected identity length")
	}

	var kp domain.Ed25519KeyPair
	kp.Private = domain.MustEd25519Private(plaintext[:64])
	kp.Public = domain.MustEd25519Public(plaintext[64:])
	return kp, nil
}

// deriveAEAD stretches passphrase with scrypt and builds the ChaCha20-Poly1305
// instance the seal/open step uses.
func deriveAEAD(passphrase string, salt []byte, N, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}

// atomicWrite writes b to path via a sibling temp file, then renames it
// into place so a crash mid-write never leaves a half-written identity.
func atomicWrite(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
