// Package message encodes and decodes the MSG_CONTENT of CONNECT and ACK
// frames (spec.md §4.2, §4.3). USER frames carry an opaque AEAD
// ciphertext and have no structure of their own, so this package only
// deals with the two negotiation message bodies.
package message

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/librelois/pkstl/internal/domain"
)

// Connect is the decoded body of a CONNECT message:
// EPK(32) || SIG_ALGO(4) || SIG_PUBKEY(32) || CUSTOM_DATA.
type Connect struct {
	EPK        domain.X25519Public
	SigAlgo    domain.SigAlgo
	SigPubKey  domain.Ed25519Public
	CustomData []byte
}

// EncodeConnect serializes a Connect body.
func EncodeConnect(c Connect) []byte {
	out := make([]byte, 0, domain.ConnectFixedSize+len(c.CustomData))
	out = append(out, c.EPK.Slice()...)

	var algoBuf [4]byte
	binary.BigEndian.PutUint32(algoBuf[:], uint32(c.SigAlgo))
	out = append(out, algoBuf[:]...)

	out = append(out, c.SigPubKey.Slice()...)
	out = append(out, c.CustomData...)
	return out
}

// DecodeConnect parses a Connect body, rejecting anything shorter than
// the fixed prefix. It does not validate SigAlgo; callers check that
// against the signature verifiers they support (internal/signature).
func DecodeConnect(payload []byte) (Connect, error) {
	if len(payload) < domain.ConnectFixedSize {
		return Connect{}, domain.NewError(domain.ErrBadMagic, "CONNECT payload shorter than fixed prefix")
	}

	var c Connect
	c.EPK = domain.MustX25519Public(payload[0:domain.EPKSize])
	c.SigAlgo = domain.SigAlgo(binary.BigEndian.Uint32(payload[domain.EPKSize : domain.EPKSize+4]))
	c.SigPubKey = domain.MustEd25519Public(payload[domain.EPKSize+4 : domain.ConnectFixedSize])

	if rest := payload[domain.ConnectFixedSize:]; len(rest) > 0 {
		c.CustomData = append([]byte(nil), rest...)
	}
	return c, nil
}

// Ack is the decoded body of an ACK message: CHALLENGE(32) || CUSTOM_DATA.
type Ack struct {
	Challenge  [domain.ChallengeSize]byte
	CustomData []byte
}

// EncodeAck serializes an Ack body.
func EncodeAck(a Ack) []byte {
	out := make([]byte, 0, domain.AckFixedSize+len(a.CustomData))
	out = append(out, a.Challenge[:]...)
	out = append(out, a.CustomData...)
	return out
}

// DecodeAck parses an Ack body.
func DecodeAck(payload []byte) (Ack, error) {
	if len(payload) < domain.AckFixedSize {
		return Ack{}, domain.NewError(domain.ErrBadMagic, "ACK payload shorter than fixed prefix")
	}

	var a Ack
	copy(a.Challenge[:], payload[0:domain.ChallengeSize])
	if rest := payload[domain.AckFixedSize:]; len(rest) > 0 {
		a.CustomData = append([]byte(nil), rest...)
	}
	return a, nil
}

// Challenge computes the ACK challenge for a given remote EPK:
// CHALLENGE = SHA-256(remote EPK), per spec.md §4.3.
func Challenge(remoteEPK domain.X25519Public) [domain.ChallengeSize]byte {
	return sha256.Sum256(remoteEPK.Slice())
}
