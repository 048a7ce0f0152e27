// Package pkstl implements the Public Key Secure Transport Layer: a
// transport-agnostic, bidirectional security layer providing authenticity
// and confidentiality between two peers that each own a long-term Ed25519
// identity. SecureLayer is the single exported type; everything else
// lives under internal/ and is reached only through it.
package pkstl

import (
	"github.com/librelois/pkstl/internal/domain"
	"github.com/librelois/pkstl/internal/envelope"
	"github.com/librelois/pkstl/internal/negotiate"
)

// Re-exported so callers never need to import internal/domain directly.
type (
	Config      = domain.Config
	Serializer  = domain.Serializer
	Compression = domain.Compression
	Event       = domain.Event
	EventKind   = domain.EventKind
	ErrKind     = domain.ErrKind
	Ed25519KeyPair = domain.Ed25519KeyPair
	Ed25519Public  = domain.Ed25519Public
	X25519Public   = domain.X25519Public
)

const (
	SerializerNone   = domain.SerializerNone
	SerializerBinary = domain.SerializerBinary
	SerializerCBOR   = domain.SerializerCBOR
	SerializerJSON   = domain.SerializerJSON

	CompressionOff      = domain.CompressionOff
	CompressionDeflate  = domain.CompressionDeflate
)

const (
	EventRemoteConnect       = domain.EventRemoteConnect
	EventRemoteAck           = domain.EventRemoteAck
	EventUserMessage         = domain.EventUserMessage
	EventNegotiationComplete = domain.EventNegotiationComplete
)

// SecureLayer bundles the negotiation state machine with the envelope
// config, exposing the operations of spec.md §6. It is single-threaded
// and cooperative: no method blocks, spawns work, or performs I/O.
type SecureLayer struct {
	cfg  domain.Config
	nego *negotiate.Negotiator
}

// NewSecureLayer constructs a layer with the caller's long-term signing
// key pair and configuration. If expectedRemotePubKey is non-nil, any
// remote CONNECT whose SIG_PUBKEY does not match it is rejected
// (Error::UnexpectedRemotePubkey). A nil expectedRemotePubKey falls back
// to cfg.RequireRemotePubkey; when both are nil the remote key is trusted
// on first use.
func NewSecureLayer(cfg Config, localSig Ed25519KeyPair, expectedRemotePubKey *Ed25519Public) (*SecureLayer, error) {
	if expectedRemotePubKey == nil {
		expectedRemotePubKey = cfg.RequireRemotePubkey
	}
	nego, err := negotiate.New(cfg, localSig, expectedRemotePubKey)
	if err != nil {
		return nil, err
	}
	return &SecureLayer{cfg: cfg.WithDefaults(), nego: nego}, nil
}

// SetConfig replaces the envelope configuration (serializer, compression)
// used by WriteUserObject and ReadUserObject. The max frame size and the
// remote key pin fixed at construction are not changed. Forbidden once
// negotiation has completed, since the envelope settings must be agreed
// before any user traffic is exchanged.
func (s *SecureLayer) SetConfig(cfg Config) error {
	if s.nego.IsEstablished() {
		return domain.NewError(domain.ErrInvalidState, "cannot change config after ESTABLISHED")
	}
	s.cfg = cfg.WithDefaults()
	return nil
}

// CreateConnectMessage emits the local CONNECT frame, callable exactly once.
func (s *SecureLayer) CreateConnectMessage(customData []byte) ([]byte, error) {
	return s.nego.CreateConnectMessage(customData)
}

// FeedBytes appends incoming bytes and drains every complete frame,
// returning the decoded events in wire order plus any bytes the caller
// must now transmit (the ACK produced as a side effect of a remote
// CONNECT, if any).
func (s *SecureLayer) FeedBytes(b []byte) (events []Event, outbound []byte, err error) {
	events, err = s.nego.FeedBytes(b)
	outbound = s.nego.TakePendingAckBytes()
	if extra := s.nego.TakePendingEvents(); len(extra) > 0 {
		events = append(extra, events...)
	}
	return events, outbound, err
}

// WriteUserMessage encrypts plaintext and frames it as a USER message.
// Requires IsEstablished.
func (s *SecureLayer) WriteUserMessage(plaintext []byte) ([]byte, error) {
	return s.nego.WriteUserMessage(plaintext)
}

// WriteUserObject serializes v through the configured envelope (serializer
// then compression) and frames the result as a USER message.
func (s *SecureLayer) WriteUserObject(v any) ([]byte, error) {
	packed, err := envelope.Pack(s.cfg, v)
	if err != nil {
		return nil, err
	}
	return s.WriteUserMessage(packed)
}

// ReadUserObject reverses WriteUserObject's envelope (decompress then
// deserialize) over a plaintext already produced by an UserMessage event.
func (s *SecureLayer) ReadUserObject(plaintext []byte, out any) error {
	return envelope.Unpack(s.cfg, plaintext, out)
}

// IsEstablished reports whether both negotiation threads have completed.
func (s *SecureLayer) IsEstablished() bool { return s.nego.IsEstablished() }

// LocalEphemeralPublic exposes the session's fixed local EPK.
func (s *SecureLayer) LocalEphemeralPublic() X25519Public {
	return s.nego.LocalEphemeralPublic()
}
