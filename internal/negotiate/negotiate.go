// Package negotiate drives the two-thread negotiation state machine of
// spec.md §4.5: local thread L1→L2→L3, remote thread R1→R2→R3, converging
// on ESTABLISHED once both sides have seen each other's CONNECT and ACK.
// It owns the pending byte buffer, the framing codec, and the per-direction
// AEAD once the session secrets are derived; everything above this package
// sees only CreateConnectMessage / FeedBytes / WriteUserMessage.
package negotiate

import (
	"github.com/librelois/pkstl/internal/cipher"
	"github.com/librelois/pkstl/internal/domain"
	"github.com/librelois/pkstl/internal/framing"
	"github.com/librelois/pkstl/internal/message"
	"github.com/librelois/pkstl/internal/signature"
)

// Status is the coarse negotiation status surfaced to callers that only
// care about "can I send user data yet", not the two-thread detail.
type Status int

const (
	StatusInit Status = iota
	StatusConnectSent
	StatusEstablished
	StatusFailed
)

// Negotiator is the negotiation state machine plus the session crypto it
// unlocks once both EPKs are known. It is not safe for concurrent use,
// per spec.md §5 ("single-threaded and cooperative").
type Negotiator struct {
	cfg domain.Config

	localSig             domain.Ed25519KeyPair
	expectedRemotePubKey *domain.Ed25519Public

	localEphPriv domain.X25519Private
	localEphPub  domain.X25519Public

	// Local thread: L1 prepared (always true post-construction) -> L2 sent
	// -> L3 ack-received.
	localConnectSent bool // L2
	ackReceived      bool // L3

	// Remote thread: R1 awaiting -> R2 connect-received -> R3 ack-sent.
	remoteConnectReceived bool // R2
	ackSent               bool // R3

	remoteSigPubKey *domain.Ed25519Public
	remoteEPK       *domain.X25519Public

	sendAEAD *cipher.DirectionalAEAD
	recvAEAD *cipher.DirectionalAEAD

	// pendingAckBytes holds the ACK frame produced as a side effect of
	// processing a valid remote CONNECT (spec.md §6: ACK is implicit upon
	// receiving remote CONNECT). The facade drains it after FeedBytes.
	pendingAckBytes []byte

	// pendingEvents holds events produced outside of FeedBytes — currently
	// only the RemoteConnect (and possible NegotiationComplete) event
	// produced when CreateConnectMessage drains a queued early CONNECT.
	// TakePendingEvents drains it.
	pendingEvents []domain.Event

	failed              bool
	negotiationReported bool

	// pendingConnect holds one remote CONNECT frame received before
	// CreateConnectMessage has run (spec.md §4.5: "otherwise CONNECT is
	// queued for after that call"). At most one frame is ever queued;
	// a second early CONNECT is the ordinary UnexpectedConnect case once
	// the first is processed, since remoteConnectReceived flips true as
	// soon as the first is recorded.
	pendingConnect *framing.RawMessage

	buf framing.Buffer
}

// New builds a Negotiator, generating a fresh ephemeral X25519 key pair.
func New(cfg domain.Config, localSig domain.Ed25519KeyPair, expectedRemotePubKey *domain.Ed25519Public) (*Negotiator, error) {
	priv, pub, err := cipher.GenerateEphemeral()
	if err != nil {
		return nil, err
	}
	return &Negotiator{
		cfg:                  cfg.WithDefaults(),
		localSig:             localSig,
		expectedRemotePubKey: expectedRemotePubKey,
		localEphPriv:         priv,
		localEphPub:          pub,
	}, nil
}

// LocalEphemeralPublic exposes the fixed local EPK, e.g. for logging.
func (n *Negotiator) LocalEphemeralPublic() domain.X25519Public { return n.localEphPub }

// IsEstablished reports ACK_SENT ∧ ACK_RECEIVED.
func (n *Negotiator) IsEstablished() bool { return n.ackSent && n.ackReceived }

// Status reports the coarse status.
func (n *Negotiator) Status() Status {
	switch {
	case n.failed:
		return StatusFailed
	case n.IsEstablished():
		return StatusEstablished
	case n.localConnectSent:
		return StatusConnectSent
	default:
		return StatusInit
	}
}

func (n *Negotiator) fail(err *domain.Error) error {
	n.failed = true
	cipher.ZeroPrivate(&n.localEphPriv)
	return err
}

// CreateConnectMessage emits the local CONNECT frame. Available exactly
// once (INIT -> CONNECT_SENT); a second call is Error::InvalidState.
func (n *Negotiator) CreateConnectMessage(customData []byte) ([]byte, error) {
	if n.failed {
		return nil, domain.NewError(domain.ErrInvalidState, "session already failed")
	}
	if n.localConnectSent {
		return nil, domain.NewError(domain.ErrInvalidState, "create_connect_message already called")
	}

	body := message.EncodeConnect(message.Connect{
		EPK:        n.localEphPub,
		SigAlgo:    domain.SigAlgoEd25519,
		SigPubKey:  n.localSig.Public,
		CustomData: customData,
	})
	headerAndPayload := framing.Encode(domain.MsgTypeConnect, body)
	sig := signature.Ed25519.Sign(n.localSig.Private, headerAndPayload)
	frame := framing.AppendTrailer(headerAndPayload, sig)

	n.localConnectSent = true

	if n.pendingConnect != nil {
		pending := *n.pendingConnect
		n.pendingConnect = nil
		// The queued frame was recorded when it arrived; clear the flag so
		// handleConnect processes it instead of treating it as a duplicate.
		n.remoteConnectReceived = false
		ev, err := n.handleConnect(pending)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			n.pendingEvents = append(n.pendingEvents, *ev)
		}
		if n.IsEstablished() && !n.negotiationReported {
			n.negotiationReported = true
			n.pendingEvents = append(n.pendingEvents, domain.Event{Kind: domain.EventNegotiationComplete})
		}
	}

	return frame, nil
}

// TakePendingEvents returns and clears events produced outside of
// FeedBytes (see pendingEvents). The facade drains it on its next
// FeedBytes call.
func (n *Negotiator) TakePendingEvents() []domain.Event {
	ev := n.pendingEvents
	n.pendingEvents = nil
	return ev
}

// FeedBytes appends incoming bytes to the pending buffer and drains every
// complete frame, returning the events produced in wire order. Draining
// stops at the first error, which is also reflected in the returned error;
// any events produced before the error are still returned.
func (n *Negotiator) FeedBytes(b []byte) ([]domain.Event, error) {
	if n.failed {
		return nil, domain.NewError(domain.ErrInvalidState, "session already failed")
	}
	n.buf.Append(b)

	var events []domain.Event
	for {
		raw, err := framing.TryParse(&n.buf, n.cfg.MaxFrameSize)
		if err != nil {
			if domain.IsNeedMore(err) {
				return events, nil
			}
			return events, n.fail(err.(*domain.Error))
		}

		ev, err := n.dispatch(raw)
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if n.IsEstablished() && !n.negotiationReported {
			n.negotiationReported = true
			events = append(events, domain.Event{Kind: domain.EventNegotiationComplete})
		}
	}
}

func (n *Negotiator) dispatch(raw framing.RawMessage) (*domain.Event, error) {
	switch raw.MsgType {
	case domain.MsgTypeConnect:
		return n.handleConnect(raw)
	case domain.MsgTypeAck:
		return n.handleAck(raw)
	case domain.MsgTypeUser:
		return n.handleUser(raw)
	default:
		return nil, n.fail(domain.NewError(domain.ErrBadMagic, "unknown msg type"))
	}
}

func (n *Negotiator) handleConnect(raw framing.RawMessage) (*domain.Event, error) {
	if n.remoteConnectReceived {
		return nil, n.fail(domain.NewError(domain.ErrUnexpectedConnect, "duplicate CONNECT"))
	}

	connect, derr := message.DecodeConnect(raw.Payload)
	if derr != nil {
		return nil, n.fail(derr.(*domain.Error))
	}

	verifier, ok := signature.VerifierForAlgo(connect.SigAlgo)
	if !ok {
		return nil, n.fail(domain.NewError(domain.ErrUnsupportedSigAlgo, "unsupported signature algorithm"))
	}
	if !verifier.Verify(connect.SigPubKey, raw.HeaderAndPayload, raw.Trailer) {
		return nil, n.fail(domain.NewError(domain.ErrInvalidSignature, "CONNECT signature verification failed"))
	}
	if n.expectedRemotePubKey != nil && connect.SigPubKey != *n.expectedRemotePubKey {
		return nil, n.fail(domain.NewError(domain.ErrUnexpectedRemotePubkey, "remote SIG_PUBKEY does not match configured identity"))
	}

	n.remoteSigPubKey = &connect.SigPubKey
	n.remoteEPK = &connect.EPK
	n.remoteConnectReceived = true

	if !n.localConnectSent {
		frameCopy := raw
		n.pendingConnect = &frameCopy
		return nil, nil
	}

	if err := n.deriveSession(); err != nil {
		return nil, n.fail(err)
	}

	n.sendAck()

	return &domain.Event{Kind: domain.EventRemoteConnect, CustomData: connect.CustomData}, nil
}

// deriveSession computes the DH shared point, the HMAC-SHA384 seed, and
// the two per-direction AEAD instances, then zeroizes the ephemeral
// private key per spec.md §3.
func (n *Negotiator) deriveSession() *domain.Error {
	shared, err := cipher.DH(n.localEphPriv, *n.remoteEPK)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidState, "X25519 agreement failed", err)
	}
	cipher.ZeroPrivate(&n.localEphPriv)

	seed := cipher.DeriveSeed(n.localEphPub, *n.remoteEPK, shared)
	defer seed.Zero()

	sendAEAD, err := cipher.NewDirectionalAEAD(&seed)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidState, "AEAD construction failed", err)
	}
	recvAEAD, err := cipher.NewDirectionalAEAD(&seed)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidState, "AEAD construction failed", err)
	}
	n.sendAEAD = sendAEAD
	n.recvAEAD = recvAEAD
	return nil
}

// sendAck is implicit: receiving a valid remote CONNECT always produces
// our ACK bytes as a side effect ("or implicit upon receiving remote
// CONNECT"). The bytes are stashed in pendingAckBytes for the facade
// layer to drain after FeedBytes returns.
func (n *Negotiator) sendAck() {
	challenge := message.Challenge(*n.remoteEPK)
	body := message.EncodeAck(message.Ack{Challenge: challenge})
	headerAndPayload := framing.Encode(domain.MsgTypeAck, body)
	sig := signature.Ed25519.Sign(n.localSig.Private, headerAndPayload)
	n.pendingAckBytes = framing.AppendTrailer(headerAndPayload, sig)
	n.ackSent = true
}

func (n *Negotiator) handleAck(raw framing.RawMessage) (*domain.Event, error) {
	if n.ackReceived {
		return nil, n.fail(domain.NewError(domain.ErrInvalidState, "ACK received after ESTABLISHED"))
	}
	if !n.localConnectSent {
		return nil, n.fail(domain.NewError(domain.ErrInvalidState, "ACK received before local CONNECT sent"))
	}
	if !n.remoteConnectReceived || n.remoteSigPubKey == nil {
		return nil, n.fail(domain.NewError(domain.ErrAckBeforeConnect, "ACK received before remote CONNECT"))
	}

	ack, derr := message.DecodeAck(raw.Payload)
	if derr != nil {
		return nil, n.fail(derr.(*domain.Error))
	}

	expected := message.Challenge(n.localEphPub)
	if ack.Challenge != expected {
		return nil, n.fail(domain.NewError(domain.ErrInvalidChallenge, "ACK challenge does not match local EPK"))
	}

	verifier, ok := signature.VerifierForAlgo(domain.SigAlgoEd25519)
	if !ok || !verifier.Verify(*n.remoteSigPubKey, raw.HeaderAndPayload, raw.Trailer) {
		return nil, n.fail(domain.NewError(domain.ErrInvalidSignature, "ACK signature verification failed"))
	}

	n.ackReceived = true
	return &domain.Event{Kind: domain.EventRemoteAck, CustomData: ack.CustomData}, nil
}

func (n *Negotiator) handleUser(raw framing.RawMessage) (*domain.Event, error) {
	if !n.IsEstablished() {
		return nil, n.fail(domain.NewError(domain.ErrTooEarly, "USER frame before ESTABLISHED"))
	}

	plaintext, err := n.recvAEAD.Open(raw.Payload)
	if err != nil {
		return nil, n.fail(err.(*domain.Error))
	}
	return &domain.Event{Kind: domain.EventUserMessage, Plaintext: plaintext}, nil
}

// WriteUserMessage encrypts plaintext under the current send counter and
// frames it as a USER message. Requires ESTABLISHED.
func (n *Negotiator) WriteUserMessage(plaintext []byte) ([]byte, error) {
	if n.failed {
		return nil, domain.NewError(domain.ErrInvalidState, "session already failed")
	}
	if !n.IsEstablished() {
		return nil, domain.NewError(domain.ErrInvalidState, "write_user_message before ESTABLISHED")
	}

	ciphertext, err := n.sendAEAD.Seal(plaintext)
	if err != nil {
		return nil, n.fail(err.(*domain.Error))
	}
	return framing.Encode(domain.MsgTypeUser, ciphertext), nil
}

// TakePendingAckBytes returns and clears the ACK frame produced as a side
// effect of a just-processed remote CONNECT, or nil if none is pending.
func (n *Negotiator) TakePendingAckBytes() []byte {
	b := n.pendingAckBytes
	n.pendingAckBytes = nil
	return b
}
