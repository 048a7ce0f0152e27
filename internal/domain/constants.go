package domain

// MagicValue identifies a PKSTL frame on the wire.
var MagicValue = [4]byte{0xE2, 0xC2, 0xE2, 0xD2}

// CurrentVersion is the only protocol version this implementation speaks.
const CurrentVersion uint32 = 1

// MsgType tags the MSG_TYPE field of the frame header.
type MsgType uint16

const (
	MsgTypeUser    MsgType = 0
	MsgTypeConnect MsgType = 1
	MsgTypeAck     MsgType = 2
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeUser:
		return "USER"
	case MsgTypeConnect:
		return "CONNECT"
	case MsgTypeAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// SigAlgo tags the signature-algorithm field of a CONNECT payload.
type SigAlgo uint32

const (
	// SigAlgoEd25519 is the only signature algorithm PKSTL speaks today.
	SigAlgoEd25519 SigAlgo = 1
)

const (
	// HeaderSize is the fixed-size prefix of every frame:
	// magic(4) || version(4) || encapsulated_len(8) || msg_type(2).
	HeaderSize = 4 + 4 + 8 + 2

	// TrailerSize is the Ed25519 signature trailer present on CONNECT/ACK.
	TrailerSize = 64

	// EPKSize is the size of an X25519 ephemeral public key.
	EPKSize = 32

	// SigPubKeySize is the size of an Ed25519 long-term public key.
	SigPubKeySize = 32

	// ChallengeSize is the size of the ACK challenge (SHA-256 digest).
	ChallengeSize = 32

	// AEADTagSize is the Poly1305 authentication tag size.
	AEADTagSize = 16

	// SeedSize is the HMAC-SHA384 derived seed length (key || nonce || aad).
	SeedSize = 48

	// AEADKeySize is the ChaCha20-Poly1305 key size carved from the seed.
	AEADKeySize = 32

	// AEADNonceSize is the ChaCha20-Poly1305 nonce size carved from the seed.
	AEADNonceSize = 12

	// AEADAssocDataSize is the associated-data tag carved from the seed.
	AEADAssocDataSize = 4

	// ConnectFixedSize is the fixed portion of a CONNECT payload:
	// EPK(32) || SIG_ALGO(4) || SIG_PUBKEY(32).
	ConnectFixedSize = EPKSize + 4 + SigPubKeySize

	// AckFixedSize is the fixed portion of an ACK payload: CHALLENGE(32).
	AckFixedSize = ChallengeSize

	// DefaultMaxFrameSize bounds ENCAPSULATED_LEN; 40 MiB per spec.
	DefaultMaxFrameSize uint64 = 40 * 1024 * 1024
)
