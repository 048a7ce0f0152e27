// Package framing implements the PKSTL wire codec of spec.md §4.1 and
// §6: the fixed 18-byte header, the trailing Ed25519 signature present
// on CONNECT/ACK, and the length-prefixed frame boundary detection that
// lets a caller feed bytes one chunk at a time.
package framing

import (
	"encoding/binary"

	"github.com/librelois/pkstl/internal/domain"
)

// RawMessage is one fully-parsed frame: the header fields plus the
// payload and (for CONNECT/ACK) the trailing signature, still opaque to
// this package — decoding MSG_CONTENT is internal/message's job.
type RawMessage struct {
	MsgType domain.MsgType
	Payload []byte // MSG_CONTENT, excluding the trailer
	Trailer []byte // 64-byte signature, present iff MsgType is CONNECT/ACK

	// HeaderAndPayload is the header || payload span the trailer
	// signature (CONNECT/ACK) is computed over.
	HeaderAndPayload []byte
}

// Encode builds the header||payload span of a frame: magic || version ||
// encapsulated_len || msg_type || payload. For CONNECT/ACK the caller
// signs this span and appends the result with AppendTrailer; USER
// frames are complete as returned (the AEAD tag travels inside payload).
func Encode(msgType domain.MsgType, payload []byte) []byte {
	encapsulatedLen := uint64(2 + len(payload))
	out := make([]byte, 0, domain.HeaderSize+len(payload)+domain.TrailerSize)
	out = append(out, domain.MagicValue[:]...)

	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], domain.CurrentVersion)
	out = append(out, versionBuf[:]...)

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], encapsulatedLen)
	out = append(out, lenBuf[:]...)

	var typeBuf [2]byte
	binary.BigEndian.PutUint16(typeBuf[:], uint16(msgType))
	out = append(out, typeBuf[:]...)

	out = append(out, payload...)
	return out
}

// AppendTrailer appends a precomputed trailer (signature) to an encoded
// header||payload span, producing the final frame bytes.
func AppendTrailer(headerAndPayload []byte, trailer []byte) []byte {
	out := make([]byte, 0, len(headerAndPayload)+len(trailer))
	out = append(out, headerAndPayload...)
	out = append(out, trailer...)
	return out
}

// TryParse attempts to decode exactly one frame from the front of buf.
// It returns domain.ErrNeedMoreBytes (via IsNeedMore) when buf does not
// yet hold a complete frame, and consumes the parsed frame's bytes from
// buf on success. maxFrameSize bounds ENCAPSULATED_LEN (spec.md §4.1,
// "TooLong" before any payload bytes are read, satisfying S6).
func TryParse(buf *Buffer, maxFrameSize uint64) (RawMessage, error) {
	data := buf.Bytes()
	if len(data) < domain.HeaderSize {
		return RawMessage{}, domain.ErrNeedMoreBytes
	}

	if data[0] != domain.MagicValue[0] || data[1] != domain.MagicValue[1] ||
		data[2] != domain.MagicValue[2] || data[3] != domain.MagicValue[3] {
		return RawMessage{}, domain.NewError(domain.ErrBadMagic, "bad magic value")
	}

	version := binary.BigEndian.Uint32(data[4:8])
	if version != domain.CurrentVersion {
		return RawMessage{}, domain.NewError(domain.ErrUnsupportedVersion, "unsupported version")
	}

	encapsulatedLen := binary.BigEndian.Uint64(data[8:16])
	if encapsulatedLen > maxFrameSize {
		return RawMessage{}, domain.NewError(domain.ErrTooLong, "encapsulated length exceeds max frame size")
	}
	if encapsulatedLen < 2 {
		return RawMessage{}, domain.NewError(domain.ErrBadMagic, "encapsulated length too short for a msg type")
	}

	msgType := domain.MsgType(binary.BigEndian.Uint16(data[16:18]))
	payloadLen := int(encapsulatedLen) - 2

	trailerLen := 0
	if msgType == domain.MsgTypeConnect || msgType == domain.MsgTypeAck {
		trailerLen = domain.TrailerSize
	}

	total := domain.HeaderSize + payloadLen + trailerLen
	if len(data) < total {
		return RawMessage{}, domain.ErrNeedMoreBytes
	}

	headerAndPayload := make([]byte, domain.HeaderSize+payloadLen)
	copy(headerAndPayload, data[:domain.HeaderSize+payloadLen])

	payload := headerAndPayload[domain.HeaderSize:]

	var trailer []byte
	if trailerLen > 0 {
		trailer = make([]byte, trailerLen)
		copy(trailer, data[domain.HeaderSize+payloadLen:total])
	}

	buf.Consume(total)

	return RawMessage{
		MsgType:          msgType,
		Payload:          payload,
		Trailer:          trailer,
		HeaderAndPayload: headerAndPayload,
	}, nil
}
