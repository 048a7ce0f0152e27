// Package envelope implements spec.md §4.6: the optional serializer and
// compression transforms applied to a caller's high-level message before
// it becomes CONNECT/ACK/USER custom-data. Order is serialize -> compress
// on the way out, and the inverse on the way in; either stage may be a
// no-op per domain.Config.
package envelope

import (
	"bytes"
	"compress/flate"
	"encoding/gob"
	"encoding/json"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/librelois/pkstl/internal/domain"
)

// Pack serializes v per cfg.Serializer, then compresses per cfg.Compression.
func Pack(cfg domain.Config, v any) ([]byte, error) {
	data, err := serialize(cfg.Serializer, v)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSerializationFailed, "serialize", err)
	}

	compressed, err := compress(cfg.Compression, data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCompressionFailed, "compress", err)
	}
	return compressed, nil
}

// Unpack reverses Pack: decompress then deserialize into v.
func Unpack(cfg domain.Config, data []byte, v any) error {
	decompressed, err := decompress(cfg.Compression, data)
	if err != nil {
		return domain.WrapError(domain.ErrCompressionFailed, "decompress", err)
	}

	if err := deserialize(cfg.Serializer, decompressed, v); err != nil {
		return domain.WrapError(domain.ErrSerializationFailed, "deserialize", err)
	}
	return nil
}

func serialize(s domain.Serializer, v any) ([]byte, error) {
	switch s {
	case domain.SerializerNone:
		b, ok := v.([]byte)
		if !ok {
			return nil, domain.NewError(domain.ErrSerializationFailed, "SerializerNone requires a []byte payload")
		}
		return b, nil
	case domain.SerializerBinary:
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case domain.SerializerCBOR:
		return cbor.Marshal(v)
	case domain.SerializerJSON:
		return json.Marshal(v)
	default:
		return nil, domain.NewError(domain.ErrSerializationFailed, "unknown serializer")
	}
}

func deserialize(s domain.Serializer, data []byte, v any) error {
	switch s {
	case domain.SerializerNone:
		out, ok := v.(*[]byte)
		if !ok {
			return domain.NewError(domain.ErrSerializationFailed, "SerializerNone requires a *[]byte target")
		}
		*out = append([]byte(nil), data...)
		return nil
	case domain.SerializerBinary:
		return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
	case domain.SerializerCBOR:
		return cbor.Unmarshal(data, v)
	case domain.SerializerJSON:
		return json.Unmarshal(data, v)
	default:
		return domain.NewError(domain.ErrSerializationFailed, "unknown serializer")
	}
}

func compress(c domain.Compression, data []byte) ([]byte, error) {
	if c == domain.CompressionOff {
		return data, nil
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(c domain.Compression, data []byte) ([]byte, error) {
	if c == domain.CompressionOff {
		return data, nil
	}

	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}
