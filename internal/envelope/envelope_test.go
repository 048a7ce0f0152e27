package envelope_test

import (
	"testing"

	"github.com/librelois/pkstl/internal/domain"
	"github.com/librelois/pkstl/internal/envelope"
)

type payload struct {
	Name  string
	Count int
}

func TestPackUnpack_None(t *testing.T) {
	cfg := domain.Config{Serializer: domain.SerializerNone}.WithDefaults()

	packed, err := envelope.Pack(cfg, []byte("raw bytes"))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	var out []byte
	if err := envelope.Unpack(cfg, packed, &out); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if string(out) != "raw bytes" {
		t.Fatalf("got %q", out)
	}
}

func TestPackUnpack_CBOR(t *testing.T) {
	cfg := domain.Config{Serializer: domain.SerializerCBOR}.WithDefaults()
	in := payload{Name: "alice", Count: 7}

	packed, err := envelope.Pack(cfg, in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	var out payload
	if err := envelope.Unpack(cfg, packed, &out); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestPackUnpack_JSON(t *testing.T) {
	cfg := domain.Config{Serializer: domain.SerializerJSON}.WithDefaults()
	in := payload{Name: "bob", Count: 3}

	packed, err := envelope.Pack(cfg, in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	var out payload
	if err := envelope.Unpack(cfg, packed, &out); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestPackUnpack_Binary(t *testing.T) {
	cfg := domain.Config{Serializer: domain.SerializerBinary}.WithDefaults()
	in := payload{Name: "carol", Count: 42}

	packed, err := envelope.Pack(cfg, in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	var out payload
	if err := envelope.Unpack(cfg, packed, &out); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestPackUnpack_WithDeflate(t *testing.T) {
	cfg := domain.Config{Serializer: domain.SerializerJSON, Compression: domain.CompressionDeflate}.WithDefaults()
	in := payload{Name: "repeated-repeated-repeated", Count: 99}

	packed, err := envelope.Pack(cfg, in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	var out payload
	if err := envelope.Unpack(cfg, packed, &out); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}
