package pkstl_test

import (
	"crypto/rand"
	"testing"

	"github.com/librelois/pkstl"
	"github.com/librelois/pkstl/internal/signature"
)

func newIdentity(t *testing.T) pkstl.Ed25519KeyPair {
	t.Helper()
	kp, err := signature.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

// S1 happy path, driven through the public facade.
func TestSecureLayer_HandshakeAndUserRoundTrip(t *testing.T) {
	alice := newIdentity(t)
	bob := newIdentity(t)

	a, err := pkstl.NewSecureLayer(pkstl.Config{}, alice, &bob.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(a): %v", err)
	}
	b, err := pkstl.NewSecureLayer(pkstl.Config{}, bob, &alice.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(b): %v", err)
	}

	aConnect, err := a.CreateConnectMessage(nil)
	if err != nil {
		t.Fatalf("a.CreateConnectMessage: %v", err)
	}
	bConnect, err := b.CreateConnectMessage(nil)
	if err != nil {
		t.Fatalf("b.CreateConnectMessage: %v", err)
	}

	_, aAck, err := a.FeedBytes(bConnect)
	if err != nil {
		t.Fatalf("a.FeedBytes(bConnect): %v", err)
	}
	_, bAck, err := b.FeedBytes(aConnect)
	if err != nil {
		t.Fatalf("b.FeedBytes(aConnect): %v", err)
	}

	if _, _, err := a.FeedBytes(bAck); err != nil {
		t.Fatalf("a.FeedBytes(bAck): %v", err)
	}
	if _, _, err := b.FeedBytes(aAck); err != nil {
		t.Fatalf("b.FeedBytes(aAck): %v", err)
	}

	if !a.IsEstablished() || !b.IsEstablished() {
		t.Fatalf("expected both layers ESTABLISHED")
	}

	frame, err := a.WriteUserMessage([]byte("hello"))
	if err != nil {
		t.Fatalf("a.WriteUserMessage: %v", err)
	}
	events, _, err := b.FeedBytes(frame)
	if err != nil {
		t.Fatalf("b.FeedBytes(userFrame): %v", err)
	}
	if len(events) != 1 || string(events[0].Plaintext) != "hello" {
		t.Fatalf("got events %+v", events)
	}
}

// S2 wrong peer identity, through the facade.
func TestSecureLayer_UnexpectedRemotePubkey(t *testing.T) {
	alice := newIdentity(t)
	bob := newIdentity(t)
	impostor := newIdentity(t)

	a, err := pkstl.NewSecureLayer(pkstl.Config{}, alice, &impostor.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(a): %v", err)
	}
	b, err := pkstl.NewSecureLayer(pkstl.Config{}, bob, nil)
	if err != nil {
		t.Fatalf("NewSecureLayer(b): %v", err)
	}

	if _, err := a.CreateConnectMessage(nil); err != nil {
		t.Fatalf("a.CreateConnectMessage: %v", err)
	}
	bConnect, err := b.CreateConnectMessage(nil)
	if err != nil {
		t.Fatalf("b.CreateConnectMessage: %v", err)
	}

	if _, _, err := a.FeedBytes(bConnect); err == nil {
		t.Fatal("expected UnexpectedRemotePubkey error")
	}
}

// Config.RequireRemotePubkey pins the expected identity when the caller
// passes a nil expectedRemotePubKey argument.
func TestSecureLayer_RequireRemotePubkeyFromConfig(t *testing.T) {
	alice := newIdentity(t)
	bob := newIdentity(t)
	impostor := newIdentity(t)

	cfg := pkstl.Config{RequireRemotePubkey: &impostor.Public}
	a, err := pkstl.NewSecureLayer(cfg, alice, nil)
	if err != nil {
		t.Fatalf("NewSecureLayer(a): %v", err)
	}
	b, err := pkstl.NewSecureLayer(pkstl.Config{}, bob, nil)
	if err != nil {
		t.Fatalf("NewSecureLayer(b): %v", err)
	}

	if _, err := a.CreateConnectMessage(nil); err != nil {
		t.Fatalf("a.CreateConnectMessage: %v", err)
	}
	bConnect, err := b.CreateConnectMessage(nil)
	if err != nil {
		t.Fatalf("b.CreateConnectMessage: %v", err)
	}

	if _, _, err := a.FeedBytes(bConnect); err == nil {
		t.Fatal("expected UnexpectedRemotePubkey error from Config.RequireRemotePubkey")
	}
}

func TestSecureLayer_WriteReadUserObject(t *testing.T) {
	alice := newIdentity(t)
	bob := newIdentity(t)

	cfg := pkstl.Config{Serializer: pkstl.SerializerJSON}
	a, err := pkstl.NewSecureLayer(cfg, alice, &bob.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(a): %v", err)
	}
	b, err := pkstl.NewSecureLayer(cfg, bob, &alice.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(b): %v", err)
	}

	aConnect, _ := a.CreateConnectMessage(nil)
	bConnect, _ := b.CreateConnectMessage(nil)
	_, aAck, err := a.FeedBytes(bConnect)
	if err != nil {
		t.Fatalf("a.FeedBytes: %v", err)
	}
	_, bAck, err := b.FeedBytes(aConnect)
	if err != nil {
		t.Fatalf("b.FeedBytes: %v", err)
	}
	if _, _, err := a.FeedBytes(bAck); err != nil {
		t.Fatalf("a.FeedBytes(bAck): %v", err)
	}
	if _, _, err := b.FeedBytes(aAck); err != nil {
		t.Fatalf("b.FeedBytes(aAck): %v", err)
	}

	type chatMessage struct {
		Text string `json:"text"`
	}

	frame, err := a.WriteUserObject(chatMessage{Text: "hi there"})
	if err != nil {
		t.Fatalf("a.WriteUserObject: %v", err)
	}

	events, _, err := b.FeedBytes(frame)
	if err != nil {
		t.Fatalf("b.FeedBytes: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	var out chatMessage
	if err := b.ReadUserObject(events[0].Plaintext, &out); err != nil {
		t.Fatalf("b.ReadUserObject: %v", err)
	}
	if out.Text != "hi there" {
		t.Fatalf("got %+v", out)
	}
}

func TestSecureLayer_SetConfig_RejectedAfterEstablished(t *testing.T) {
	alice := newIdentity(t)
	bob := newIdentity(t)

	a, err := pkstl.NewSecureLayer(pkstl.Config{}, alice, &bob.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(a): %v", err)
	}
	b, err := pkstl.NewSecureLayer(pkstl.Config{}, bob, &alice.Public)
	if err != nil {
		t.Fatalf("NewSecureLayer(b): %v", err)
	}

	aConnect, _ := a.CreateConnectMessage(nil)
	bConnect, _ := b.CreateConnectMessage(nil)
	_, aAck, err := a.FeedBytes(bConnect)
	if err != nil {
		t.Fatalf("a.FeedBytes: %v", err)
	}
	_, bAck, err := b.FeedBytes(aConnect)
	if err != nil {
		t.Fatalf("b.FeedBytes: %v", err)
	}
	if _, _, err := a.FeedBytes(bAck); err != nil {
		t.Fatalf("a.FeedBytes(bAck): %v", err)
	}
	if _, _, err := b.FeedBytes(aAck); err != nil {
		t.Fatalf("b.FeedBytes(aAck): %v", err)
	}

	if err := a.SetConfig(pkstl.Config{Serializer: pkstl.SerializerCBOR}); err == nil {
		t.Fatal("expected SetConfig to fail once ESTABLISHED")
	}
}
