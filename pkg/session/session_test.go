package session

import (
	"bytes"
	"testing"

	"github.com/electro707/keyfob/pkg/crypto"
)

// establishPair runs a full handshake between an initiator and a
// responder session and returns both established.
func establishPair(t *testing.T) (initiator, responder *Session) {
	t.Helper()

	initiator = New()
	responder = New()

	pub, iv, err := initiator.Begin()
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if len(pub) != crypto.P192PublicKeySizeBytes {
		t.Fatalf("initiator public key size = %d, want %d", len(pub), crypto.P192PublicKeySizeBytes)
	}
	if len(iv) != crypto.AESBlockSize {
		t.Fatalf("IV size = %d, want %d", len(iv), crypto.AESBlockSize)
	}

	respPub, err := responder.EstablishResponder(pub, iv)
	if err != nil {
		t.Fatalf("EstablishResponder() error: %v", err)
	}
	if err := initiator.EstablishInitiator(respPub); err != nil {
		t.Fatalf("EstablishInitiator() error: %v", err)
	}
	return initiator, responder
}

func TestSessionEstablishment(t *testing.T) {
	initiator, responder := establishPair(t)

	if !initiator.Established() || !responder.Established() {
		t.Fatal("sessions not established after handshake")
	}

	// Both sides must have derived the same key: a message encrypted by
	// one decrypts on the other.
	msg := bytes.Repeat([]byte{0xC3}, 32)
	buf := append([]byte(nil), msg...)
	if err := initiator.Encrypt(buf); err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if err := responder.Decrypt(buf); err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(buf, msg) {
		t.Error("cross-session roundtrip mismatch")
	}
}

func TestSessionGuards(t *testing.T) {
	s := New()

	if err := s.Encrypt(make([]byte, 16)); err != ErrNotEstablished {
		t.Errorf("Encrypt on idle: err = %v, want ErrNotEstablished", err)
	}
	if err := s.Decrypt(make([]byte, 16)); err != ErrNotEstablished {
		t.Errorf("Decrypt on idle: err = %v, want ErrNotEstablished", err)
	}
	if err := s.EstablishInitiator(make([]byte, 48)); err != ErrNotHandshaking {
		t.Errorf("EstablishInitiator on idle: err = %v, want ErrNotHandshaking", err)
	}
}

func TestSessionBadPeerKey(t *testing.T) {
	s := New()
	if _, _, err := s.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	if err := s.EstablishInitiator(make([]byte, 48)); err != ErrBadPublicKey {
		t.Errorf("zero public key: err = %v, want ErrBadPublicKey", err)
	}
	// Failed establishment tears the handshake down.
	if s.Handshaking() || s.Established() {
		t.Error("session not reset after bad peer key")
	}
}

func TestSessionResponderBadIV(t *testing.T) {
	initiator := New()
	pub, _, err := initiator.Begin()
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	responder := New()
	if _, err := responder.EstablishResponder(pub, make([]byte, 8)); err != ErrBadIV {
		t.Errorf("short IV: err = %v, want ErrBadIV", err)
	}
}

func TestSessionReset(t *testing.T) {
	initiator, responder := establishPair(t)

	initiator.Reset()
	if initiator.Established() {
		t.Error("initiator still established after Reset")
	}
	if err := initiator.Encrypt(make([]byte, 16)); err != ErrNotEstablished {
		t.Errorf("Encrypt after Reset: err = %v, want ErrNotEstablished", err)
	}

	// The peer is unaffected until it resets too.
	if !responder.Established() {
		t.Error("responder lost its session on peer reset")
	}
}

func TestSessionRekeyAfterReset(t *testing.T) {
	a, b := establishPair(t)
	a.Reset()
	b.Reset()

	// A new handshake on the same session objects must work.
	a2, b2 := a, b
	pub, iv, err := a2.Begin()
	if err != nil {
		t.Fatalf("Begin() after reset error: %v", err)
	}
	respPub, err := b2.EstablishResponder(pub, iv)
	if err != nil {
		t.Fatalf("EstablishResponder() after reset error: %v", err)
	}
	if err := a2.EstablishInitiator(respPub); err != nil {
		t.Fatalf("EstablishInitiator() after reset error: %v", err)
	}
	if !a2.Established() || !b2.Established() {
		t.Error("re-established sessions not live")
	}
}
