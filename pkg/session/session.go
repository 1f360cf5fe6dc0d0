// Package session implements the per-link ephemeral-key session: one
// ECDH agreement plus the AES-CBC context derived from it, lasting from
// NEW_ECDH to an explicit teardown.
//
// A session moves through three states:
//
//	Idle ── Begin ──> Handshaking ── EstablishInitiator ──> Established
//	Idle ──────────── EstablishResponder ─────────────────> Established
//
// Key material only exists in the state that needs it: the ephemeral
// key pair while handshaking, the AES context once established. Reset
// from any state wipes both.
package session

import (
	"github.com/electro707/keyfob/pkg/crypto"
)

type state int

const (
	stateIdle state = iota
	stateHandshaking
	stateEstablished
)

// Session is the key-agreement and cipher state of one link. Not safe
// for concurrent use; every device mutates its links from a single
// polling context.
type Session struct {
	state   state
	keyPair *crypto.P192KeyPair
	iv      [crypto.AESBlockSize]byte
	aes     *crypto.AESCBC
}

// New returns an idle session.
func New() *Session {
	return &Session{}
}

// Established reports whether key agreement completed. When true the
// AES context is initialized from the last peer public key seen on this
// link and the local ephemeral secret.
func (s *Session) Established() bool {
	return s.state == stateEstablished
}

// Handshaking reports whether this side initiated an exchange that has
// not completed yet.
func (s *Session) Handshaking() bool {
	return s.state == stateHandshaking
}

// Begin starts an initiator handshake: a fresh ephemeral key pair and a
// fresh random IV. It returns the 48-byte public key and the 16-byte IV
// for the NEW_ECDH payload.
func (s *Session) Begin() (publicKey, iv []byte, err error) {
	s.Reset()

	kp, err := crypto.GenerateP192KeyPair()
	if err != nil {
		return nil, nil, err
	}
	if err := crypto.ReadRandom(s.iv[:]); err != nil {
		kp.Wipe()
		return nil, nil, err
	}

	s.keyPair = kp
	s.state = stateHandshaking
	return kp.PublicKey(), s.iv[:], nil
}

// EstablishInitiator completes an initiator handshake from the peer's
// RETURN_ECDH public key.
func (s *Session) EstablishInitiator(peerPublic []byte) error {
	if s.state != stateHandshaking {
		return ErrNotHandshaking
	}

	shared, err := s.keyPair.SharedSecret(peerPublic)
	if err != nil {
		s.Reset()
		return ErrBadPublicKey
	}
	return s.install(shared)
}

// EstablishResponder answers a NEW_ECDH: generates a local ephemeral
// key pair, adopts the initiator's IV, derives the shared secret, and
// returns the 48-byte local public key for the RETURN_ECDH reply.
func (s *Session) EstablishResponder(peerPublic, iv []byte) ([]byte, error) {
	if s.state == stateEstablished {
		return nil, ErrAlreadyEstablished
	}
	if len(iv) != crypto.AESBlockSize {
		return nil, ErrBadIV
	}

	kp, err := crypto.GenerateP192KeyPair()
	if err != nil {
		return nil, err
	}

	shared, err := kp.SharedSecret(peerPublic)
	if err != nil {
		kp.Wipe()
		s.Reset()
		return nil, ErrBadPublicKey
	}

	// install wipes the key pair, public half included, so keep a copy.
	localPublic := append([]byte(nil), kp.PublicKey()...)

	s.keyPair = kp
	copy(s.iv[:], iv)
	if err := s.install(shared); err != nil {
		return nil, err
	}
	return localPublic, nil
}

// install derives the AES context from the shared secret and the
// session IV, then discards the ephemeral key pair.
func (s *Session) install(shared []byte) error {
	aes, err := crypto.NewAESCBC(shared, s.iv[:])
	if err != nil {
		s.Reset()
		return err
	}
	for i := range shared {
		shared[i] = 0
	}

	s.keyPair.Wipe()
	s.keyPair = nil
	s.aes = aes
	s.state = stateEstablished
	return nil
}

// Encrypt encrypts buf in place. Only valid once established.
func (s *Session) Encrypt(buf []byte) error {
	if s.state != stateEstablished {
		return ErrNotEstablished
	}
	return s.aes.Encrypt(buf)
}

// Decrypt decrypts buf in place. Only valid once established.
func (s *Session) Decrypt(buf []byte) error {
	if s.state != stateEstablished {
		return ErrNotEstablished
	}
	return s.aes.Decrypt(buf)
}

// Reset tears the session down and wipes key material. Called on any
// NACK sent or received, after one-shot peer operations, and on
// transaction completion.
func (s *Session) Reset() {
	if s.keyPair != nil {
		s.keyPair.Wipe()
		s.keyPair = nil
	}
	if s.aes != nil {
		s.aes.Wipe()
		s.aes = nil
	}
	for i := range s.iv {
		s.iv[i] = 0
	}
	s.state = stateIdle
}
