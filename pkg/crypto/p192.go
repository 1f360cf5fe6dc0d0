package crypto

import (
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"
)

// secp192r1 constants.
const (
	// P192GroupSizeBytes is the group size in bytes.
	P192GroupSizeBytes = 24

	// P192PublicKeySizeBytes is the public key size: X (24 bytes) || Y (24 bytes).
	P192PublicKeySizeBytes = 48

	// P192SharedSecretSizeBytes is the ECDH shared secret size (X coordinate).
	// The shared secret is used directly as the AES-192 session key.
	P192SharedSecretSizeBytes = 24
)

var (
	// ErrP192InvalidPublicKey is returned for a malformed or off-curve public key.
	ErrP192InvalidPublicKey = errors.New("crypto: invalid P-192 public key")

	// ErrP192InvalidPrivateKey is returned for a private key of the wrong size.
	ErrP192InvalidPrivateKey = errors.New("crypto: invalid P-192 private key")
)

// p192 holds the secp192r1 domain parameters (SEC 2, Section 2.5.1).
// The standard library dropped the named P-192 curve, so the parameters
// are instantiated directly; point arithmetic stays in crypto/elliptic.
var p192 *elliptic.CurveParams

func init() {
	p192 = &elliptic.CurveParams{Name: "P-192"}
	p192.P, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffeffffffffffffffff", 16)
	p192.N, _ = new(big.Int).SetString("ffffffffffffffffffffffff99def836146bc9b1b4d22831", 16)
	p192.B, _ = new(big.Int).SetString("64210519e59c80e70fa7e9ab72243049feb8deecc146b9b1", 16)
	p192.Gx, _ = new(big.Int).SetString("188da80eb03090f67cbf20eb43a18800f4ff0afd82ff1012", 16)
	p192.Gy, _ = new(big.Int).SetString("07192b95ffc8da78631011ed6b24cdd573f977a11e794811", 16)
	p192.BitSize = 192
}

// P192KeyPair is an ephemeral ECDH key pair on secp192r1.
// One is generated per session handshake and discarded on teardown.
type P192KeyPair struct {
	private []byte   // 24-byte scalar
	public  [P192PublicKeySizeBytes]byte
}

// GenerateP192KeyPair generates a new ephemeral key pair using the
// module's entropy source.
func GenerateP192KeyPair() (*P192KeyPair, error) {
	priv, x, y, err := elliptic.GenerateKey(p192, randReader())
	if err != nil {
		return nil, fmt.Errorf("failed to generate P-192 key: %w", err)
	}

	kp := &P192KeyPair{private: priv}
	writeCoordinate(kp.public[:P192GroupSizeBytes], x)
	writeCoordinate(kp.public[P192GroupSizeBytes:], y)
	return kp, nil
}

// P192KeyPairFromPrivateKey creates a key pair from an existing 24-byte scalar.
func P192KeyPairFromPrivateKey(privateKey []byte) (*P192KeyPair, error) {
	if len(privateKey) != P192GroupSizeBytes {
		return nil, ErrP192InvalidPrivateKey
	}

	x, y := p192.ScalarBaseMult(privateKey)
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, ErrP192InvalidPrivateKey
	}

	kp := &P192KeyPair{private: append([]byte(nil), privateKey...)}
	writeCoordinate(kp.public[:P192GroupSizeBytes], x)
	writeCoordinate(kp.public[P192GroupSizeBytes:], y)
	return kp, nil
}

// PublicKey returns the 48-byte public key (X || Y, each 24 bytes).
// This is the form carried in NEW_ECDH and RETURN_ECDH payloads.
func (kp *P192KeyPair) PublicKey() []byte {
	return kp.public[:]
}

// SharedSecret computes the 24-byte ECDH shared secret with the peer's
// 48-byte public key. The X coordinate of the shared point is the secret.
func (kp *P192KeyPair) SharedSecret(peerPublic []byte) ([]byte, error) {
	x, y, err := parseP192Public(peerPublic)
	if err != nil {
		return nil, err
	}

	sx, _ := p192.ScalarMult(x, y, kp.private)
	secret := make([]byte, P192SharedSecretSizeBytes)
	writeCoordinate(secret, sx)
	return secret, nil
}

// Wipe zeroes the private scalar. The key pair is unusable afterwards.
func (kp *P192KeyPair) Wipe() {
	for i := range kp.private {
		kp.private[i] = 0
	}
	for i := range kp.public {
		kp.public[i] = 0
	}
}

// P192ValidatePublicKey checks that a 48-byte public key is a point on
// the curve.
func P192ValidatePublicKey(publicKey []byte) error {
	_, _, err := parseP192Public(publicKey)
	return err
}

func parseP192Public(publicKey []byte) (x, y *big.Int, err error) {
	if len(publicKey) != P192PublicKeySizeBytes {
		return nil, nil, ErrP192InvalidPublicKey
	}

	x = new(big.Int).SetBytes(publicKey[:P192GroupSizeBytes])
	y = new(big.Int).SetBytes(publicKey[P192GroupSizeBytes:])
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, nil, ErrP192InvalidPublicKey
	}
	if !p192.IsOnCurve(x, y) {
		return nil, nil, ErrP192InvalidPublicKey
	}
	return x, y, nil
}

// writeCoordinate right-aligns a big.Int into a fixed-width buffer.
func writeCoordinate(dst []byte, v *big.Int) {
	b := v.Bytes()
	for i := range dst {
		dst[i] = 0
	}
	copy(dst[len(dst)-len(b):], b)
}
