package device

import (
	"time"

	"github.com/electro707/keyfob/pkg/message"
)

// txState sequences board-link responses against the host command that
// started them. There is exactly one transaction in flight per device.
type txState int

const (
	// txIdle: no multi-hop transaction in flight.
	txIdle txState = iota

	// txWaitPairedECDH: an unpaired fob is waiting for the paired
	// fob's RETURN_ECDH so it can forward the pairing PIN.
	txWaitPairedECDH

	// txWaitCarECDH: a paired fob is waiting for the car's RETURN_ECDH
	// so it can send the unlock token.
	txWaitCarECDH
)

// String returns the state name for logs.
func (s txState) String() string {
	switch s {
	case txIdle:
		return "IDLE"
	case txWaitPairedECDH:
		return "WAITING_FOR_PAIRED_ECDH"
	case txWaitCarECDH:
		return "WAITING_FOR_CAR_ECDH"
	default:
		return "UNKNOWN"
	}
}

// transaction is the coordinator's singleton state. The stashed PIN
// lives inside it for exactly as long as the pairing transaction does,
// so there is no standalone received-PIN buffer to go stale.
type transaction struct {
	state txState
	pin   [message.EncryptedPINSize]byte
	since time.Time
}

// waitPaired arms the pairing transaction with the PIN received from
// the host.
func (t *transaction) waitPaired(pin []byte) {
	t.state = txWaitPairedECDH
	copy(t.pin[:], pin)
	t.since = time.Now()
}

// waitCar arms the unlock transaction.
func (t *transaction) waitCar() {
	t.state = txWaitCarECDH
	t.since = time.Now()
}

// reset clears the transaction and wipes the stashed PIN.
func (t *transaction) reset() {
	t.state = txIdle
	for i := range t.pin {
		t.pin[i] = 0
	}
	t.since = time.Time{}
}

// expired reports whether the transaction has been in flight longer
// than timeout. A non-positive timeout disables the check.
func (t *transaction) expired(timeout time.Duration) bool {
	if t.state == txIdle || timeout <= 0 {
		return false
	}
	return time.Since(t.since) > timeout
}
