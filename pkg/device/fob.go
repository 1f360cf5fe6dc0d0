package device

import (
	"bytes"

	"github.com/electro707/keyfob/pkg/crypto"
	"github.com/electro707/keyfob/pkg/message"
)

// Feature blob layout after decryption: a car-ID prefix, the encrypted
// PIN, and the feature number.
const (
	featureBlobCarIDSize = 6
	featureBlobPINOffset = featureBlobCarIDSize
	featureBlobNumOffset = featureBlobPINOffset + StoredPINSize
)

// handleFobHost services host commands on an established host session.
func (d *Device) handleFobHost(frame *message.Frame) {
	switch frame.Command() {
	case message.CmdPairPairedEnter:
		// The host nominates us as the pairing source; only a paired
		// fob can serve.
		if !d.state.IsPaired() {
			d.failLink(d.host)
			return
		}
		if err := d.host.SendAck(); err != nil {
			d.log.Warnf("host: ACK send failed: %v", err)
		}

	case message.CmdPairUnpairedStart:
		d.startPairing(frame)

	case message.CmdEnableFeature:
		if !d.state.IsPaired() {
			d.failLink(d.host)
			return
		}
		if len(frame.Payload) != paddedLengths[message.CmdEnableFeature] {
			d.failLink(d.host)
			return
		}
		if err := d.enableFeature(frame.Payload[1 : 1+message.FeatureBlobSize]); err != nil {
			d.log.Infof("feature enable rejected: %v", err)
			d.failLink(d.host)
			return
		}
		if err := d.host.SendAck(); err != nil {
			d.log.Warnf("host: ACK send failed: %v", err)
		}

	case message.CmdAck:
		// Host-side ACKs carry no action.

	case message.CmdNack:
		d.host.Teardown()

	default:
		d.log.Infof("host: %v: %s", ErrUnexpectedCommand, frame.Command())
		d.failLink(d.host)
	}
}

// startPairing begins T1 on the unpaired side: stash the PIN the host
// presented and open a session toward the paired fob.
func (d *Device) startPairing(frame *message.Frame) {
	if d.state.IsPaired() {
		// A paired fob cannot be paired again.
		d.failLink(d.host)
		return
	}
	if len(frame.Payload) != paddedLengths[message.CmdPairUnpairedStart] {
		d.failLink(d.host)
		return
	}
	if d.tx.state != txIdle {
		d.failLink(d.host)
		return
	}

	if err := d.board.BeginHandshake(); err != nil {
		d.log.Warnf("board: pairing handshake failed: %v", err)
		d.failLink(d.host)
		return
	}
	d.tx.waitPaired(frame.Payload[1 : 1+message.EncryptedPINSize])
}

// handleFobBoard services peer-fob commands on an established board
// session.
func (d *Device) handleFobBoard(frame *message.Frame) {
	switch frame.Command() {
	case message.CmdGetSecret:
		d.serveSecret(frame)

	case message.CmdReturnSecret:
		d.finishPairing(frame)

	case message.CmdAck:
		// Nothing pending on an ACK.

	case message.CmdNack:
		d.board.Teardown()
		d.failTransaction(d.board)

	default:
		d.log.Infof("board: %v: %s", ErrUnexpectedCommand, frame.Command())
		d.failLink(d.board)
	}
}

// serveSecret is the paired side of T1: compare the presented PIN
// against the stored one and hand over the car secret on a match. The
// session is one-shot either way.
func (d *Device) serveSecret(frame *message.Frame) {
	if !d.state.IsPaired() {
		d.log.Infof("GET_SECRET rejected: %v", ErrRoleMismatch)
		d.failLink(d.board)
		return
	}
	if len(frame.Payload) != paddedLengths[message.CmdGetSecret] {
		d.failLink(d.board)
		return
	}

	presented := frame.Payload[1 : 1+StoredPINSize]
	if !bytes.Equal(presented, d.state.EncryptedPIN[:]) {
		d.log.Infof("GET_SECRET rejected: %v", ErrPINMismatch)
		d.failLink(d.board)
		return
	}

	if err := d.board.Send(message.CmdReturnSecret, d.state.CarSecret[:]); err != nil {
		d.log.Warnf("board: RETURN_SECRET send failed: %v", err)
	}
	d.board.Teardown()
}

// finishPairing is the unpaired side's last T1 step: persist the
// credentials and acknowledge the host.
func (d *Device) finishPairing(frame *message.Frame) {
	if d.tx.state != txWaitPairedECDH {
		d.failLink(d.board)
		return
	}
	if len(frame.Payload) != paddedLengths[message.CmdReturnSecret] {
		d.failLink(d.board)
		return
	}
	if d.state.IsPaired() {
		// Should not happen: a paired fob never starts T1.
		d.board.Teardown()
		d.tx.reset()
		d.failLink(d.host)
		return
	}

	next := d.state
	next.Paired = StatePaired
	copy(next.EncryptedPIN[:], d.tx.pin[:StoredPINSize])
	copy(next.CarSecret[:], frame.Payload[1:1+CarSecretSize])

	d.board.Teardown()
	d.tx.reset()

	if err := d.commitState(next); err != nil {
		d.failLink(d.host)
		return
	}
	if err := d.host.SendAck(); err != nil {
		d.log.Warnf("host: ACK send failed: %v", err)
	}
	d.log.Infof("paired")
}

// enableFeature decrypts and validates a feature blob, then commits the
// new bitfield. The blob must name this car, carry the stored PIN, and
// select one of the three packaged features.
func (d *Device) enableFeature(blob []byte) error {
	ctx, err := crypto.NewAESCBC(d.config.FeatureKey[:], make([]byte, crypto.AESBlockSize))
	if err != nil {
		return err
	}

	buf := append([]byte(nil), blob...)
	if err := ctx.Decrypt(buf); err != nil {
		return err
	}

	if !bytes.Equal(buf[:featureBlobCarIDSize], d.config.CarID[:featureBlobCarIDSize]) {
		return ErrCarIDMismatch
	}
	if !bytes.Equal(buf[featureBlobPINOffset:featureBlobPINOffset+StoredPINSize], d.state.EncryptedPIN[:]) {
		return ErrPINMismatch
	}

	featureNum := buf[featureBlobNumOffset]
	if featureNum >= FeatureCount {
		return ErrBadFeatureNumber
	}

	next := d.state
	next.FeatureBitfield |= 1 << featureNum
	return d.commitState(next)
}
