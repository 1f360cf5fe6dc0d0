package device

import (
	"github.com/electro707/keyfob/pkg/link"
	"github.com/electro707/keyfob/pkg/message"
)

// Expected payload lengths after decryption. Encrypted commands arrive
// padded to a block multiple, so the on-wire length is the padded form
// of command byte + fields.
var paddedLengths = map[message.Command]int{
	message.CmdPairUnpairedStart: 48, // 1 + 32 -> 48
	message.CmdGetSecret:         48, // 1 + 32 -> 48
	message.CmdReturnSecret:      32, // 1 + 16 -> 32
	message.CmdEnableFeature:     64, // 1 + 48 -> 64
	message.CmdUnlockCar:         32, // 1 + 16 + 1 -> 32
}

// handleFrame routes one validated, decrypted frame. A link whose
// session is not established only ever routes to handshake logic; role
// handlers never see cleartext frames.
func (d *Device) handleFrame(l *link.Link, frame *message.Frame) {
	if !l.Established() {
		d.handleHandshake(l, frame)
		return
	}

	cmd := frame.Command()
	d.log.Tracef("%s: %s", l.Name(), cmd)

	switch d.config.Role {
	case RoleCar:
		d.handleCarBoard(frame)
	case RoleFob:
		if l == d.host {
			d.handleFobHost(frame)
		} else {
			d.handleFobBoard(frame)
		}
	}
}

// handleHandshake services a frame on an unestablished link: a NEW_ECDH
// makes us the responder, a RETURN_ECDH completes an exchange we
// initiated, anything else ends the handshake.
func (d *Device) handleHandshake(l *link.Link, frame *message.Frame) {
	switch frame.Command() {
	case message.CmdNewECDH:
		if err := l.AcceptHandshake(frame); err != nil {
			d.log.Warnf("%s: handshake rejected: %v", l.Name(), err)
			d.failLink(l)
		}

	case message.CmdReturnECDH:
		if !l.Handshaking() {
			d.failLink(l)
			return
		}
		if err := l.CompleteHandshake(frame); err != nil {
			d.log.Warnf("%s: handshake completion failed: %v", l.Name(), err)
			d.failLink(l)
			return
		}
		if l == d.board {
			d.onBoardSessionEstablished()
		}

	case message.CmdNack:
		// The peer gave up mid-handshake.
		l.Teardown()
		d.failTransaction(l)

	default:
		d.log.Infof("%s: %v during handshake: %s", l.Name(), ErrUnexpectedCommand, frame.Command())
		d.failLink(l)
	}
}

// onBoardSessionEstablished is the transaction coordinator's hook: the
// board session we initiated is live, so send the step the transaction
// was waiting to send.
func (d *Device) onBoardSessionEstablished() {
	switch d.tx.state {
	case txWaitPairedECDH:
		if err := d.board.Send(message.CmdGetSecret, d.tx.pin[:]); err != nil {
			d.log.Warnf("board: GET_SECRET send failed: %v", err)
			d.failLink(d.board)
		}

	case txWaitCarECDH:
		token := make([]byte, 0, CarSecretSize+1)
		token = append(token, d.state.CarSecret[:]...)
		token = append(token, d.state.FeatureBitfield)
		if err := d.board.Send(message.CmdUnlockCar, token); err != nil {
			d.log.Warnf("board: UNLOCK_CAR send failed: %v", err)
		}
		// Fire and forget: the fob does not wait for a reply.
		d.board.Teardown()
		d.tx.reset()

	default:
		// Nobody asked for this session.
		d.failLink(d.board)
	}
}

// failLink emits exactly one NACK on the offending link and tears its
// session down; if the link carries an active transaction the failure
// propagates toward the host.
func (d *Device) failLink(l *link.Link) {
	if err := l.SendNack(); err != nil {
		d.log.Warnf("%s: NACK send failed: %v", l.Name(), err)
	}
	d.failTransaction(l)
}

// failTransaction clears the coordinator if l is the board link of a
// host-initiated transaction, forwarding the NACK to the host.
func (d *Device) failTransaction(l *link.Link) {
	if l != d.board || d.tx.state == txIdle {
		return
	}

	propagate := d.tx.state == txWaitPairedECDH
	d.tx.reset()
	if propagate {
		if err := d.host.SendNack(); err != nil {
			d.log.Warnf("host: NACK propagation failed: %v", err)
		}
	}
}
