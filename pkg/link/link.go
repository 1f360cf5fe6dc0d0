// Package link binds one serial port to its framing receiver and its
// session: the per-UART state a device owns twice, once toward the host
// and once toward the peer board.
package link

import (
	"github.com/pion/logging"

	"github.com/electro707/keyfob/pkg/crypto"
	"github.com/electro707/keyfob/pkg/message"
	"github.com/electro707/keyfob/pkg/session"
	"github.com/electro707/keyfob/pkg/transport"
)

// Link is one point-to-point protocol endpoint. It owns the receive
// state machine and the session cipher for its port. Mutated only from
// the device's polling context.
type Link struct {
	name string
	port transport.Port
	recv *message.Receiver
	sess *session.Session
	log  logging.LeveledLogger
}

// New creates a link over port. name tags log lines ("host"/"board").
func New(name string, port transport.Port, loggerFactory logging.LoggerFactory) *Link {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Link{
		name: name,
		port: port,
		recv: message.NewReceiver(),
		sess: session.New(),
		log:  loggerFactory.NewLogger("link"),
	}
}

// Name returns the link's tag.
func (l *Link) Name() string { return l.name }

// Established reports whether this link's session completed key
// agreement.
func (l *Link) Established() bool { return l.sess.Established() }

// Handshaking reports whether this side initiated a handshake that has
// not completed.
func (l *Link) Handshaking() bool { return l.sess.Handshaking() }

// Poll services at most one buffered byte. When that byte completes a
// frame, the frame is validated (CRC, minimum length, block alignment
// on established sessions), decrypted if the session is live, and
// returned. Anything malformed is dropped silently, per the framing
// error policy: no wire response, receiver back to reset.
func (l *Link) Poll() *message.Frame {
	if !l.port.Available() {
		return nil
	}
	b, err := l.port.ReadByte()
	if err != nil {
		return nil
	}

	frame := l.recv.Feed(b)
	if frame == nil {
		return nil
	}

	if !frame.Valid() {
		l.log.Debugf("%s: dropping frame, CRC mismatch", l.name)
		return nil
	}

	if l.sess.Established() {
		if len(frame.Payload)%message.BlockSize != 0 {
			l.log.Debugf("%s: dropping frame, %d bytes not block aligned", l.name, len(frame.Payload))
			return nil
		}
		if err := l.sess.Decrypt(frame.Payload); err != nil {
			l.log.Warnf("%s: decrypt failed: %v", l.name, err)
			return nil
		}
	}
	return frame
}

// Send transmits one frame carrying cmd and data. Handshake commands go
// out in cleartext. Other commands are padded to a block multiple with
// random fill and encrypted under the session; without an established
// session only ACK/NACK may be sent (in cleartext, terminating a failed
// handshake).
func (l *Link) Send(cmd message.Command, data []byte) error {
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, byte(cmd))
	payload = append(payload, data...)

	if !cmd.IsHandshake() {
		switch {
		case l.sess.Established():
			var err error
			payload, err = message.Pad(payload, crypto.ReadRandom)
			if err != nil {
				return err
			}
			if err := l.sess.Encrypt(payload); err != nil {
				return err
			}
		case cmd == message.CmdAck || cmd == message.CmdNack:
			// Control reply on a link that never finished its
			// handshake; nothing to encrypt under.
		default:
			return ErrSessionRequired
		}
	}

	frame, err := message.EncodeFrame(payload)
	if err != nil {
		return err
	}
	if _, err := l.port.Write(frame); err != nil {
		return err
	}
	l.log.Tracef("%s: sent %s (%d bytes)", l.name, cmd, len(frame))
	return nil
}

// SendAck acknowledges the last command.
func (l *Link) SendAck() error {
	return l.Send(message.CmdAck, nil)
}

// SendNack rejects the last command and tears the session down. Exactly
// one NACK per terminal error path.
func (l *Link) SendNack() error {
	err := l.Send(message.CmdNack, nil)
	l.sess.Reset()
	return err
}

// BeginHandshake starts an initiator key exchange: fresh ephemeral key
// pair and IV, NEW_ECDH on the wire. The session stays unestablished
// until the peer's RETURN_ECDH arrives.
func (l *Link) BeginHandshake() error {
	pub, iv, err := l.sess.Begin()
	if err != nil {
		return err
	}

	data := make([]byte, 0, message.PublicKeySize+message.IVSize)
	data = append(data, pub...)
	data = append(data, iv...)
	return l.Send(message.CmdNewECDH, data)
}

// AcceptHandshake answers a received NEW_ECDH frame: derives the
// session and replies RETURN_ECDH. The frame must be exactly
// command + public key + IV.
func (l *Link) AcceptHandshake(frame *message.Frame) error {
	if len(frame.Payload) != 1+message.PublicKeySize+message.IVSize {
		return ErrWrongSize
	}

	peerPublic := frame.Payload[1 : 1+message.PublicKeySize]
	iv := frame.Payload[1+message.PublicKeySize:]
	localPublic, err := l.sess.EstablishResponder(peerPublic, iv)
	if err != nil {
		return err
	}
	return l.Send(message.CmdReturnECDH, localPublic)
}

// CompleteHandshake finishes an initiated exchange from a received
// RETURN_ECDH frame.
func (l *Link) CompleteHandshake(frame *message.Frame) error {
	if len(frame.Payload) != 1+message.PublicKeySize {
		return ErrWrongSize
	}
	return l.sess.EstablishInitiator(frame.Payload[1:])
}

// Teardown discards the session state without sending anything.
func (l *Link) Teardown() {
	l.sess.Reset()
}

// WriteRaw writes bytes to the port without framing. The car uses this
// for banner output and the textual NACK on its host UART.
func (l *Link) WriteRaw(b []byte) error {
	_, err := l.port.Write(b)
	return err
}
