// Package message implements the wire framing of the fob protocol: a
// length byte, a payload whose first byte is the command, and a
// big-endian CRC-16 over the payload.
//
// Frame layout:
//
//	[ L | payload (L-2 bytes) | CRC hi | CRC lo ]
//
// L counts every byte after itself, CRC included. Payloads of
// non-handshake commands are AES-CBC encrypted and padded to a 16-byte
// multiple by the link layer before framing.
package message

import "github.com/electro707/keyfob/pkg/crypto"

// Receiver states.
const (
	stateReset = iota // waiting for a length byte
	stateData         // accumulating payload bytes
	stateCRC          // accumulating the two CRC bytes
)

// Frame is a complete received frame: the raw payload (possibly still
// encrypted) and the CRC that arrived with it.
type Frame struct {
	Payload []byte
	WireCRC uint16
}

// Command returns the first payload byte. Only meaningful after
// decryption for encrypted frames.
func (f *Frame) Command() Command {
	return Command(f.Payload[0])
}

// Valid reports whether the wire CRC matches the payload.
func (f *Frame) Valid() bool {
	return crypto.CRC16(f.Payload) == f.WireCRC
}

// Receiver reconstructs frames from a serial byte stream, one byte at a
// time. Malformed input never produces a frame: bad length bytes are
// ignored in place and buffer overflow resets the machine.
type Receiver struct {
	state     int
	buffer    [MaxFrame]byte
	index     int
	remaining int
	crc       uint16
}

// NewReceiver creates a receiver in the reset state.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Reset discards any partial frame.
func (r *Receiver) Reset() {
	r.state = stateReset
	r.index = 0
	r.remaining = 0
	r.crc = 0
}

// Feed advances the state machine by one byte. It returns a complete
// frame once the final CRC byte arrives, nil otherwise. The returned
// payload is a copy; the receiver is immediately ready for the next
// frame.
func (r *Receiver) Feed(b byte) *Frame {
	switch r.state {
	case stateReset:
		length := int(b)
		if length < MinLength || length >= MaxFrame {
			return nil
		}
		r.crc = 0
		r.index = 0
		r.remaining = length
		r.state = stateData

	case stateData:
		if r.index >= len(r.buffer) {
			r.Reset()
			return nil
		}
		r.buffer[r.index] = b
		r.index++
		r.remaining--
		if r.remaining == CRCSize {
			r.state = stateCRC
		}

	case stateCRC:
		r.crc = r.crc<<8 | uint16(b)
		r.remaining--
		if r.remaining == 0 {
			frame := &Frame{
				Payload: append([]byte(nil), r.buffer[:r.index]...),
				WireCRC: r.crc,
			}
			r.Reset()
			return frame
		}
	}
	return nil
}
