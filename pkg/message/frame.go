package message

import "github.com/electro707/keyfob/pkg/crypto"

// EncodeFrame wraps a payload in the wire framing: length byte, payload,
// big-endian CRC-16 over the payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrFrameTooShort
	}
	if len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}

	crc := crypto.CRC16(payload)
	frame := make([]byte, 0, 1+len(payload)+CRCSize)
	frame = append(frame, byte(len(payload)+CRCSize))
	frame = append(frame, payload...)
	frame = append(frame, byte(crc>>8), byte(crc))
	return frame, nil
}

// PaddedLength returns n rounded up to the next multiple of the AES
// block size.
func PaddedLength(n int) int {
	if n%BlockSize == 0 {
		return n
	}
	return n + BlockSize - n%BlockSize
}

// Pad extends payload to the next block multiple, filling the tail via
// fill. The link layer passes the entropy source as fill so padding is
// never predictable.
func Pad(payload []byte, fill func([]byte) error) ([]byte, error) {
	padded := PaddedLength(len(payload))
	if padded == len(payload) {
		return payload, nil
	}

	out := make([]byte, padded)
	copy(out, payload)
	if err := fill(out[len(payload):]); err != nil {
		return nil, err
	}
	return out, nil
}
