package message

// Command is the first payload byte of every frame. The set is closed:
// anything else is rejected by the dispatcher.
type Command byte

// Protocol commands.
const (
	// CmdNewECDH opens a session: 48-byte public key || 16-byte IV.
	CmdNewECDH Command = 0xAB

	// CmdReturnECDH answers a session open: 48-byte public key.
	CmdReturnECDH Command = 0xE0

	// CmdPairPairedEnter puts a paired fob into pairing mode.
	CmdPairPairedEnter Command = 0x4D

	// CmdPairUnpairedStart starts pairing on an unpaired fob:
	// 32-byte encrypted PIN.
	CmdPairUnpairedStart Command = 0x50

	// CmdGetSecret requests the car secret: 32-byte encrypted PIN.
	CmdGetSecret Command = 0x47

	// CmdReturnSecret transfers the 16-byte car secret.
	CmdReturnSecret Command = 0x52

	// CmdEnableFeature carries a 48-byte encrypted feature blob.
	CmdEnableFeature Command = 0x45

	// CmdUnlockCar carries the 16-byte car secret and the feature
	// bitfield.
	CmdUnlockCar Command = 0x55

	// CmdAck acknowledges a command.
	CmdAck Command = 0x41

	// CmdNack rejects a command and tears the session down.
	CmdNack Command = 0xAA
)

// IsHandshake reports whether the command is part of session
// establishment. Handshake frames are the only frames ever transmitted
// or accepted in cleartext.
func (c Command) IsHandshake() bool {
	return c == CmdNewECDH || c == CmdReturnECDH
}

// String returns the command name for logs.
func (c Command) String() string {
	switch c {
	case CmdNewECDH:
		return "NEW_ECDH"
	case CmdReturnECDH:
		return "RETURN_ECDH"
	case CmdPairPairedEnter:
		return "PAIR_PAIRED_ENTER"
	case CmdPairUnpairedStart:
		return "PAIR_UNPAIRED_START"
	case CmdGetSecret:
		return "GET_SECRET"
	case CmdReturnSecret:
		return "RETURN_SECRET"
	case CmdEnableFeature:
		return "ENABLE_FEATURE"
	case CmdUnlockCar:
		return "UNLOCK_CAR"
	case CmdAck:
		return "ACK"
	case CmdNack:
		return "NACK"
	default:
		return "UNKNOWN"
	}
}
