package device

import (
	"bytes"

	"github.com/electro707/keyfob/pkg/message"
)

// hostNackText is written raw to the host UART when an unlock token
// names the wrong car.
const hostNackText = "Car is not happy :(\n"

// handleCarBoard services the car's board link. UNLOCK_CAR is the only
// command a car accepts once the session is up; anything else ends the
// session with a NACK.
func (d *Device) handleCarBoard(frame *message.Frame) {
	switch frame.Command() {
	case message.CmdUnlockCar:
		d.unlock(frame)

	case message.CmdNack:
		d.board.Teardown()

	default:
		d.log.Infof("board: %v: %s", ErrUnexpectedCommand, frame.Command())
		d.failLink(d.board)
	}
}

// unlock validates the unlock token and, on a CAR_ID match, dumps the
// unlock banner plus one banner per enabled feature bit to the host
// UART. The board session is one-shot in every outcome.
func (d *Device) unlock(frame *message.Frame) {
	defer d.board.Teardown()

	if len(frame.Payload) != paddedLengths[message.CmdUnlockCar] {
		if err := d.board.SendNack(); err != nil {
			d.log.Warnf("board: NACK send failed: %v", err)
		}
		return
	}

	secret := frame.Payload[1 : 1+message.CarSecretSize]
	if !bytes.Equal(secret, d.config.CarID[:]) {
		d.log.Infof("unlock rejected: %v", ErrCarIDMismatch)
		if err := d.host.WriteRaw([]byte(hostNackText)); err != nil {
			d.log.Warnf("host: NACK text write failed: %v", err)
		}
		return
	}

	if err := d.host.WriteRaw(d.rom().UnlockBanner()); err != nil {
		d.log.Warnf("host: banner write failed: %v", err)
		return
	}

	featureBits := frame.Payload[1+message.CarSecretSize]
	for i := 0; i < FeatureCount; i++ {
		if featureBits&(1<<i) == 0 {
			continue
		}
		banner, err := d.rom().FeatureBanner(i)
		if err != nil {
			d.log.Warnf("feature banner %d: %v", i, err)
			continue
		}
		if err := d.host.WriteRaw(banner); err != nil {
			d.log.Warnf("host: feature banner write failed: %v", err)
			return
		}
	}
	d.log.Infof("unlocked, features 0x%02X", featureBits)
}

func (d *Device) rom() *CarROM {
	return d.config.ROM
}
