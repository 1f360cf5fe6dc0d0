// Package device assembles the protocol core: two links, the command
// dispatcher, the cross-link transaction coordinator, and the
// persistent fob state, driven by a single cooperative polling loop.
package device

import (
	"context"
	"time"

	"github.com/pion/logging"

	"github.com/electro707/keyfob/pkg/link"
)

// pollIdleSleep is how long Run backs off when a pass over both links
// moved no bytes.
const pollIdleSleep = 200 * time.Microsecond

// Device is one board running the protocol: a car or a fob. All state
// is mutated from a single polling context; Run and Step must not be
// called concurrently.
type Device struct {
	config Config
	host   *link.Link
	board  *link.Link

	state FobState
	tx    transaction

	log logging.LeveledLogger
}

// New creates a device and, for fobs, performs the boot-time state
// installation: pre-paired builds seed the ROM defaults, and the
// erased feature bitfield is remapped to zero.
func New(config Config) (*Device, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	d := &Device{
		config: config,
		host:   link.New("host", config.HostPort, config.LoggerFactory),
		board:  link.New("board", config.BoardPort, config.LoggerFactory),
		log:    config.LoggerFactory.NewLogger("device"),
	}

	if config.Role == RoleFob {
		if err := d.bootFobState(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// bootFobState loads persistent state and applies the first-boot rules.
func (d *Device) bootFobState() error {
	state, err := d.config.Store.Load()
	if err != nil {
		return err
	}

	if d.config.Paired && !state.IsPaired() {
		state.Paired = StatePaired
		state.EncryptedPIN = d.config.PairPIN
		state.CarSecret = d.config.CarSecret
		if err := d.config.Store.Save(state); err != nil {
			return err
		}
		d.log.Infof("installed factory pairing state")
	}

	if state.FeatureBitfield == 0xFF {
		state.FeatureBitfield = 0
		if err := d.config.Store.Save(state); err != nil {
			return err
		}
	}

	d.state = state
	return nil
}

// Run polls both links until ctx is cancelled.
func (d *Device) Run(ctx context.Context) error {
	d.log.Infof("%s running", d.config.Role)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !d.Step() {
			time.Sleep(pollIdleSleep)
		}
	}
}

// Step performs one pass of the main loop: one byte from each polled
// link (the car only writes its host link), the unlock button, and the
// transaction watchdog. It returns true if any link had traffic.
// Exposed so tests can drive the device deterministically.
func (d *Device) Step() bool {
	busy := false

	if d.config.Role == RoleFob {
		busy = busy || d.config.HostPort.Available()
		if frame := d.host.Poll(); frame != nil {
			d.handleFrame(d.host, frame)
		}

		if d.config.Button != nil && d.config.Button.Pressed() {
			d.PressUnlock()
		}
	}

	busy = busy || d.config.BoardPort.Available()
	if frame := d.board.Poll(); frame != nil {
		d.handleFrame(d.board, frame)
	}

	if d.tx.expired(d.config.TransactionTimeout) {
		d.log.Warnf("transaction %s timed out", d.tx.state)
		d.tx.reset()
		d.board.Teardown()
	}

	return busy
}

// PressUnlock starts the unlock transaction: only a paired fob with no
// transaction in flight opens a session toward the car.
func (d *Device) PressUnlock() {
	if d.config.Role != RoleFob {
		return
	}
	if !d.state.IsPaired() {
		d.log.Debugf("unlock ignored: not paired")
		return
	}
	if d.tx.state != txIdle {
		d.log.Debugf("unlock ignored: transaction %s in flight", d.tx.state)
		return
	}

	if err := d.board.BeginHandshake(); err != nil {
		d.log.Warnf("unlock handshake failed: %v", err)
		return
	}
	d.tx.waitCar()
}

// State returns a copy of the fob's persistent state.
func (d *Device) State() FobState {
	return d.state
}

// TransactionIdle reports whether the coordinator is idle. Test hook
// for the txState lifecycle invariant.
func (d *Device) TransactionIdle() bool {
	return d.tx.state == txIdle
}

// commitState persists the in-RAM state. A commit failure is logged and
// surfaced as ErrCommitFailed; the RAM copy then keeps its previous
// value.
func (d *Device) commitState(next FobState) error {
	if err := d.config.Store.Save(next); err != nil {
		d.log.Errorf("state commit failed: %v", err)
		return ErrCommitFailed
	}
	d.state = next
	return nil
}
