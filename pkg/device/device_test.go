package device

import (
	"testing"
	"time"

	"github.com/electro707/keyfob/pkg/crypto"
	"github.com/electro707/keyfob/pkg/link"
	"github.com/electro707/keyfob/pkg/message"
	"github.com/electro707/keyfob/pkg/transport"
)

// Provisioned test constants shared by the scenario tests.
var (
	testPINKey     = [crypto.AESKeySize]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18}
	testFeatureKey = [crypto.AESKeySize]byte{0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F, 0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38}

	testCarID     = [message.CarIDSize]byte{'C', 'A', 'R', '-', '0', '0', '4', '2', '-', 'S', 'E', 'C', 'R', 'E', 'T', '!'}
	testCarSecret = [CarSecretSize]byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
)

// testEncryptedPIN builds the 32-byte wire PIN for a PIN string.
func testEncryptedPIN(t *testing.T, pin string) [crypto.EncryptedPINSize]byte {
	t.Helper()
	hashed, err := crypto.HashPIN(pin)
	if err != nil {
		t.Fatalf("HashPIN() error: %v", err)
	}
	enc, err := crypto.EncryptPIN(hashed, testPINKey[:])
	if err != nil {
		t.Fatalf("EncryptPIN() error: %v", err)
	}
	return enc
}

// storedPIN is the persisted 16-byte prefix of the wire PIN.
func storedPIN(pin [crypto.EncryptedPINSize]byte) (out [StoredPINSize]byte) {
	copy(out[:], pin[:StoredPINSize])
	return out
}

// fobRig is a fob device plus the driver ends of its two ports.
type fobRig struct {
	dev   *Device
	store *MemoryStore
	host  *transport.Pipe // host-PC side of the host UART
}

// newFobRig builds a fob. boardPort is the device side of the board
// UART; pair the peer end with the other board under test.
func newFobRig(t *testing.T, paired bool, boardPort transport.Port) *fobRig {
	t.Helper()

	hostDriverEnd, hostDeviceEnd := transport.NewPipePair()
	store := NewMemoryStore()

	pin := testEncryptedPIN(t, "123456")
	cfg := Config{
		Role:       RoleFob,
		HostPort:   hostDeviceEnd,
		BoardPort:  boardPort,
		Paired:     paired,
		CarID:      testCarID,
		PairPIN:    storedPIN(pin),
		CarSecret:  testCarSecret,
		PINKey:     testPINKey,
		FeatureKey: testFeatureKey,
		Store:      store,
	}

	dev, err := New(cfg)
	if err != nil {
		t.Fatalf("New(fob) error: %v", err)
	}
	return &fobRig{dev: dev, store: store, host: hostDriverEnd}
}

// carRig is a car device plus the host-PC end of its host UART.
type carRig struct {
	dev  *Device
	host *transport.Pipe
}

func newCarRig(t *testing.T, boardPort transport.Port) *carRig {
	t.Helper()

	hostDriverEnd, hostDeviceEnd := transport.NewPipePair()
	rom, err := NewCarROM(testROMImage())
	if err != nil {
		t.Fatalf("NewCarROM() error: %v", err)
	}

	// The car's CAR_ID is the value unlock tokens must carry: the same
	// 16 bytes provisioned into paired fobs as their car secret.
	cfg := Config{
		Role:      RoleCar,
		HostPort:  hostDeviceEnd,
		BoardPort: boardPort,
		CarID:     testCarSecret,
		ROM:       rom,
	}
	dev, err := New(cfg)
	if err != nil {
		t.Fatalf("New(car) error: %v", err)
	}
	return &carRig{dev: dev, host: hostDriverEnd}
}

// hostDriver speaks the framed protocol from the host-PC side of a
// fob's host UART.
type hostDriver struct {
	t    *testing.T
	l    *link.Link
	step func()
}

// newHostDriver wraps the host end of a fob's UART. step advances every
// device under test by one poll iteration.
func newHostDriver(t *testing.T, port transport.Port, step func()) *hostDriver {
	return &hostDriver{t: t, l: link.New("host-pc", port, nil), step: step}
}

// await pumps the devices until the driver receives a frame.
func (h *hostDriver) await() *message.Frame {
	h.t.Helper()
	for i := 0; i < 100000; i++ {
		if f := h.l.Poll(); f != nil {
			return f
		}
		h.step()
	}
	h.t.Fatal("timed out waiting for a frame")
	return nil
}

// connect performs the host-side session handshake with the fob.
func (h *hostDriver) connect() {
	h.t.Helper()
	if err := h.l.BeginHandshake(); err != nil {
		h.t.Fatalf("host BeginHandshake() error: %v", err)
	}
	f := h.await()
	if f.Command() != message.CmdReturnECDH {
		h.t.Fatalf("host handshake reply = %v, want RETURN_ECDH", f.Command())
	}
	if err := h.l.CompleteHandshake(f); err != nil {
		h.t.Fatalf("host CompleteHandshake() error: %v", err)
	}
}

// send transmits a command over the established host session.
func (h *hostDriver) send(cmd message.Command, data []byte) {
	h.t.Helper()
	if err := h.l.Send(cmd, data); err != nil {
		h.t.Fatalf("host Send(%v) error: %v", cmd, err)
	}
}

// expect pumps until a frame arrives and asserts its command.
func (h *hostDriver) expect(cmd message.Command) *message.Frame {
	h.t.Helper()
	f := h.await()
	if f.Command() != cmd {
		h.t.Fatalf("received %v, want %v", f.Command(), cmd)
	}
	return f
}

func TestFobBootInstallsFactoryState(t *testing.T) {
	boardA, _ := transport.NewPipePair()
	rig := newFobRig(t, true, boardA)

	st := rig.dev.State()
	if !st.IsPaired() {
		t.Fatal("factory-paired fob boots unpaired")
	}
	if st.EncryptedPIN != storedPIN(testEncryptedPIN(t, "123456")) {
		t.Error("ROM default PIN not installed")
	}
	if st.CarSecret != testCarSecret {
		t.Error("ROM default car secret not installed")
	}
	if st.FeatureBitfield != 0 {
		t.Errorf("feature bitfield = 0x%02X, want 0 after first boot", st.FeatureBitfield)
	}

	// The installed state is durable.
	persisted, err := rig.store.Load()
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}
	if persisted != st {
		t.Error("persisted state differs from RAM state")
	}
}

func TestFobBootUnpaired(t *testing.T) {
	boardA, _ := transport.NewPipePair()
	rig := newFobRig(t, false, boardA)

	st := rig.dev.State()
	if st.IsPaired() {
		t.Fatal("unpaired build boots paired")
	}
	if st.FeatureBitfield != 0 {
		t.Errorf("feature bitfield = 0x%02X, want 0 after first boot", st.FeatureBitfield)
	}
}

func TestConfigValidation(t *testing.T) {
	port, _ := transport.NewPipePair()

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"fob without store", Config{Role: RoleFob, HostPort: port, BoardPort: port}, ErrStoreRequired},
		{"car without ROM", Config{Role: RoleCar, HostPort: port, BoardPort: port}, ErrROMRequired},
		{"missing ports", Config{Role: RoleFob, Store: NewMemoryStore()}, ErrPortRequired},
		{"bad role", Config{Role: Role(7)}, ErrInvalidRole},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err != tc.want {
				t.Errorf("New() err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUnlockIgnoredWhenUnpaired(t *testing.T) {
	boardDev, boardPeer := transport.NewPipePair()
	rig := newFobRig(t, false, boardDev)

	rig.dev.PressUnlock()
	if !rig.dev.TransactionIdle() {
		t.Error("unpaired fob armed an unlock transaction")
	}
	if boardPeer.Available() {
		t.Error("unpaired fob emitted a handshake")
	}
}

func TestUnlockIgnoredDuringTransaction(t *testing.T) {
	boardDev, boardPeer := transport.NewPipePair()
	rig := newFobRig(t, true, boardDev)

	rig.dev.PressUnlock()
	if rig.dev.TransactionIdle() {
		t.Fatal("first press did not arm the transaction")
	}
	first := boardPeer.Drain()
	if len(first) == 0 {
		t.Fatal("first press sent nothing")
	}

	// A second press while waiting must do nothing.
	rig.dev.PressUnlock()
	if got := boardPeer.Drain(); len(got) != 0 {
		t.Errorf("second press emitted %d bytes", len(got))
	}
}

func TestTransactionWatchdog(t *testing.T) {
	boardDev, _ := transport.NewPipePair()
	_, hostDeviceEnd := transport.NewPipePair()

	store := NewMemoryStore()
	cfg := Config{
		Role:               RoleFob,
		HostPort:           hostDeviceEnd,
		BoardPort:          boardDev,
		Paired:             true,
		CarID:              testCarID,
		PairPIN:            storedPIN(testEncryptedPIN(t, "123456")),
		CarSecret:          testCarSecret,
		PINKey:             testPINKey,
		FeatureKey:         testFeatureKey,
		Store:              store,
		TransactionTimeout: 10 * time.Millisecond,
	}
	dev, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	dev.PressUnlock()
	if dev.TransactionIdle() {
		t.Fatal("press did not arm the transaction")
	}

	// The car never answers; the watchdog must clear the transaction.
	time.Sleep(20 * time.Millisecond)
	dev.Step()
	if !dev.TransactionIdle() {
		t.Error("watchdog did not clear the stuck transaction")
	}
}
