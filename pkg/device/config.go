package device

import (
	"time"

	"github.com/pion/logging"

	"github.com/electro707/keyfob/pkg/crypto"
	"github.com/electro707/keyfob/pkg/message"
	"github.com/electro707/keyfob/pkg/transport"
)

// Role selects which firmware personality the device runs.
type Role int

// Device roles.
const (
	// RoleFob is a key fob, paired or unpaired.
	RoleFob Role = iota

	// RoleCar is a car.
	RoleCar
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleFob:
		return "fob"
	case RoleCar:
		return "car"
	default:
		return "unknown"
	}
}

// DefaultTransactionTimeout bounds how long a multi-hop transaction may
// sit waiting on the board link before the watchdog clears it.
const DefaultTransactionTimeout = 5 * time.Second

// Button is the fob's unlock trigger. Pressed is polled from the main
// loop and must report a debounced press at most once per physical
// press.
type Button interface {
	Pressed() bool
}

// Config holds everything a device is provisioned with at the factory
// plus its runtime wiring.
type Config struct {
	// Role selects fob or car behavior.
	Role Role

	// HostPort is the UART to the host PC. The car only writes it
	// (banners, textual NACK); the fob speaks the framed protocol on it.
	HostPort transport.Port

	// BoardPort is the UART to the peer board.
	BoardPort transport.Port

	// Paired marks a factory-paired fob build. On first boot such a fob
	// installs PairPIN and CarSecret into its persistent state.
	Paired bool

	// CarID identifies the car this device belongs to.
	CarID [message.CarIDSize]byte

	// PairPIN is the ROM default encrypted-PIN prefix for paired builds.
	PairPIN [StoredPINSize]byte

	// CarSecret is the ROM default unlock secret for paired builds.
	CarSecret [CarSecretSize]byte

	// PINKey and FeatureKey are the provisioned AES-192 keys a fob
	// validates pairing PINs and feature blobs with. The car reads its
	// copies from ROM instead.
	PINKey     [crypto.AESKeySize]byte
	FeatureKey [crypto.AESKeySize]byte

	// Store persists fob state. Required for fobs.
	Store Store

	// ROM is the car's EEPROM image. Required for cars.
	ROM *CarROM

	// Button is the fob's unlock trigger. Optional; tests and hosts can
	// call PressUnlock directly.
	Button Button

	// TransactionTimeout is the watchdog bound on a stuck transaction.
	// Zero selects DefaultTransactionTimeout; negative disables the
	// watchdog.
	TransactionTimeout time.Duration

	// LoggerFactory builds the device's loggers. Optional.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for the selected role.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleFob:
		if c.Store == nil {
			return ErrStoreRequired
		}
	case RoleCar:
		if c.ROM == nil {
			return ErrROMRequired
		}
	default:
		return ErrInvalidRole
	}

	if c.HostPort == nil || c.BoardPort == nil {
		return ErrPortRequired
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.TransactionTimeout == 0 {
		c.TransactionTimeout = DefaultTransactionTimeout
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}
