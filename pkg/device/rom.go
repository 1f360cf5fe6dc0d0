package device

// Car EEPROM layout. The unlock banner sits in the last 64 bytes; the
// three feature banners are stacked directly below it; the two AES
// provisioning keys occupy fixed low offsets.
const (
	// ROMSize is the EEPROM image size.
	ROMSize = 0x800

	// UnlockBannerOffset is where the 64-byte unlock banner starts.
	UnlockBannerOffset = 0x7C0

	// BannerSize is the size of the unlock banner and of each feature
	// banner.
	BannerSize = 64

	// FeatureCount is the number of packaged feature banners.
	FeatureCount = 3

	// featureKeyOffset and pinKeyOffset locate the 24-byte AES keys.
	featureKeyOffset = 0x00
	pinKeyOffset     = 0x20

	// ROMKeySize is the size of each provisioned AES key.
	ROMKeySize = 24
)

// CarROM is the car's read-only EEPROM image: banners and provisioning
// keys at fixed offsets. Loaded once at boot, never written at runtime.
type CarROM struct {
	image [ROMSize]byte
}

// NewCarROM wraps an EEPROM image. The image must be exactly ROMSize
// bytes.
func NewCarROM(image []byte) (*CarROM, error) {
	if len(image) != ROMSize {
		return nil, ErrBadROMImage
	}
	r := &CarROM{}
	copy(r.image[:], image)
	return r, nil
}

// UnlockBanner returns the 64-byte unlock banner.
func (r *CarROM) UnlockBanner() []byte {
	return r.read(UnlockBannerOffset, BannerSize)
}

// FeatureBanner returns the 64-byte banner for feature i (0-2). Feature
// i lives (i+1) banners below the unlock banner.
func (r *CarROM) FeatureBanner(i int) ([]byte, error) {
	if i < 0 || i >= FeatureCount {
		return nil, ErrBadFeatureIndex
	}
	return r.read(UnlockBannerOffset-(i+1)*BannerSize, BannerSize), nil
}

// FeatureKey returns the 24-byte feature-encryption key.
func (r *CarROM) FeatureKey() []byte {
	return r.read(featureKeyOffset, ROMKeySize)
}

// PINKey returns the 24-byte PIN-encryption key.
func (r *CarROM) PINKey() []byte {
	return r.read(pinKeyOffset, ROMKeySize)
}

func (r *CarROM) read(offset, size int) []byte {
	out := make([]byte, size)
	copy(out, r.image[offset:offset+size])
	return out
}
