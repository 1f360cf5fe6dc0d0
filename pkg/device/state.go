package device

import (
	"os"
	"sync"
)

// Pairing state literals, as stored in the first byte of the state
// image. 0xFF doubles as the erased-flash value, so a fob interrupted
// mid-commit comes back unpaired.
const (
	StatePaired   byte = 0xAB
	StateUnpaired byte = 0xFF
)

// StoredPINSize is the stored encrypted-PIN prefix: the first 16 bytes
// of the 32-byte wire form, which is also what GET_SECRET comparisons
// use.
const StoredPINSize = 16

// CarSecretSize is the stored car unlock secret size.
const CarSecretSize = 16

// fobStateSize is the raw struct size; fobStateImageSize pads it to a
// 4-byte multiple, matching the flash programming granularity.
const (
	fobStateSize      = 1 + StoredPINSize + CarSecretSize + 1
	fobStateImageSize = (fobStateSize + 3) &^ 3
)

// FobState is the fob's persistent record: whether it is paired, the
// credentials it pairs and unlocks with, and which features are
// enabled.
type FobState struct {
	Paired          byte
	EncryptedPIN    [StoredPINSize]byte
	CarSecret       [CarSecretSize]byte
	FeatureBitfield byte
}

// IsPaired reports whether the state marks the fob as paired.
func (s *FobState) IsPaired() bool {
	return s.Paired == StatePaired
}

// encode serializes the state into its flash image.
func (s *FobState) encode() []byte {
	img := make([]byte, fobStateImageSize)
	img[0] = s.Paired
	copy(img[1:], s.EncryptedPIN[:])
	copy(img[1+StoredPINSize:], s.CarSecret[:])
	img[1+StoredPINSize+CarSecretSize] = s.FeatureBitfield
	return img
}

// decodeFobState parses a flash image. Short images fail; trailing
// padding is ignored.
func decodeFobState(img []byte) (FobState, error) {
	var s FobState
	if len(img) < fobStateSize {
		return s, ErrStateCorrupt
	}
	s.Paired = img[0]
	copy(s.EncryptedPIN[:], img[1:])
	copy(s.CarSecret[:], img[1+StoredPINSize:])
	s.FeatureBitfield = img[1+StoredPINSize+CarSecretSize]
	return s, nil
}

// erasedFobState is the state read from never-programmed flash: all
// bits set.
func erasedFobState() FobState {
	s := FobState{Paired: StateUnpaired, FeatureBitfield: 0xFF}
	for i := range s.EncryptedPIN {
		s.EncryptedPIN[i] = 0xFF
	}
	for i := range s.CarSecret {
		s.CarSecret[i] = 0xFF
	}
	return s
}

// Store persists the fob state across power cycles. Commits follow the
// erase-then-program discipline: a crash in between leaves the fob
// unpaired, never half-written.
type Store interface {
	// Load reads the persisted state. A store that was never written
	// returns the erased state, not an error.
	Load() (FobState, error)

	// Save commits the full state.
	Save(FobState) error
}

// MemoryStore is an in-memory Store for tests. FailNextSave makes the
// next commit fail, standing in for a flash programming error.
type MemoryStore struct {
	mu           sync.Mutex
	image        []byte
	FailNextSave bool
}

// NewMemoryStore returns an empty (erased) in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored state, or the erased state if never saved.
func (m *MemoryStore) Load() (FobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.image == nil {
		return erasedFobState(), nil
	}
	return decodeFobState(m.image)
}

// Save commits the state.
func (m *MemoryStore) Save(s FobState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextSave {
		m.FailNextSave = false
		m.image = nil // erase happened, program did not
		return ErrCommitFailed
	}
	m.image = s.encode()
	return nil
}

// FileStore persists the fob state image to a file. The write truncates
// before programming, mirroring the flash erase step.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path. The file is created on
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state image; a missing file reads as erased flash.
func (f *FileStore) Load() (FobState, error) {
	img, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return erasedFobState(), nil
	}
	if err != nil {
		return FobState{}, err
	}
	return decodeFobState(img)
}

// Save commits the state image.
func (f *FileStore) Save(s FobState) error {
	if err := os.WriteFile(f.path, s.encode(), 0o600); err != nil {
		return ErrCommitFailed
	}
	return nil
}
