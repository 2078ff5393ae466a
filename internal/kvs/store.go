package kvs

import "fmt"

// Slot identifies a located LogEntry within the active bank.
type Slot struct {
	Index uint32
	Start uint32
	Len   uint32
}

// EnumEntry describes one distinct key found by EnumObjects.
type EnumEntry struct {
	Key  []byte
	Size uint32
	Revs uint32
}

// Store is a mounted microkvs instance over exactly two banks. It is not
// safe for concurrent use except for OnUncorrectableECCFault.
type Store struct {
	left, right Bank
	layout      layout
	logger      Logger
	fault       faultShim

	isLeftActive bool

	defaultLogSize    uint32
	version           uint32
	logSize           uint32
	firstFreeLogEntry uint32
	firstFreeData     uint32
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger installs a diagnostic logger. The default discards all
// output.
func WithLogger(l Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore mounts the key-value store over left and right, selecting
// whichever bank is active, formatting left if neither bank holds a valid
// header, and scanning the active bank's log. defaultLogSize is used only
// when a bank is freshly formatted, by NewStore or later by Compact.
func NewStore(left, right Bank, defaultLogSize uint32, opts ...Option) (*Store, error) {
	if left.WriteBlockSize() != right.WriteBlockSize() {
		return nil, fmt.Errorf("kvs: left and right banks report different write block sizes (%d vs %d)",
			left.WriteBlockSize(), right.WriteBlockSize())
	}

	s := &Store{
		left:   left,
		right:  right,
		layout: newLayout(left.WriteBlockSize()),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.mount(defaultLogSize); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) active() Bank {
	if s.isLeftActive {
		return s.left
	}
	return s.right
}

func (s *Store) inactive() Bank {
	if s.isLeftActive {
		return s.right
	}
	return s.left
}

// readHeader loads and decodes a bank's header, along with whether it
// passes validation per §4.3 (magic, logSize bound, and no ECC fault
// raised while reading it).
func (s *Store) readHeader(bank Bank) (bankHeader, bool) {
	raw := bank.Read(0, bankHeaderRawSize)
	if s.fault.checkAndClear() {
		return bankHeader{}, false
	}
	h := decodeBankHeader(raw)
	return h, h.valid()
}

func (s *Store) mount(defaultLogSize uint32) error {
	s.defaultLogSize = defaultLogSize
	leftHdr, leftValid := s.readHeader(s.left)
	rightHdr, rightValid := s.readHeader(s.right)

	switch {
	case !leftValid && !rightValid:
		s.logger.Warnf("kvs: no valid bank header found, formatting left bank")
		if err := s.formatBank(s.left, 0, defaultLogSize); err != nil {
			return err
		}
		s.isLeftActive = true
		s.version = 0
		s.logSize = defaultLogSize

	case leftValid && !rightValid:
		s.isLeftActive = true
		s.version = leftHdr.version
		s.logSize = leftHdr.logSize

	case !leftValid && rightValid:
		s.isLeftActive = false
		s.version = rightHdr.version
		s.logSize = rightHdr.logSize

	default:
		if rightWins(leftHdr.version, rightHdr.version) {
			s.isLeftActive = false
			s.version = rightHdr.version
			s.logSize = rightHdr.logSize
		} else {
			s.isLeftActive = true
			s.version = leftHdr.version
			s.logSize = leftHdr.logSize
		}
	}

	ff, fd := s.scanLog(s.active(), s.logSize)
	s.firstFreeLogEntry = ff
	s.firstFreeData = fd
	return nil
}

// rightWins implements the §4.3 "both valid" tie-break: the bank with the
// greater version wins, 0xFFFFFFFF never wins, and an exact tie goes to
// the right bank.
func rightWins(leftVersion, rightVersion uint32) bool {
	leftOK := leftVersion != invalid32
	rightOK := rightVersion != invalid32
	switch {
	case !leftOK && !rightOK:
		return true
	case !leftOK:
		return true
	case !rightOK:
		return false
	case rightVersion > leftVersion:
		return true
	case leftVersion > rightVersion:
		return false
	default:
		return true
	}
}

func (s *Store) formatBank(bank Bank, version, logSize uint32) error {
	if err := bank.Erase(); err != nil {
		s.logger.Errorf("kvs: erase failed while formatting bank: %v", err)
		return ErrDriverEraseFailed
	}
	hdr := encodeBankHeader(bankHeader{magic: headerMagic, version: version, logSize: logSize})
	hdr = padToBlock(hdr, s.layout.writeBlock)
	if err := bank.Write(0, hdr); err != nil {
		s.logger.Errorf("kvs: header write failed while formatting bank: %v", err)
		return ErrDriverWriteFailed
	}
	return nil
}

func padToBlock(data []byte, block uint32) []byte {
	padded := roundUp(uint32(len(data)), block)
	if padded == uint32(len(data)) {
		return data
	}
	out := make([]byte, padded)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = 0xFF
	}
	return out
}

// FreeLogEntries returns the number of unused log slots in the active
// bank.
func (s *Store) FreeLogEntries() uint32 {
	return s.logSize - s.firstFreeLogEntry
}

// FreeDataSpace returns the number of unused bytes in the active bank's
// data region.
func (s *Store) FreeDataSpace() uint32 {
	return s.active().Size() - s.firstFreeData
}

// LogCapacity returns the active bank's total log slot count.
func (s *Store) LogCapacity() uint32 {
	return s.logSize
}

// BlockSize returns the write block size shared by both banks.
func (s *Store) BlockSize() uint32 {
	return s.layout.writeBlock
}

// DataCapacity returns the total size of the active bank's data region.
func (s *Store) DataCapacity() uint32 {
	return s.active().Size() - s.layout.dataRegionStart(s.logSize)
}

// BankHeaderVersion returns the active bank's header version.
func (s *Store) BankHeaderVersion() uint32 {
	return s.version
}

// IsLeftBankActive reports which bank is currently active.
func (s *Store) IsLeftBankActive() bool {
	return s.isLeftActive
}

// IsRightBankActive is the complement of IsLeftBankActive.
func (s *Store) IsRightBankActive() bool {
	return !s.isLeftActive
}
