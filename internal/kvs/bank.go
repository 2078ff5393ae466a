package kvs

// Bank is the driver contract for a single erasable, byte-addressable,
// memory-mapped region of flash-like storage.
//
// Implementations are not required to be safe for concurrent use; the
// Store never calls a Bank from more than one goroutine except for
// OnUncorrectableECCFault, which is documented separately.
type Bank interface {
	// Erase sets every byte in the bank to 0xFF. May block for a
	// driver-determined duration. The store never retries a failed erase.
	Erase() error

	// Write programs data at offset. Both offset and len(data) must be
	// multiples of WriteBlockSize(). The target region must currently
	// read as 0xFF. A failed write may leave a prefix of data programmed.
	Write(offset uint32, data []byte) error

	// Read performs a volatile load of length bytes starting at offset
	// and returns a private copy. This is the only path by which the
	// core ever observes bank content; on hardware with ECC-capable
	// flash, a load in this range may assert an uncorrectable-fault trap
	// asynchronously before Read returns, in which case the fault
	// handler calls Store.OnUncorrectableECCFault and the value Read
	// hands back is discarded by the caller.
	Read(offset, length uint32) []byte

	// CRC computes the checksum defined in crc.go over data. Drivers
	// may substitute a hardware CRC engine as long as it reproduces the
	// identical 32-bit value.
	CRC(data []byte) uint32

	// Base returns a logical base value for this bank, used only to
	// compose diagnostic addresses; it is not a real pointer and must
	// not be dereferenced by the core.
	Base() uint32

	// Size returns the total number of bytes in the bank, including the
	// header and log regions.
	Size() uint32

	// WriteBlockSize returns the minimum aligned unit Write() accepts.
	// Both banks passed to NewStore must report the same value.
	WriteBlockSize() uint32
}
