package kvs

import (
	"bytes"
	"encoding/binary"
)

// storeRetries is the number of attempts StoreObject makes at the internal
// write procedure before giving up. This is a documented workaround for
// silicon errata on affected parts; the exact count is preserved rather
// than made configurable.
const storeRetries = 5

// StoreObject canonicalizes name and writes data as its new value,
// compacting first if necessary. It makes up to storeRetries attempts at
// the internal procedure and returns true if any attempt succeeds.
func (s *Store) StoreObject(name string, data []byte) bool {
	for attempt := 0; attempt < storeRetries; attempt++ {
		if err := s.storeObjectInternal(name, data); err == nil {
			return true
		}
	}
	return false
}

// StoreObjectIfNecessary writes data only if it differs from the object's
// current value, or from default when no value is stored yet. It reports
// true when no write was needed (nothing is stored in the default case)
// or when the write succeeded.
func (s *Store) StoreObjectIfNecessary(name string, data, def []byte) bool {
	slot, ok := s.FindObject(name)
	if ok {
		if slot.Len == uint32(len(data)) {
			cur := make([]byte, slot.Len)
			if s.ReadObject(name, cur) && bytes.Equal(cur, data) {
				return true
			}
		}
	} else if bytes.Equal(data, def) {
		return true
	}
	return s.StoreObject(name, data)
}

func (s *Store) ensureSpace(length uint32) error {
	if length <= s.FreeDataSpace() && s.FreeLogEntries() >= 1 {
		return nil
	}
	if err := s.Compact(); err != nil {
		return err
	}
	if length > s.FreeDataSpace() || s.FreeLogEntries() < 1 {
		return ErrNoSpace
	}
	return nil
}

func (s *Store) computeHeaderCRC(bank Bank, key []byte, start, length uint32) uint32 {
	buf := make([]byte, s.layout.headerCRCSize())
	copy(buf, key)
	binary.LittleEndian.PutUint32(buf[s.layout.nameLen:s.layout.nameLen+4], start)
	binary.LittleEndian.PutUint32(buf[s.layout.nameLen+4:s.layout.nameLen+8], length)
	return bank.CRC(buf)
}

// storeObjectInternal is one attempt at appending name=data to the active
// bank's log. The field write order below is load-bearing: the trailing
// tuple (start, len, crc, headerCRC) is committed before the key, so a
// power loss mid-call leaves the key blank and the slot unreadable rather
// than pointing at a half-written record.
func (s *Store) storeObjectInternal(name string, data []byte) error {
	key := s.layout.canonicalKey(name)
	length := uint32(len(data))

	if err := s.ensureSpace(length); err != nil {
		return err
	}

	// ensureSpace may have compacted, which flips the active bank; fetch
	// it only after ensureSpace returns, never before.
	bank := s.active()
	start := s.firstFreeData
	dataCRC := bank.CRC(data)
	headerCRC := s.computeHeaderCRC(bank, key, start, length)

	slotIndex := s.firstFreeLogEntry
	trailerOffset := s.layout.logSlotOffset(slotIndex) + s.layout.nameLen
	trailer := encodeTrailer(start, length, dataCRC, headerCRC)
	if err := s.writePadded(bank, trailerOffset, trailer); err != nil {
		return err
	}
	s.firstFreeLogEntry++

	if length != 0 {
		for {
			probe := bank.Read(start, length)
			faulted := s.fault.checkAndClear()
			if !faulted && allBlank(probe) {
				break
			}
			start += s.layout.writeBlock
			if uint64(start)+uint64(length) > uint64(bank.Size()) {
				return ErrNoSpace
			}
		}
		s.firstFreeData = start

		if err := s.writePadded(bank, start, data); err != nil {
			return err
		}
	}
	s.firstFreeData = roundUp(start+length, s.layout.writeBlock)

	if err := s.writePadded(bank, s.layout.logSlotOffset(slotIndex), key); err != nil {
		return err
	}
	return nil
}

// writePadded writes data to bank at offset, padding the final partial
// write block with 0xFF (a no-op against erased flash) so the call
// satisfies the driver's alignment contract, then verifies the
// unpadded portion by readback.
func (s *Store) writePadded(bank Bank, offset uint32, data []byte) error {
	padded := padToBlock(data, s.layout.writeBlock)
	if err := bank.Write(offset, padded); err != nil {
		return ErrDriverWriteFailed
	}
	readback := bank.Read(offset, uint32(len(data)))
	if s.fault.checkAndClear() {
		return ErrVerifyMismatch
	}
	if !bytes.Equal(readback, data) {
		return ErrVerifyMismatch
	}
	return nil
}

func allBlank(data []byte) bool {
	for _, b := range data {
		if b != 0xFF {
			return false
		}
	}
	return true
}
