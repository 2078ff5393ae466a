package kvs

// dedupKeys is the dedup ring's fixed capacity. Compaction scans the
// active bank newest-slot-first; once 16 distinct keys have been decided
// (copied, dropped, or shadowed), older duplicates of those keys are
// skipped without a linear search.
const dedupKeys = 16

type dedupRing struct {
	keys [dedupKeys]string
	next int
	size int
}

func (r *dedupRing) contains(key string) bool {
	for i := 0; i < r.size; i++ {
		if r.keys[i] == key {
			return true
		}
	}
	return false
}

func (r *dedupRing) insert(key string) {
	if r.contains(key) {
		return
	}
	r.keys[r.next] = key
	r.next = (r.next + 1) % dedupKeys
	if r.size < dedupKeys {
		r.size++
	}
}

// Compact copies every live record from the active bank into the
// inactive bank in newest-first order, then switches active banks by
// writing the new header last. A crash at any point before the header
// write leaves the store pointing at the original bank with no change,
// because the erased inactive bank has no valid header until then.
func (s *Store) Compact() error {
	src := s.active()
	dst := s.inactive()

	if err := dst.Erase(); err != nil {
		s.logger.Errorf("kvs: compaction erase of inactive bank failed: %v", err)
		return ErrDriverEraseFailed
	}

	nextLog := uint32(0)
	nextData := s.layout.dataRegionStart(s.defaultLogSize)
	ring := &dedupRing{}
	dstKeys := make(map[string]bool)

	for i := s.firstFreeLogEntry; i > 0; i-- {
		idx := i - 1
		raw := src.Read(s.layout.logSlotOffset(idx), s.layout.entryRawSize)
		if s.fault.checkAndClear() {
			s.logger.Warnf("kvs: ECC fault reading log slot %d during compaction, skipping", idx)
			continue
		}
		entry := s.layout.decodeLogEntry(raw)
		key := string(entry.key)

		if ring.contains(key) {
			continue
		}
		if dstKeys[key] {
			continue
		}
		if !s.validateForCompaction(src, raw, entry) {
			s.logger.Warnf("kvs: log slot %d failed validation during compaction, skipping", idx)
			continue
		}

		if entry.length != 0 {
			payload := src.Read(entry.start, entry.length)
			if s.fault.checkAndClear() {
				s.logger.Warnf("kvs: ECC fault reading data for log slot %d during compaction, skipping", idx)
				continue
			}
			newHeaderCRC := s.computeHeaderCRC(dst, entry.key, nextData, entry.length)
			newEntry := logEntry{
				key:       entry.key,
				start:     nextData,
				length:    entry.length,
				crc:       dst.CRC(payload),
				headerCRC: newHeaderCRC,
			}
			if err := s.writePadded(dst, nextData, payload); err != nil {
				return err
			}
			if err := s.writePadded(dst, s.layout.logSlotOffset(nextLog), s.layout.encodeLogEntry(newEntry)); err != nil {
				return err
			}
			nextData = roundUp(nextData+entry.length, s.layout.writeBlock)
			nextLog++
		}

		dstKeys[key] = true
		ring.insert(key)
	}

	newVersion := s.version + 1
	if err := s.writePadded(dst, 0, encodeBankHeader(bankHeader{
		magic:   headerMagic,
		version: newVersion,
		logSize: s.defaultLogSize,
	})); err != nil {
		return err
	}

	s.isLeftActive = !s.isLeftActive
	s.version = newVersion
	s.logSize = s.defaultLogSize
	s.firstFreeLogEntry = nextLog
	s.firstFreeData = nextData
	return nil
}

// validateForCompaction checks header and data CRC for a source slot. An
// entry that fails validation is skipped without being entered into the
// dedup ring, so an older, still-valid entry for the same key remains a
// candidate — compaction must preserve the same latest-valid-wins
// semantics as FindObject, not merely latest-present.
func (s *Store) validateForCompaction(bank Bank, raw []byte, entry logEntry) bool {
	if !s.headerCRCOK(bank, raw, entry) {
		return false
	}
	payload := bank.Read(entry.start, entry.length)
	if s.fault.checkAndClear() {
		return false
	}
	return bank.CRC(payload) == entry.crc
}

// WipeInactive erases the inactive bank, leaving it without a valid
// header. The active bank selection is unaffected; the next mount will
// see the inactive bank as blank and select the current active bank
// again.
func (s *Store) WipeInactive() error {
	if err := s.inactive().Erase(); err != nil {
		return ErrDriverEraseFailed
	}
	return nil
}

// WipeAll erases both banks and reformats the left bank as a fresh,
// empty store at version 0.
func (s *Store) WipeAll() error {
	if err := s.right.Erase(); err != nil {
		return ErrDriverEraseFailed
	}
	if err := s.formatBank(s.left, 0, s.defaultLogSize); err != nil {
		return err
	}
	s.isLeftActive = true
	s.version = 0
	s.logSize = s.defaultLogSize
	s.firstFreeLogEntry = 0
	s.firstFreeData = s.layout.dataRegionStart(s.defaultLogSize)
	return nil
}
