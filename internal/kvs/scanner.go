package kvs

// scanLog walks bank's log slots in ascending order, returning the index
// of the first unwritten slot and the first unwritten byte of the data
// region. It tolerates torn or corrupt entries: a slot that fails
// validation is skipped, not treated as the end of the log.
func (s *Store) scanLog(bank Bank, logSize uint32) (firstFreeLogEntry, firstFreeData uint32) {
	var lastValid logEntry
	haveValid := false
	firstFreeLogEntry = logSize

	for index := uint32(0); index < logSize; index++ {
		raw := bank.Read(s.layout.logSlotOffset(index), s.layout.entryRawSize)
		faulted := s.fault.checkAndClear()
		entry := s.layout.decodeLogEntry(raw)

		if isBlankU32(entry.start) && isBlankU32(entry.length) {
			firstFreeLogEntry = index
			break
		}
		if faulted {
			s.logger.Warnf("kvs: ECC fault reading log slot %d, skipping", index)
			continue
		}
		if !s.headerCRCOK(bank, raw, entry) {
			s.logger.Warnf("kvs: log slot %d failed header CRC, skipping", index)
			continue
		}
		if uint64(entry.start)+uint64(entry.length) > uint64(bank.Size()) {
			s.logger.Warnf("kvs: log slot %d has out-of-range data bounds, skipping", index)
			continue
		}

		lastValid = entry
		haveValid = true
	}

	if haveValid {
		firstFreeData = roundUp(lastValid.start+lastValid.length, s.layout.writeBlock)
	} else {
		firstFreeData = s.layout.dataRegionStart(logSize)
	}
	return firstFreeLogEntry, firstFreeData
}

// headerCRCOK validates the headerCRC field of a decoded entry against
// the raw bytes it was decoded from. headerCRC == 0 means "absent"; older
// layouts never computed it, so only the data CRC gates validity for
// those entries.
func (s *Store) headerCRCOK(bank Bank, raw []byte, entry logEntry) bool {
	if entry.headerCRC == 0 {
		return true
	}
	got := bank.CRC(raw[:s.layout.headerCRCSize()])
	return got == entry.headerCRC
}
