package kvs

import (
	"bytes"
	"sort"
)

// FindObject locates the latest valid record for name in the active
// bank's log. It returns ok == false if no live record exists, including
// when the latest record is a tombstone (len == 0) or every candidate
// failed validation.
func (s *Store) FindObject(name string) (Slot, bool) {
	key := s.layout.canonicalKey(name)
	bank := s.active()

	var best Slot
	haveBest := false

	for index := uint32(0); index < s.firstFreeLogEntry; index++ {
		raw := bank.Read(s.layout.logSlotOffset(index), s.layout.entryRawSize)
		if s.fault.checkAndClear() {
			s.logger.Warnf("kvs: ECC fault reading log slot %d during FindObject(%q), skipping", index, name)
			continue
		}
		entry := s.layout.decodeLogEntry(raw)
		if isBlankU32(entry.start) {
			break
		}
		if !bytes.Equal(entry.key, key) {
			continue
		}
		if !s.headerCRCOK(bank, raw, entry) {
			s.logger.Warnf("kvs: log slot %d for %q failed header CRC, skipping", index, name)
			continue
		}

		payload := bank.Read(entry.start, entry.length)
		faulted := s.fault.checkAndClear()
		if faulted {
			s.logger.Warnf("kvs: ECC fault reading data for %q at slot %d, skipping", name, index)
			continue
		}
		if bank.CRC(payload) != entry.crc {
			s.logger.Warnf("kvs: data CRC mismatch for %q at slot %d, skipping", name, index)
			continue
		}

		best = Slot{Index: index, Start: entry.start, Len: entry.length}
		haveBest = true
	}

	if !haveBest || best.Len == 0 {
		return Slot{}, false
	}
	return best, true
}

// ReadObject copies up to len(buf) bytes of name's current value into buf
// and reports whether the key was found. If the stored value is longer
// than buf, the copy is silently truncated.
func (s *Store) ReadObject(name string, buf []byte) bool {
	slot, ok := s.FindObject(name)
	if !ok {
		return false
	}
	n := slot.Len
	if uint32(len(buf)) < n {
		n = uint32(len(buf))
	}
	payload := s.active().Read(slot.Start, n)
	if s.fault.checkAndClear() {
		return false
	}
	copy(buf, payload)
	return true
}

// EnumObjects walks the active bank's log and returns up to max distinct
// keys with their current size and revision count, sorted by the raw
// NAMELEN-byte key. A later tombstone for a key increments its revision
// count but does not remove it from the result; EnumObjects reports
// presence in the log, not resolved visibility.
func (s *Store) EnumObjects(max int) []EnumEntry {
	bank := s.active()
	var out []EnumEntry
	index := make(map[string]int)

	for i := uint32(0); i < s.firstFreeLogEntry && len(out) < max; i++ {
		raw := bank.Read(s.layout.logSlotOffset(i), s.layout.entryRawSize)
		if s.fault.checkAndClear() {
			s.logger.Warnf("kvs: ECC fault reading log slot %d during EnumObjects, skipping", i)
			continue
		}
		entry := s.layout.decodeLogEntry(raw)
		if isBlankU32(entry.start) {
			break
		}
		if !s.headerCRCOK(bank, raw, entry) {
			s.logger.Warnf("kvs: log slot %d failed header CRC during EnumObjects, skipping", i)
			continue
		}
		if entry.length != 0 {
			payload := bank.Read(entry.start, entry.length)
			if s.fault.checkAndClear() {
				s.logger.Warnf("kvs: ECC fault reading data at slot %d during EnumObjects, skipping", i)
				continue
			}
			if bank.CRC(payload) != entry.crc {
				s.logger.Warnf("kvs: data CRC mismatch at slot %d during EnumObjects, skipping", i)
				continue
			}
		}

		k := string(entry.key)
		if pos, found := index[k]; found {
			out[pos].Size = entry.length
			out[pos].Revs++
			continue
		}
		if len(out) >= max {
			break
		}
		key := make([]byte, len(entry.key))
		copy(key, entry.key)
		index[k] = len(out)
		out = append(out, EnumEntry{Key: key, Size: entry.length, Revs: 1})
	}

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key, out[j].Key) < 0
	})
	return out
}
