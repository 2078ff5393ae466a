package kvs

import "encoding/binary"

// headerMagic identifies a valid BankHeader. Stored little-endian.
const headerMagic uint32 = 0xC0DEF00D

// invalid32 is the unwritten-flash sentinel: all bits 1.
const invalid32 uint32 = 0xFFFFFFFF

// maxLogSize is the largest logSize a header may declare and still be
// considered valid; anything larger is assumed to be a torn or bogus write.
const maxLogSize uint32 = 0x80000000

// minNameLen is the smallest NAMELEN the layout will ever use, regardless
// of write block size.
const minNameLen uint32 = 16

// bankHeaderRawSize is sizeof(BankHeader) before write-block padding:
// magic(4) + version(4) + logSize(4).
const bankHeaderRawSize uint32 = 12

// entryTrailerSize is the encoded size of (start, len, crc, headerCRC).
const entryTrailerSize uint32 = 16

// headerCRCSpan is the number of bytes after the key that headerCRC also
// covers (start || len); the full span is key || start || len.
const headerCRCSpan = 8

// layout holds the geometry derived from a bank's write block size. Both
// banks passed to NewStore must agree on write block size, so one layout
// serves the whole Store.
type layout struct {
	writeBlock   uint32
	nameLen      uint32
	entryRawSize uint32
	entrySize    uint32
	headerSize   uint32
}

func newLayout(writeBlock uint32) layout {
	if writeBlock == 0 {
		writeBlock = 1
	}
	l := layout{
		writeBlock: writeBlock,
		nameLen:    roundUp(minNameLen, writeBlock),
	}
	l.entryRawSize = l.nameLen + entryTrailerSize
	l.entrySize = roundUp(l.entryRawSize, writeBlock)
	l.headerSize = roundUp(bankHeaderRawSize, writeBlock)
	return l
}

func roundUp(val, block uint32) uint32 {
	if block <= 1 {
		return val
	}
	rem := val % block
	if rem == 0 {
		return val
	}
	return val + (block - rem)
}

func (l layout) headerCRCSize() uint32 {
	return l.nameLen + headerCRCSpan
}

func (l layout) logSlotOffset(index uint32) uint32 {
	return l.headerSize + index*l.entrySize
}

func (l layout) dataRegionStart(logSize uint32) uint32 {
	return roundUp(l.headerSize+logSize*l.entrySize, l.writeBlock)
}

// bankHeader is the decoded form of BankHeader.
type bankHeader struct {
	magic   uint32
	version uint32
	logSize uint32
}

func decodeBankHeader(raw []byte) bankHeader {
	return bankHeader{
		magic:   binary.LittleEndian.Uint32(raw[0:4]),
		version: binary.LittleEndian.Uint32(raw[4:8]),
		logSize: binary.LittleEndian.Uint32(raw[8:12]),
	}
}

func encodeBankHeader(h bankHeader) []byte {
	buf := make([]byte, bankHeaderRawSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.version)
	binary.LittleEndian.PutUint32(buf[8:12], h.logSize)
	return buf
}

// valid reports whether a header passes the magic/logSize checks in
// spec.md §4.3. It does not and cannot account for an ECC fault raised
// while the header was read; callers must check that separately.
func (h bankHeader) valid() bool {
	return h.magic == headerMagic && h.logSize <= maxLogSize
}

// logEntry is the decoded form of a LogEntry slot.
type logEntry struct {
	key       []byte
	start     uint32
	length    uint32
	crc       uint32
	headerCRC uint32
}

func (l layout) decodeLogEntry(raw []byte) logEntry {
	n := l.nameLen
	return logEntry{
		key:       raw[0:n],
		start:     binary.LittleEndian.Uint32(raw[n : n+4]),
		length:    binary.LittleEndian.Uint32(raw[n+4 : n+8]),
		crc:       binary.LittleEndian.Uint32(raw[n+8 : n+12]),
		headerCRC: binary.LittleEndian.Uint32(raw[n+12 : n+16]),
	}
}

// encodeTrailer lays out (start, len, crc, headerCRC) contiguously, the
// four fields the writer programs in a single Write call when it reserves
// a log slot (spec.md §4.6 step 5).
func encodeTrailer(start, length, crc, headerCRC uint32) []byte {
	buf := make([]byte, entryTrailerSize)
	binary.LittleEndian.PutUint32(buf[0:4], start)
	binary.LittleEndian.PutUint32(buf[4:8], length)
	binary.LittleEndian.PutUint32(buf[8:12], crc)
	binary.LittleEndian.PutUint32(buf[12:16], headerCRC)
	return buf
}

// encodeLogEntry lays out a full LogEntry (key || trailer), used by the
// compactor when it writes a rewritten entry in one call.
func (l layout) encodeLogEntry(e logEntry) []byte {
	buf := make([]byte, l.entryRawSize)
	copy(buf[0:l.nameLen], e.key)
	copy(buf[l.nameLen:], encodeTrailer(e.start, e.length, e.crc, e.headerCRC))
	return buf
}

// canonicalKey truncates or zero-pads name to exactly nameLen bytes.
func (l layout) canonicalKey(name string) []byte {
	key := make([]byte, l.nameLen)
	copy(key, name)
	return key
}

func isBlankU32(v uint32) bool {
	return v == invalid32
}
