// Package kvstest provides an in-RAM kvs.Bank double for exercising the
// store without real flash, including fault injection for crash and
// ECC-fault simulation.
package kvstest

import (
	"errors"
	"fmt"

	"github.com/azonenberg/microkvs/internal/kvs"
)

var errInjectedAbort = errors.New("kvstest: injected abort")

type abortSpec struct {
	atCall int
	prefix uint32
}

type poisonRange struct {
	offset, length uint32
}

// MemBank is a kvs.Bank backed by a plain byte slice, initialized blank
// (all 0xFF) like an erased chip. Writes apply NOR-flash AND semantics
// (a bit can only move from 1 to 0) so a test that writes over a
// non-blank region sees the same silently-corrupted result real flash
// would produce, rather than a clean overwrite.
type MemBank struct {
	mem        []byte
	writeBlock uint32
	base       uint32

	writeCalls int
	eraseCalls int
	writeAbort       *abortSpec
	eraseAbort       *abortSpec
	writeAbortOffset *offsetAbortSpec

	poison       []poisonRange
	faultHandler func(addr, pc uint32)
}

type offsetAbortSpec struct {
	offset uint32
	prefix uint32
}

// NewMemBank allocates a blank bank of size bytes with the given write
// block size and diagnostic base address.
func NewMemBank(size, writeBlock, base uint32) *MemBank {
	b := &MemBank{
		mem:        make([]byte, size),
		writeBlock: writeBlock,
		base:       base,
	}
	for i := range b.mem {
		b.mem[i] = 0xFF
	}
	return b
}

// InjectWriteAbort makes the atCall-th Write (1-indexed) program only the
// first prefix bytes of its argument and then return an error, modeling
// a power loss mid-program.
func (b *MemBank) InjectWriteAbort(atCall int, prefix uint32) {
	b.writeAbort = &abortSpec{atCall: atCall, prefix: prefix}
}

// InjectEraseAbort makes the atCall-th Erase set only the first prefix
// bytes to 0xFF and then return an error.
func (b *MemBank) InjectEraseAbort(atCall int, prefix uint32) {
	b.eraseAbort = &abortSpec{atCall: atCall, prefix: prefix}
}

// InjectWriteAbortAtOffset aborts the next Write targeting exactly
// offset, programming only prefix bytes first. Useful for targeting a
// specific field (such as a bank header at offset 0) regardless of how
// many other writes precede it.
func (b *MemBank) InjectWriteAbortAtOffset(offset, prefix uint32) {
	b.writeAbortOffset = &offsetAbortSpec{offset: offset, prefix: prefix}
}

// ClearFaultInjection removes any configured abort.
func (b *MemBank) ClearFaultInjection() {
	b.writeAbort = nil
	b.eraseAbort = nil
	b.writeAbortOffset = nil
}

// SetFaultHandler installs the callback invoked synchronously when Read
// touches a poisoned range, standing in for an asynchronous ECC trap
// handler that calls Store.OnUncorrectableECCFault before the faulting
// load returns.
func (b *MemBank) SetFaultHandler(f func(addr, pc uint32)) {
	b.faultHandler = f
}

// PoisonRange marks [offset, offset+length) as raising an uncorrectable
// ECC fault on every Read that overlaps it, until ClearPoison is called.
func (b *MemBank) PoisonRange(offset, length uint32) {
	b.poison = append(b.poison, poisonRange{offset: offset, length: length})
}

// ClearPoison removes all poisoned ranges.
func (b *MemBank) ClearPoison() {
	b.poison = nil
}

// WriteCalls reports how many times Write has been called.
func (b *MemBank) WriteCalls() int { return b.writeCalls }

// EraseCalls reports how many times Erase has been called.
func (b *MemBank) EraseCalls() int { return b.eraseCalls }

func (b *MemBank) Erase() error {
	b.eraseCalls++
	if b.eraseAbort != nil && b.eraseCalls == b.eraseAbort.atCall {
		n := b.eraseAbort.prefix
		if n > uint32(len(b.mem)) {
			n = uint32(len(b.mem))
		}
		for i := uint32(0); i < n; i++ {
			b.mem[i] = 0xFF
		}
		return errInjectedAbort
	}
	for i := range b.mem {
		b.mem[i] = 0xFF
	}
	return nil
}

func (b *MemBank) Write(offset uint32, data []byte) error {
	b.writeCalls++
	if b.writeAbortOffset != nil && offset == b.writeAbortOffset.offset {
		n := b.writeAbortOffset.prefix
		if n > uint32(len(data)) {
			n = uint32(len(data))
		}
		b.program(offset, data[:n])
		b.writeAbortOffset = nil
		return errInjectedAbort
	}
	if b.writeAbort != nil && b.writeCalls == b.writeAbort.atCall {
		n := b.writeAbort.prefix
		if n > uint32(len(data)) {
			n = uint32(len(data))
		}
		b.program(offset, data[:n])
		return errInjectedAbort
	}
	if b.writeBlock > 1 && (offset%b.writeBlock != 0 || uint32(len(data))%b.writeBlock != 0) {
		return fmt.Errorf("kvstest: write at %d of %d bytes violates write block %d", offset, len(data), b.writeBlock)
	}
	if uint64(offset)+uint64(len(data)) > uint64(len(b.mem)) {
		return fmt.Errorf("kvstest: write at %d of %d bytes runs past bank end", offset, len(data))
	}
	b.program(offset, data)
	return nil
}

// program applies flash AND-programming semantics: a byte can only have
// bits cleared, never set, by a write.
func (b *MemBank) program(offset uint32, data []byte) {
	for i, v := range data {
		b.mem[offset+uint32(i)] &= v
	}
}

func (b *MemBank) Read(offset, length uint32) []byte {
	for _, p := range b.poison {
		if rangesOverlap(p.offset, p.length, offset, length) {
			if b.faultHandler != nil {
				b.faultHandler(b.base+offset, 0)
			}
			out := make([]byte, length)
			for i := range out {
				out[i] = 0xFF
			}
			return out
		}
	}
	out := make([]byte, length)
	copy(out, b.mem[offset:offset+length])
	return out
}

func (b *MemBank) CRC(data []byte) uint32 {
	return kvs.CRC(data)
}

func (b *MemBank) Base() uint32 { return b.base }

func (b *MemBank) Size() uint32 { return uint32(len(b.mem)) }

func (b *MemBank) WriteBlockSize() uint32 { return b.writeBlock }

func rangesOverlap(aOff, aLen, bOff, bLen uint32) bool {
	if aLen == 0 || bLen == 0 {
		return false
	}
	aEnd := aOff + aLen
	bEnd := bOff + bLen
	return aOff < bEnd && bOff < aEnd
}
