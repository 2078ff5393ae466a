// Package mmapbank implements kvs.Bank over a regular file, memory-mapped
// with github.com/edsrzf/mmap-go. It backs the demo host and gives a
// closer stand-in for a real memory-mapped region than kvstest's plain
// byte slice; the store's own tests use kvstest.
package mmapbank

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/azonenberg/microkvs/internal/kvs"
)

// Bank maps size bytes of path into memory. The file is created and
// zero-filled (then erased to 0xFF on first use, like real NOR flash) if
// it does not already exist at the requested size.
type Bank struct {
	f          *os.File
	m          mmap.MMap
	writeBlock uint32
	base       uint32
}

// Open maps path, creating it at size bytes if necessary.
func Open(path string, size, writeBlock, base uint32) (*Bank, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, err
		}
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	b := &Bank{f: f, m: m, writeBlock: writeBlock, base: base}
	if info.Size() != int64(size) {
		if err := b.Erase(); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// Close unmaps and closes the backing file.
func (b *Bank) Close() error {
	if err := b.m.Unmap(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}

func (b *Bank) Erase() error {
	for i := range b.m {
		b.m[i] = 0xFF
	}
	return b.m.Flush()
}

func (b *Bank) Write(offset uint32, data []byte) error {
	if b.writeBlock > 1 && (offset%b.writeBlock != 0 || uint32(len(data))%b.writeBlock != 0) {
		return os.ErrInvalid
	}
	copy(b.m[offset:], data)
	return b.m.Flush()
}

func (b *Bank) Read(offset, length uint32) []byte {
	out := make([]byte, length)
	copy(out, b.m[offset:offset+length])
	return out
}

func (b *Bank) CRC(data []byte) uint32 {
	return kvs.CRC(data)
}

func (b *Bank) Base() uint32 { return b.base }

func (b *Bank) Size() uint32 { return uint32(len(b.m)) }

func (b *Bank) WriteBlockSize() uint32 { return b.writeBlock }
