package kvstest

import (
	"bytes"
	"testing"
)

func TestEraseProducesAllFF(t *testing.T) {
	b := NewMemBank(256, 1, 0)
	b.mem[10] = 0x00
	if err := b.Erase(); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	for i, v := range b.mem {
		if v != 0xFF {
			t.Fatalf("byte %d = %#x after erase, want 0xff", i, v)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := NewMemBank(256, 8, 0)
	data := []byte("abcdefgh")
	if err := b.Write(8, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := b.Read(8, uint32(len(data)))
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %q, want %q", got, data)
	}
}

func TestWriteRejectsUnalignedOffset(t *testing.T) {
	b := NewMemBank(256, 8, 0)
	if err := b.Write(3, []byte("12345678")); err == nil {
		t.Error("expected error for unaligned offset")
	}
}

func TestWriteAppliesAndSemantics(t *testing.T) {
	b := NewMemBank(256, 1, 0)
	b.Write(0, []byte{0b11110000})
	b.Write(0, []byte{0b10101010})
	got := b.Read(0, 1)
	if got[0] != 0b10100000 {
		t.Errorf("got %#08b, want %#08b", got[0], 0b10100000)
	}
}

func TestInjectedWriteAbortLeavesPrefixProgrammed(t *testing.T) {
	b := NewMemBank(256, 1, 0)
	b.InjectWriteAbort(1, 3)
	err := b.Write(0, []byte("abcdef"))
	if err == nil {
		t.Fatal("expected injected abort error")
	}
	got := b.Read(0, 6)
	if !bytes.Equal(got[:3], []byte("abc")) {
		t.Errorf("expected first 3 bytes programmed, got %q", got[:3])
	}
	if got[3] != 0xFF {
		t.Errorf("expected byte 3 to remain blank, got %#x", got[3])
	}
}

func TestPoisonRangeInvokesFaultHandler(t *testing.T) {
	b := NewMemBank(256, 1, 0)
	var gotAddr uint32
	called := false
	b.SetFaultHandler(func(addr, pc uint32) {
		called = true
		gotAddr = addr
	})
	b.PoisonRange(10, 4)

	out := b.Read(10, 4)
	if !called {
		t.Fatal("expected fault handler to be called")
	}
	if gotAddr != 10 {
		t.Errorf("fault addr = %d, want 10", gotAddr)
	}
	for _, v := range out {
		if v != 0xFF {
			t.Error("expected poisoned read to return all-0xFF placeholder")
		}
	}
}
