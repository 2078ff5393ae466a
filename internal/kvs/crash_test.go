package kvs_test

import (
	"testing"

	. "github.com/azonenberg/microkvs/internal/kvs"
	"github.com/azonenberg/microkvs/internal/kvstest"
)

// TestAbortedWriteDuringStoreKeepsPriorValue covers the spec's crash
// scenario: a power loss mid-write during StoreObject must leave the
// previously committed value intact (or not-found, for a first-ever
// store) once the store is remounted.
func TestAbortedWriteDuringStoreKeepsPriorValue(t *testing.T) {
	left := kvstest.NewMemBank(testBankSize, 1, 0)
	right := kvstest.NewMemBank(testBankSize, 1, testBankSize)
	s, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if !s.StoreObject("OHAI", []byte("first value")) {
		t.Fatal("initial store failed")
	}

	// Abort the second Write call from here (the payload write of the
	// second store; the first is its log-slot trailer) after a short
	// prefix is programmed.
	left.InjectWriteAbort(left.WriteCalls()+2, 3)
	s.StoreObject("OHAI", []byte("second value, much longer"))
	left.ClearFaultInjection()

	s2, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	got := readString(t, s2, "OHAI")
	if got != "first value" {
		t.Errorf("OHAI = %q after aborted write, want prior value %q", got, "first value")
	}
}

// TestAbortedWriteDuringStoreFirstEverLeavesNotFound mirrors the same
// scenario for a key with no prior value.
func TestAbortedWriteDuringStoreFirstEverLeavesNotFound(t *testing.T) {
	left := kvstest.NewMemBank(testBankSize, 1, 0)
	right := kvstest.NewMemBank(testBankSize, 1, testBankSize)
	s, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	left.InjectWriteAbort(left.WriteCalls()+2, 2)
	s.StoreObject("newkey", []byte("value"))
	left.ClearFaultInjection()

	s2, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	if _, ok := s2.FindObject("newkey"); ok {
		t.Error("expected newkey to be not-found after aborted first-ever write")
	}
}

// TestAbortedCompactHeaderWriteKeepsOriginalBank covers scenario 6: an
// abort on the final header write inside Compact must leave the original
// bank active, with its version and all key values unchanged.
func TestAbortedCompactHeaderWriteKeepsOriginalBank(t *testing.T) {
	left := kvstest.NewMemBank(testBankSize, 1, 0)
	right := kvstest.NewMemBank(testBankSize, 1, testBankSize)
	s, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.StoreObject("OHAI", []byte("hello world"))
	s.StoreObject("shibe", []byte("lolcat"))
	s.StoreObject("monorail", []byte("basement cat attacks!!!1!1!"))

	versionBefore := s.BankHeaderVersion()

	// The new header is always written at offset 0 and is the commit
	// point of Compact; abort it entirely.
	right.InjectWriteAbortAtOffset(0, 0)
	err = s.Compact()
	if err == nil {
		t.Fatal("expected Compact to fail when its header write is aborted")
	}
	right.ClearFaultInjection()

	s2, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	if !s2.IsLeftBankActive() {
		t.Error("expected left bank to remain active after aborted compaction")
	}
	if s2.BankHeaderVersion() != versionBefore {
		t.Errorf("version = %d after aborted compaction, want unchanged %d", s2.BankHeaderVersion(), versionBefore)
	}
	for key, want := range map[string]string{
		"OHAI":     "hello world",
		"shibe":    "lolcat",
		"monorail": "basement cat attacks!!!1!1!",
	} {
		if got := readString(t, s2, key); got != want {
			t.Errorf("%s = %q after aborted compaction, want %q", key, got, want)
		}
	}
}

// TestECCFaultSkipsPoisonedEntry exercises the fault shim: a read that
// takes an uncorrectable ECC fault must be treated as invalid and the
// fault cleared, not propagated as the entry's content.
func TestECCFaultSkipsPoisonedEntry(t *testing.T) {
	left := kvstest.NewMemBank(testBankSize, 1, 0)
	right := kvstest.NewMemBank(testBankSize, 1, testBankSize)
	s, err := NewStore(left, right, testLogSize)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	left.SetFaultHandler(s.OnUncorrectableECCFault)

	s.StoreObject("OHAI", []byte("hello world"))
	slot, ok := s.FindObject("OHAI")
	if !ok {
		t.Fatal("expected OHAI to be found before poisoning")
	}

	left.PoisonRange(slot.Start, slot.Len)
	if _, ok := s.FindObject("OHAI"); ok {
		t.Error("expected OHAI to be unreadable while its data range is poisoned")
	}
	left.ClearPoison()

	if _, ok := s.FindObject("OHAI"); !ok {
		t.Error("expected OHAI to be readable again once the fault cleared")
	}
}
