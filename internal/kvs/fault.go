package kvs

import "sync/atomic"

// faultShim holds the async ECC-fault notification state. A real trap
// handler calls Store.OnUncorrectableECCFault from outside the store's
// single-threaded call path, so these three fields are the only state in
// the package that must tolerate concurrent access.
//
// There is no third-party "volatile flag" primitive in the Go ecosystem;
// sync/atomic is the standard, idiomatic tool for a flag set from a
// signal/trap context and polled from the mainline, so the stdlib is used
// here rather than a dependency.
type faultShim struct {
	pending atomic.Bool
	addr    atomic.Uint32
	pc      atomic.Uint32
}

// raise records a fault. Safe to call from a fault handler at any time.
func (f *faultShim) raise(addr, pc uint32) {
	f.addr.Store(addr)
	f.pc.Store(pc)
	f.pending.Store(true)
}

// checkAndClear reports whether a fault arrived since the last check, and
// clears it. Every read-validating pass in the reader, scanner, and
// compactor calls this immediately after a Bank.Read and discards the
// value it just read if it returns true.
func (f *faultShim) checkAndClear() bool {
	return f.pending.Swap(false)
}

// OnUncorrectableECCFault is called by the host's trap handler when a load
// from within either bank's mapped range takes an uncorrectable ECC fault.
// It must be safe to call from interrupt/signal context; it does nothing
// but record state for the next validating read to discover.
func (s *Store) OnUncorrectableECCFault(flashAddr, pc uint32) {
	s.fault.raise(flashAddr, pc)
}
