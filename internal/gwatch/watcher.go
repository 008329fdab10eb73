package gwatch

import "encoding/binary"

// armer abstracts programming a hardware watchpoint on a thread. The
// production Windows implementation does real debug-register work; the
// test-only "no-arm" mode and unit tests use a no-op that merely records
// bookkeeping (spec.md §4.3, §9).
type armer interface {
	arm(threadID uint32, addr uint64, size int) error
}

// memReader abstracts reading size bytes at addr in the target's address
// space, returned as a little-endian unsigned integer masked to size.
type memReader interface {
	readValue(addr uint64, size int) (uint64, error)
}

// noopArmer implements armer by doing nothing but succeeding: arming
// becomes pure bookkeeping, as spec.md §3's watcher-state invariant
// allows for "test-only no-arm mode".
type noopArmer struct{}

func (noopArmer) arm(uint32, uint64, int) error { return nil }

// AccessLogger receives exactly one call per classified access, in the
// fixed format required by spec.md §6. Production code writes to
// os.Stdout; tests can capture the calls instead.
type AccessLogger interface {
	LogRead(symbol string, value uint64)
	LogWrite(symbol string, oldValue, newValue uint64)
}

// MemoryWatcher is the event sink described in spec.md §4.3: it owns the
// resolved symbol, the last observed value, and the set of threads on
// which the hardware watchpoint is armed.
type MemoryWatcher struct {
	symbol ResolvedSymbol
	arm    armer
	mem    memReader
	logger AccessLogger

	lastValue    uint64
	haveLast     bool
	armedThreads map[uint32]struct{}
}

// validateWatcherConstruction implements the two construction-time
// rejections of spec.md §4.3: a null address-space handle, and a symbol
// size outside {4, 8}. Kept as a pure function so the boundary property
// in spec.md §8 is testable without a real OS process handle.
func validateWatcherConstruction(handleValid bool, size int) error {
	if !handleValid {
		return newMemoryWatchError("null process handle", 0, nil)
	}
	if !validSize(size) {
		return newMemoryWatchError("size must be 4 or 8 bytes", 0, nil)
	}
	return nil
}

// newMemoryWatcher builds a watcher from already-validated components.
// Callers (the Windows constructor, and tests) are responsible for
// calling validateWatcherConstruction first.
func newMemoryWatcher(symbol ResolvedSymbol, arm armer, mem memReader, logger AccessLogger) *MemoryWatcher {
	return &MemoryWatcher{
		symbol:       symbol,
		arm:          arm,
		mem:          mem,
		logger:       logger,
		armedThreads: make(map[uint32]struct{}),
	}
}

// OnEvent implements Sink. See spec.md §4.3 for the per-kind behavior.
func (w *MemoryWatcher) OnEvent(ev DebugEvent) ContinueDecision {
	switch ev.Kind {
	case EventCreateProcess:
		_ = w.install(ev.ThreadID) // errors swallowed: primary thread may not be openable yet
		if v, err := w.mem.readValue(w.symbol.Address, w.symbol.Size); err == nil {
			w.lastValue = v
			w.haveLast = true
		} else {
			w.haveLast = false
		}
		return Default

	case EventCreateThread:
		_ = w.install(ev.ThreadID) // errors swallowed: thread may exit before we can open it
		return Default

	case EventExitThread:
		delete(w.armedThreads, ev.ThreadID)
		return Default

	case EventException:
		if ev.Exception.Code == ExceptionSingleStep {
			return w.classify(ev.ThreadID)
		}
		return Default

	default:
		return Default
	}
}

// install arms the watchpoint on tid, recording it in the armed set.
func (w *MemoryWatcher) install(tid uint32) error {
	if _, ok := w.armedThreads[tid]; ok {
		return nil
	}
	if err := w.arm.arm(tid, w.symbol.Address, w.symbol.Size); err != nil {
		return err
	}
	w.armedThreads[tid] = struct{}{}
	return nil
}

// classify implements the single-step classification rule of spec.md
// §4.3: read the current value; if unset, record it as the baseline read;
// else compare against the last observed value and emit a read or write.
func (w *MemoryWatcher) classify(tid uint32) ContinueDecision {
	current, err := w.mem.readValue(w.symbol.Address, w.symbol.Size)
	if err != nil {
		return NotHandled
	}

	switch {
	case !w.haveLast:
		w.logger.LogRead(w.symbol.Name, current)
		w.lastValue = current
		w.haveLast = true
	case current != w.lastValue:
		w.logger.LogWrite(w.symbol.Name, w.lastValue, current)
		w.lastValue = current
	default:
		w.logger.LogRead(w.symbol.Name, current)
	}

	if _, ok := w.armedThreads[tid]; !ok {
		_ = w.install(tid) // errors swallowed, per spec.md §4.3
	}

	return Default
}

// ArmedThreads reports the threads currently believed to be armed. Used
// by tests to check the invariant in spec.md §8.1.
func (w *MemoryWatcher) ArmedThreads() map[uint32]struct{} {
	out := make(map[uint32]struct{}, len(w.armedThreads))
	for tid := range w.armedThreads {
		out[tid] = struct{}{}
	}
	return out
}

// LastValue returns the last observed value and whether one has been set.
func (w *MemoryWatcher) LastValue() (uint64, bool) {
	return w.lastValue, w.haveLast
}

// decodeLE interprets buf's first size bytes as a little-endian unsigned
// integer, masked to that width.
func decodeLE(buf [8]byte, size int) uint64 {
	v := binary.LittleEndian.Uint64(buf[:])
	mask, err := maskForSize(size)
	if err != nil {
		return 0
	}
	return v & mask
}

// encodeLE writes value into an 8-byte little-endian buffer, matching the
// "always use an 8-byte zero-initialized local" rule of spec.md §9.
func encodeLE(value uint64) [8]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return buf
}
