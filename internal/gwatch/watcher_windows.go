//go:build windows

package gwatch

import (
	"syscall"

	"github.com/sirupsen/logrus"
)

// windowsArmer programs hardware watchpoint slot 0 (DR0/DR6/DR7) on a
// thread by suspending it, patching its CONTEXT, and resuming it.
// Grounded on the debug-register layout of pkg/proc/winutil and the
// arm/disarm sequence implied by original_source's reliance on
// EXCEPTION_SINGLE_STEP delivery after a data breakpoint fires.
type windowsArmer struct {
	process syscall.Handle
	log     *logrus.Entry
}

func (a windowsArmer) arm(threadID uint32, addr uint64, size int) error {
	set, clear, err := dr7SlotZero(size)
	if err != nil {
		return newMemoryWatchError("invalid watchpoint size", threadID, err)
	}

	h, err := openThread(threadGetContext|threadSetContext|threadQueryInfo|threadSuspendResume, false, threadID)
	if err != nil {
		return newMemoryWatchError("OpenThread failed", threadID, err)
	}
	defer closeHandle(h)

	if _, err := suspendThread(h); err != nil {
		return newMemoryWatchError("SuspendThread failed", threadID, err)
	}
	defer resumeThread(h)

	ctx := newContext()
	ctx.ContextFlags = contextDebugRegisters
	if err := getThreadContext(h, ctx); err != nil {
		return newMemoryWatchError("GetThreadContext failed", threadID, err)
	}

	ctx.Dr0 = addr
	ctx.Dr6 = 0
	ctx.Dr7 = (ctx.Dr7 &^ clear) | set

	if err := setThreadContext(h, ctx); err != nil {
		return newMemoryWatchError("SetThreadContext failed", threadID, err)
	}
	a.log.Debugf("armed tid=%d addr=0x%x size=%d", threadID, addr, size)
	return nil
}

// windowsMemReader reads a watched value out of the target's address
// space via ReadProcessMemory.
type windowsMemReader struct {
	process syscall.Handle
	log     *logrus.Entry
}

func (r windowsMemReader) readValue(addr uint64, size int) (uint64, error) {
	if !validSize(size) {
		return 0, newMemoryWatchError("invalid read size", 0, nil)
	}
	var buf [8]byte
	n, err := readProcessMemory(r.process, uintptr(addr), buf[:size])
	if err != nil {
		return 0, newMemoryWatchError("ReadProcessMemory failed", 0, err)
	}
	if n != size {
		return 0, newMemoryWatchError("ReadProcessMemory short read", 0, nil)
	}
	value := decodeLE(buf, size)
	r.log.Debugf("read addr=0x%x size=%d value=%d", addr, size, value)
	return value, nil
}

// NewMemoryWatcher validates the inputs and constructs a watcher backed
// by real Windows debug registers and cross-process memory reads, or by
// a no-op armer when noArm is set (spec.md §4.3's test-only mode).
func NewMemoryWatcher(process syscall.Handle, symbol ResolvedSymbol, noArm bool, logger AccessLogger) (*MemoryWatcher, error) {
	if err := validateWatcherConstruction(process != 0, symbol.Size); err != nil {
		return nil, err
	}

	log := WatcherLogger()

	var arm armer = windowsArmer{process: process, log: log}
	if noArm {
		arm = noopArmer{}
	}
	mem := windowsMemReader{process: process, log: log}

	return newMemoryWatcher(symbol, arm, mem, logger), nil
}
