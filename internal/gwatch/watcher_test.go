package gwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArmer struct {
	armed   map[uint32]int
	failTID uint32
}

func (a *fakeArmer) arm(tid uint32, addr uint64, size int) error {
	if a.armed == nil {
		a.armed = make(map[uint32]int)
	}
	if tid == a.failTID {
		return newMemoryWatchError("simulated arm failure", tid, nil)
	}
	a.armed[tid] = size
	return nil
}

type fakeMemReader struct {
	values []uint64
	idx    int
	failAt int // -1 disables
}

func (r *fakeMemReader) readValue(addr uint64, size int) (uint64, error) {
	if r.idx == r.failAt {
		return 0, newMemoryWatchError("simulated read failure", 0, nil)
	}
	if r.idx >= len(r.values) {
		return r.values[len(r.values)-1], nil
	}
	v := r.values[r.idx]
	r.idx++
	return v, nil
}

type fakeLogger struct {
	reads  []uint64
	writes [][2]uint64
}

func (l *fakeLogger) LogRead(symbol string, value uint64) {
	l.reads = append(l.reads, value)
}

func (l *fakeLogger) LogWrite(symbol string, oldValue, newValue uint64) {
	l.writes = append(l.writes, [2]uint64{oldValue, newValue})
}

func testSymbol() ResolvedSymbol {
	return ResolvedSymbol{Name: "counter", ModuleBase: 0x140000000, Address: 0x140003000, Size: 4}
}

func TestValidateWatcherConstruction(t *testing.T) {
	assert.Error(t, validateWatcherConstruction(false, 4))
	assert.Error(t, validateWatcherConstruction(true, 5))
	assert.NoError(t, validateWatcherConstruction(true, 4))
	assert.NoError(t, validateWatcherConstruction(true, 8))
}

// Scenario A-equivalent: CreateProcess establishes the baseline without
// logging, a single-step with the same value logs a read, not a write.
func TestMemoryWatcher_UnchangedValueLogsRead(t *testing.T) {
	mem := &fakeMemReader{values: []uint64{42, 42}, failAt: -1}
	logger := &fakeLogger{}
	w := newMemoryWatcher(testSymbol(), &fakeArmer{}, mem, logger)

	w.OnEvent(DebugEvent{Kind: EventCreateProcess, ThreadID: 1})
	w.OnEvent(DebugEvent{Kind: EventException, ThreadID: 1, Exception: ExceptionInfo{Code: ExceptionSingleStep}})

	// CreateProcess establishes the baseline silently; the single-step
	// re-read of the same value is the first logged line.
	assert.Equal(t, []uint64{42}, logger.reads)
	assert.Empty(t, logger.writes)
}

// Value changes between the CreateProcess baseline and the single-step:
// a write is logged with the correct old/new pair.
func TestMemoryWatcher_ChangedValueLogsWrite(t *testing.T) {
	mem := &fakeMemReader{values: []uint64{0, 7}, failAt: -1}
	logger := &fakeLogger{}
	w := newMemoryWatcher(testSymbol(), &fakeArmer{}, mem, logger)

	w.OnEvent(DebugEvent{Kind: EventCreateProcess, ThreadID: 1})
	w.OnEvent(DebugEvent{Kind: EventException, ThreadID: 1, Exception: ExceptionInfo{Code: ExceptionSingleStep}})

	require.Len(t, logger.writes, 1)
	assert.Equal(t, [2]uint64{0, 7}, logger.writes[0])
	assert.Empty(t, logger.reads)
}

func TestMemoryWatcher_ArmingFailuresAreSwallowedOnCreateProcessAndCreateThread(t *testing.T) {
	arm := &fakeArmer{failTID: 1}
	mem := &fakeMemReader{values: []uint64{0}, failAt: -1}
	w := newMemoryWatcher(testSymbol(), arm, mem, &fakeLogger{})

	decision := w.OnEvent(DebugEvent{Kind: EventCreateProcess, ThreadID: 1})
	assert.Equal(t, Default, decision)

	decision = w.OnEvent(DebugEvent{Kind: EventCreateThread, ThreadID: 2})
	assert.Equal(t, Default, decision)
	assert.Contains(t, w.ArmedThreads(), uint32(2))
	assert.NotContains(t, w.ArmedThreads(), uint32(1))
}

func TestMemoryWatcher_ExitThreadDisarmsBookkeeping(t *testing.T) {
	mem := &fakeMemReader{values: []uint64{0}, failAt: -1}
	w := newMemoryWatcher(testSymbol(), &fakeArmer{}, mem, &fakeLogger{})

	w.OnEvent(DebugEvent{Kind: EventCreateThread, ThreadID: 3})
	require.Contains(t, w.ArmedThreads(), uint32(3))

	w.OnEvent(DebugEvent{Kind: EventExitThread, ThreadID: 3})
	assert.NotContains(t, w.ArmedThreads(), uint32(3))
}

func TestMemoryWatcher_ReadFailureDuringClassificationIsNotHandled(t *testing.T) {
	mem := &fakeMemReader{values: []uint64{0}, failAt: 0}
	w := newMemoryWatcher(testSymbol(), &fakeArmer{}, mem, &fakeLogger{})

	decision := w.OnEvent(DebugEvent{Kind: EventException, ThreadID: 1, Exception: ExceptionInfo{Code: ExceptionSingleStep}})
	assert.Equal(t, NotHandled, decision)
}

func TestMemoryWatcher_NonSingleStepExceptionIsDefault(t *testing.T) {
	mem := &fakeMemReader{values: []uint64{0}, failAt: -1}
	w := newMemoryWatcher(testSymbol(), &fakeArmer{}, mem, &fakeLogger{})

	decision := w.OnEvent(DebugEvent{Kind: EventException, ThreadID: 1, Exception: ExceptionInfo{Code: ExceptionBreakpoint}})
	assert.Equal(t, Default, decision)
}

func TestDecodeEncodeLERoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 0xFF, 0xFFFFFFFF, 0xFFFFFFFFFFFFFFFF} {
		buf := encodeLE(v)
		assert.Equal(t, v&0xFFFFFFFF, decodeLE(buf, 4))
		assert.Equal(t, v, decodeLE(buf, 8))
	}
}
