package gwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []EventKind
}

func (s *recordingSink) OnEvent(ev DebugEvent) ContinueDecision {
	s.events = append(s.events, ev.Kind)
	return Default
}

func TestLazySink_DefersUntilCreateProcessThenDelegates(t *testing.T) {
	inner := &recordingSink{}
	var gotHint ModuleLoadHint
	sink := newLazySink(func(hint ModuleLoadHint) (Sink, error) {
		gotHint = hint
		return inner, nil
	}, func(error) { t.Fatal("onError should not be called") })

	decision := sink.OnEvent(DebugEvent{Kind: EventCreateThread})
	assert.Equal(t, Default, decision)
	assert.Empty(t, inner.events, "resolve must not fire before CreateProcess")

	sink.OnEvent(DebugEvent{Kind: EventCreateProcess, CreateProcess: CreateProcessInfo{ImageBase: 0x140000000}})
	sink.OnEvent(DebugEvent{Kind: EventExitThread})

	require.Equal(t, []EventKind{EventCreateProcess, EventExitThread}, inner.events)
	assert.Equal(t, uint64(0x140000000), gotHint.ImageBase)
}

func TestLazySink_ResolveFailureReportsAndStopsDelegating(t *testing.T) {
	var reported error
	sink := newLazySink(func(ModuleLoadHint) (Sink, error) {
		return nil, newSymbolError("not found", nil)
	}, func(e error) { reported = e })

	decision := sink.OnEvent(DebugEvent{Kind: EventCreateProcess})
	assert.Equal(t, NotHandled, decision)
	require.Error(t, reported)

	// Further events are quietly ignored once resolution has failed.
	decision = sink.OnEvent(DebugEvent{Kind: EventCreateThread})
	assert.Equal(t, Default, decision)
}
