package gwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContinueCode_ExplicitDecisionsWin(t *testing.T) {
	ev := DebugEvent{Kind: EventException, Exception: ExceptionInfo{Code: 0xC0000005}}
	assert.Equal(t, dbgContinue, continueCode(Continue, ev))
	assert.Equal(t, dbgExceptionNotHandled, continueCode(NotHandled, ev))
}

func TestContinueCode_DefaultSwallowsBreakpointAndSingleStep(t *testing.T) {
	for _, code := range []uint32{ExceptionBreakpoint, ExceptionSingleStep} {
		ev := DebugEvent{Kind: EventException, Exception: ExceptionInfo{Code: code}}
		assert.Equal(t, dbgContinue, continueCode(Default, ev))
	}
}

func TestContinueCode_DefaultPropagatesOtherExceptions(t *testing.T) {
	ev := DebugEvent{Kind: EventException, Exception: ExceptionInfo{Code: 0xC0000005}}
	assert.Equal(t, dbgExceptionNotHandled, continueCode(Default, ev))
}

func TestContinueCode_DefaultNonExceptionAlwaysContinues(t *testing.T) {
	for _, kind := range []EventKind{EventCreateProcess, EventExitProcess, EventCreateThread, EventExitThread, EventLoadDll, EventUnloadDll, EventOutputDebugString, EventRip} {
		ev := DebugEvent{Kind: kind}
		assert.Equal(t, dbgContinue, continueCode(Default, ev))
	}
}
