package gwatch

// Windows exception codes relevant to continue-code policy. These are
// plain numeric constants (no syscalls), so the policy below is testable
// without a Windows build tag.
const (
	ExceptionBreakpoint uint32 = 0x80000003
	ExceptionSingleStep uint32 = 0x80000004
)

// Continue-code values as defined by the Windows debug API
// (WinBase.h / DBG_CONTINUE, DBG_EXCEPTION_NOT_HANDLED).
const (
	dbgContinue            uint32 = 0x00010002
	dbgExceptionNotHandled uint32 = 0x80010001
)

// continueCode maps a sink's decision plus the event that produced it to
// the final continue code the launcher passes to ContinueDebugEvent.
//
// Policy (spec table):
//   - Continue            -> always dbgContinue
//   - NotHandled          -> always dbgExceptionNotHandled
//   - Default, exception with code == breakpoint or single-step -> dbgContinue (swallow)
//   - Default, exception, any other code                        -> dbgExceptionNotHandled
//   - Default, non-exception                                     -> dbgContinue
func continueCode(decision ContinueDecision, ev DebugEvent) uint32 {
	switch decision {
	case Continue:
		return dbgContinue
	case NotHandled:
		return dbgExceptionNotHandled
	}

	if ev.Kind == EventException {
		switch ev.Exception.Code {
		case ExceptionBreakpoint, ExceptionSingleStep:
			return dbgContinue
		default:
			return dbgExceptionNotHandled
		}
	}
	return dbgContinue
}
