//go:build windows

package gwatch

import (
	"strings"
	"syscall"
	"unsafe"
)

// Raw Win32 bindings. golang.org/x/sys/windows does not wrap the debug
// API (WaitForDebugEvent, ContinueDebugEvent, DebugActiveProcess) or the
// cross-process memory/context calls this tool needs, so they are bound
// directly with syscall.NewLazyDLL, the same style the teacher uses for
// its own unwrapped calls in pkg/terminal/out_windows.go and
// pkg/debugdetect/detect_windows.go.
var (
	modkernel32 = syscall.NewLazyDLL("kernel32.dll")
	moddbghelp  = syscall.NewLazyDLL("dbghelp.dll")
	modpsapi    = syscall.NewLazyDLL("psapi.dll")

	procCreateProcessW             = modkernel32.NewProc("CreateProcessW")
	procWaitForDebugEvent          = modkernel32.NewProc("WaitForDebugEvent")
	procContinueDebugEvent         = modkernel32.NewProc("ContinueDebugEvent")
	procDebugActiveProcess         = modkernel32.NewProc("DebugActiveProcess")
	procDebugActiveProcessStop     = modkernel32.NewProc("DebugActiveProcessStop")
	procOpenProcess                = modkernel32.NewProc("OpenProcess")
	procOpenThread                 = modkernel32.NewProc("OpenThread")
	procCloseHandle                = modkernel32.NewProc("CloseHandle")
	procTerminateProcess           = modkernel32.NewProc("TerminateProcess")
	procReadProcessMemory          = modkernel32.NewProc("ReadProcessMemory")
	procWriteProcessMemory         = modkernel32.NewProc("WriteProcessMemory")
	procGetThreadContext           = modkernel32.NewProc("GetThreadContext")
	procSetThreadContext           = modkernel32.NewProc("SetThreadContext")
	procSuspendThread              = modkernel32.NewProc("SuspendThread")
	procResumeThread               = modkernel32.NewProc("ResumeThread")
	procQueryFullProcessImageNameW = modkernel32.NewProc("QueryFullProcessImageNameW")
	procGetFinalPathNameByHandleW  = modkernel32.NewProc("GetFinalPathNameByHandleW")

	procSymSetOptions    = moddbghelp.NewProc("SymSetOptions")
	procSymInitialize    = moddbghelp.NewProc("SymInitialize")
	procSymCleanup       = moddbghelp.NewProc("SymCleanup")
	procSymLoadModuleExW = moddbghelp.NewProc("SymLoadModuleExW")
	procSymFromName      = moddbghelp.NewProc("SymFromName")
	procSymGetTypeInfo   = moddbghelp.NewProc("SymGetTypeInfo")

	procEnumProcessModulesEx = modpsapi.NewProc("EnumProcessModulesEx")
	procGetModuleFileNameExW = modpsapi.NewProc("GetModuleFileNameExW")
	procGetModuleInformation = modpsapi.NewProc("GetModuleInformation")
)

// callBOOL invokes a Win32 function whose convention is "return nonzero
// on success, call GetLastError on failure", the convention mksyscall
// generates for BOOL-returning APIs. Matches the r1/err check style of
// pkg/terminal/out_windows.go.
func callBOOL(proc *syscall.LazyProc, args ...uintptr) error {
	r1, _, err := proc.Call(args...)
	if r1 == 0 {
		if err != syscall.Errno(0) {
			return err
		}
		return syscall.EINVAL
	}
	return nil
}

const (
	debugOnlyThisProcess = 0x00000002
	debugProcess         = 0x00000001
	createNewConsole     = 0x00000010
	createSuspended      = 0x00000004

	processQueryInformation = 0x0400
	processVMRead           = 0x0010

	threadGetContext    = 0x0008
	threadSetContext    = 0x0010
	threadQueryInfo     = 0x0040
	threadSuspendResume = 0x0002

	infinite = 0xFFFFFFFF
)

// Debug event codes (WinBase.h).
const (
	evtException      = 1
	evtCreateThread   = 2
	evtCreateProcess  = 3
	evtExitThread     = 4
	evtExitProcess    = 5
	evtLoadDll        = 6
	evtUnloadDll      = 7
	evtOutputDebugStr = 8
	evtRip            = 9
)

type startupInfoW struct {
	Cb              uint32
	Reserved1       *uint16
	Desktop         *uint16
	Title           *uint16
	X, Y            uint32
	XSize, YSize    uint32
	XCountChars     uint32
	YCountChars     uint32
	FillAttribute   uint32
	Flags           uint32
	ShowWindow      uint16
	Reserved2       uint16
	Reserved3       *byte
	StdInput        syscall.Handle
	StdOutput       syscall.Handle
	StdErr          syscall.Handle
}

type processInformation struct {
	Process   syscall.Handle
	Thread    syscall.Handle
	ProcessID uint32
	ThreadID  uint32
}

// createProcessDebugInfo mirrors CREATE_PROCESS_DEBUG_INFO.
type createProcessDebugInfo struct {
	File                syscall.Handle
	Process             syscall.Handle
	Thread              syscall.Handle
	BaseOfImage         uintptr
	DebugInfoFileOffset uint32
	DebugInfoSize       uint32
	ThreadLocalBase     uintptr
	StartAddress        uintptr
	ImageName           uintptr
	Unicode             uint16
}

// createThreadDebugInfo mirrors CREATE_THREAD_DEBUG_INFO.
type createThreadDebugInfo struct {
	Thread          syscall.Handle
	ThreadLocalBase uintptr
	StartAddress    uintptr
}

// exitProcessDebugInfo mirrors EXIT_PROCESS_DEBUG_INFO.
type exitProcessDebugInfo struct {
	ExitCode uint32
}

// exitThreadDebugInfo mirrors EXIT_THREAD_DEBUG_INFO.
type exitThreadDebugInfo struct {
	ExitCode uint32
}

// loadDllDebugInfo mirrors LOAD_DLL_DEBUG_INFO.
type loadDllDebugInfo struct {
	File                syscall.Handle
	BaseOfDll           uintptr
	DebugInfoFileOffset uint32
	DebugInfoSize       uint32
	ImageName           uintptr
	Unicode             uint16
}

// unloadDllDebugInfo mirrors UNLOAD_DLL_DEBUG_INFO.
type unloadDllDebugInfo struct {
	BaseOfDll uintptr
}

// outputDebugStringInfo mirrors OUTPUT_DEBUG_STRING_INFO.
type outputDebugStringInfo struct {
	DebugStringData   uintptr
	Unicode           uint16
	DebugStringLength uint16
}

// ripInfo mirrors RIP_INFO.
type ripInfo struct {
	Error uint32
	Type  uint32
}

const exceptionMaximumParameters = 15

// exceptionRecord mirrors EXCEPTION_RECORD.
type exceptionRecord struct {
	ExceptionCode        uint32
	ExceptionFlags       uint32
	ExceptionRecord      uintptr
	ExceptionAddress     uintptr
	NumberParameters     uint32
	ExceptionInformation [exceptionMaximumParameters]uintptr
}

// exceptionDebugInfo mirrors EXCEPTION_DEBUG_INFO.
type exceptionDebugInfo struct {
	ExceptionRecord exceptionRecord
	FirstChance     uint32
}

// debugEventUnionSize is large enough to hold the largest member of the
// DEBUG_EVENT union on amd64 (EXCEPTION_DEBUG_INFO).
const debugEventUnionSize = 160

// debugEvent mirrors DEBUG_EVENT.
type debugEvent struct {
	Code      uint32
	ProcessID uint32
	ThreadID  uint32
	_         uint32 // padding to align the union on amd64
	U         [debugEventUnionSize]byte
}

func waitForDebugEvent(ev *debugEvent, millis uint32) error {
	return callBOOL(procWaitForDebugEvent, uintptr(unsafe.Pointer(ev)), uintptr(millis))
}

func continueDebugEvent(pid, tid, status uint32) error {
	return callBOOL(procContinueDebugEvent, uintptr(pid), uintptr(tid), uintptr(status))
}

func createProcessW(cmdLine *uint16, workDir *uint16, inheritHandles bool, creationFlags uint32, si *startupInfoW, pi *processInformation) error {
	var inherit uintptr
	if inheritHandles {
		inherit = 1
	}
	return callBOOL(procCreateProcessW, 0, uintptr(unsafe.Pointer(cmdLine)), 0, 0, inherit, uintptr(creationFlags), 0, uintptr(unsafe.Pointer(workDir)), uintptr(unsafe.Pointer(si)), uintptr(unsafe.Pointer(pi)))
}

func openProcess(access uint32, inheritHandle bool, pid uint32) (syscall.Handle, error) {
	var inherit uintptr
	if inheritHandle {
		inherit = 1
	}
	r1, _, err := procOpenProcess.Call(uintptr(access), inherit, uintptr(pid))
	if r1 == 0 {
		if err != syscall.Errno(0) {
			return 0, err
		}
		return 0, syscall.EINVAL
	}
	return syscall.Handle(r1), nil
}

func openThread(access uint32, inheritHandle bool, tid uint32) (syscall.Handle, error) {
	var inherit uintptr
	if inheritHandle {
		inherit = 1
	}
	r1, _, err := procOpenThread.Call(uintptr(access), inherit, uintptr(tid))
	if r1 == 0 {
		if err != syscall.Errno(0) {
			return 0, err
		}
		return 0, syscall.EINVAL
	}
	return syscall.Handle(r1), nil
}

func closeHandle(h syscall.Handle) error {
	return callBOOL(procCloseHandle, uintptr(h))
}

func readProcessMemory(h syscall.Handle, addr uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n uintptr
	err := callBOOL(procReadProcessMemory, uintptr(h), addr, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), uintptr(unsafe.Pointer(&n)))
	return int(n), err
}

func writeProcessMemory(h syscall.Handle, addr uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n uintptr
	err := callBOOL(procWriteProcessMemory, uintptr(h), addr, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), uintptr(unsafe.Pointer(&n)))
	return int(n), err
}

func getThreadContext(h syscall.Handle, ctx *context) error {
	return callBOOL(procGetThreadContext, uintptr(h), uintptr(unsafe.Pointer(ctx)))
}

func setThreadContext(h syscall.Handle, ctx *context) error {
	return callBOOL(procSetThreadContext, uintptr(h), uintptr(unsafe.Pointer(ctx)))
}

func suspendThread(h syscall.Handle) (uint32, error) {
	r1, _, err := procSuspendThread.Call(uintptr(h))
	if int32(r1) == -1 {
		if err != syscall.Errno(0) {
			return 0, err
		}
		return 0, syscall.EINVAL
	}
	return uint32(r1), nil
}

func resumeThread(h syscall.Handle) (uint32, error) {
	r1, _, err := procResumeThread.Call(uintptr(h))
	if int32(r1) == -1 {
		if err != syscall.Errno(0) {
			return 0, err
		}
		return 0, syscall.EINVAL
	}
	return uint32(r1), nil
}

func queryFullProcessImageName(h syscall.Handle) (string, error) {
	n := uint32(260)
	for {
		buf := make([]uint16, n)
		size := n
		err := callBOOL(procQueryFullProcessImageNameW, uintptr(h), 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
		if err == nil {
			return syscall.UTF16ToString(buf[:size]), nil
		}
		if err != syscall.ERROR_INSUFFICIENT_BUFFER || n > 1<<16 {
			return "", err
		}
		n *= 2
	}
}

// volumePathPrefix is the extended-length prefix GetFinalPathNameByHandleW
// returns by default (FILE_NAME_NORMALIZED, VOLUME_NAME_DOS).
const volumePathPrefix = `\\?\`

func getFinalPathName(h syscall.Handle) (string, error) {
	n := uint32(260)
	for {
		buf := make([]uint16, n)
		r1, _, err := procGetFinalPathNameByHandleW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(n), 0)
		if r1 == 0 {
			if err != syscall.Errno(0) {
				return "", err
			}
			return "", syscall.EINVAL
		}
		if uint32(r1) > n {
			n = uint32(r1)
			continue
		}
		return strings.TrimPrefix(syscall.UTF16ToString(buf[:r1]), volumePathPrefix), nil
	}
}
