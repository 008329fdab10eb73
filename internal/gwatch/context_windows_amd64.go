//go:build windows

package gwatch

import "unsafe"

// m128a mirrors the Windows M128A struct used inside the floating-point
// save area of a thread CONTEXT.
type m128a struct {
	Low  uint64
	High int64
}

// xmmSaveArea32 mirrors XMM_SAVE_AREA32, included in CONTEXT only because
// the struct layout requires it; this tool never reads it.
type xmmSaveArea32 struct {
	ControlWord    uint16
	StatusWord     uint16
	TagWord        byte
	Reserved1      byte
	ErrorOpcode    uint16
	ErrorOffset    uint32
	ErrorSelector  uint16
	Reserved2      uint16
	DataOffset     uint32
	DataSelector   uint16
	Reserved3      uint16
	MxCsr          uint32
	MxCsrMask      uint32
	FloatRegisters [8]m128a
	XmmRegisters   [256]byte
	Reserved4      [96]byte
}

// context mirrors the amd64 Windows CONTEXT struct, grounded on
// pkg/proc/winutil/regs_amd64_arch.go's AMD64CONTEXT. Only ContextFlags
// and the Dr0-Dr7 debug registers are touched by this tool; the rest of
// the layout is carried so the struct's size and field offsets match
// what GetThreadContext/SetThreadContext expect.
type context struct {
	P1Home uint64
	P2Home uint64
	P3Home uint64
	P4Home uint64
	P5Home uint64
	P6Home uint64

	ContextFlags uint32
	MxCsr        uint32

	SegCs  uint16
	SegDs  uint16
	SegEs  uint16
	SegFs  uint16
	SegGs  uint16
	SegSs  uint16
	EFlags uint32

	Dr0 uint64
	Dr1 uint64
	Dr2 uint64
	Dr3 uint64
	Dr6 uint64
	Dr7 uint64

	Rax uint64
	Rcx uint64
	Rdx uint64
	Rbx uint64
	Rsp uint64
	Rbp uint64
	Rsi uint64
	Rdi uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	Rip uint64

	FltSave xmmSaveArea32

	VectorRegister [26]m128a
	VectorControl  uint64

	DebugControl         uint64
	LastBranchToRip      uint64
	LastBranchFromRip    uint64
	LastExceptionToRip   uint64
	LastExceptionFromRip uint64
}

const (
	contextAMD64          = 0x00100000
	contextControl        = contextAMD64 | 0x1
	contextDebugRegisters = contextAMD64 | 0x10
)

// newContext allocates a CONTEXT struct aligned to 16 bytes, as
// GetThreadContext/SetThreadContext require on amd64. Grounded on
// winutil/regs_amd64_arch.go's NewAMD64CONTEXT.
func newContext() *context {
	var c *context
	buf := make([]byte, unsafe.Sizeof(*c)+15)
	return (*context)(unsafe.Pointer((uintptr(unsafe.Pointer(&buf[15]))) &^ 15))
}
