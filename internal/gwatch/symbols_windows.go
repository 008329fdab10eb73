//go:build windows

package gwatch

import (
	"fmt"
	"syscall"
	"unsafe"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

const (
	symOptUndname       = 0x00000002
	symOptDeferredLoads = 0x00000004
	symOptLoadLines     = 0x00000010
	symRecommendedOpts  = symOptUndname | symOptDeferredLoads | symOptLoadLines

	listModulesAll = 0x03

	tiGetLength = 2
)

// symbolInfo mirrors Windows' SYMBOL_INFO (the ANSI SymFromName variant,
// whose Name field is CHAR, not WCHAR).
type symbolInfo struct {
	SizeOfStruct uint32
	TypeIndex    uint32
	Reserved     [2]uint64
	Index        uint32
	Size         uint32
	ModBase      uint64
	Flags        uint32
	Value        uint64
	Address      uint64
	Register     uint32
	Scope        uint32
	Tag          uint32
	NameLen      uint32
	MaxNameLen   uint32
	Name         [maxSymbolNameLen]byte
}

const maxSymbolNameLen = 1024

// sizeOfSymbolInfoHead is what SYMBOL_INFO.SizeOfStruct must be set to:
// sizeof(SYMBOL_INFO) as C lays it out on amd64, i.e. the fixed fields up
// through MaxNameLen (84 bytes, counting the 4 padding bytes after Flags)
// plus the one-CHAR Name array, rounded up to 8-byte alignment. The
// larger inline Name buffer is announced through MaxNameLen instead.
const sizeOfSymbolInfoHead = 88

type moduleInfo struct {
	BaseOfDll   uintptr
	SizeOfImage uint32
	EntryPoint  uintptr
}

// SymbolResolver wraps a DbgHelp symbol handler bound to one target
// process, with an LRU cache of already-resolved names layered in front
// (a supplemental feature beyond the original tool, see SPEC_FULL.md's
// "Supplemental features" section; grounded on the hashicorp/golang-lru
// usage pattern, a cache-wrapped lookup keyed by string).
//
// Grounded on original_source/src/WindowsSymbolResolver.cpp.
type SymbolResolver struct {
	process     syscall.Handle
	initialized bool
	cache       *lru.Cache
	log         *logrus.Entry
}

// NewSymbolResolver initializes a DbgHelp symbol handler for process. If
// invadeProcess is false, hint (when non-nil and non-zero) or the first
// enumerated module is loaded explicitly instead of DbgHelp indexing the
// whole process (spec.md §4.1's non-invasive path). If invadeProcess is
// true, SymInitialize indexes every module mapped in the target and hint
// is ignored.
func NewSymbolResolver(process syscall.Handle, searchPath string, invadeProcess bool, hint *ModuleLoadHint) (*SymbolResolver, error) {
	if process == 0 {
		return nil, newSymbolError("process handle invalid (null)", nil)
	}

	procSymSetOptions.Call(uintptr(symRecommendedOpts))

	var pathPtr *uint16
	if searchPath != "" {
		p, err := syscall.UTF16PtrFromString(searchPath)
		if err != nil {
			return nil, newSymbolError("invalid search path", err)
		}
		pathPtr = p
	}

	invade := uintptr(0)
	if invadeProcess {
		invade = 1
	}
	if err := callBOOL(procSymInitialize, uintptr(process), uintptr(unsafe.Pointer(pathPtr)), invade); err != nil {
		return nil, newSymbolError("SymInitialize failed", err)
	}

	r := &SymbolResolver{process: process, initialized: true, log: SymbolsLogger()}
	cache, err := lru.New(256)
	if err != nil {
		r.Close()
		return nil, newSymbolError("failed to allocate symbol cache", err)
	}
	r.cache = cache

	if !invadeProcess {
		if err := r.loadModule(hint); err != nil {
			r.Close()
			return nil, err
		}
	}

	r.log.Debugf("initialized (invade=%t)", invadeProcess)
	return r, nil
}

func (r *SymbolResolver) loadModule(hint *ModuleLoadHint) error {
	if hint != nil && hint.ImageBase != 0 {
		var pathPtr *uint16
		if hint.ImagePath != "" {
			p, err := syscall.UTF16PtrFromString(hint.ImagePath)
			if err != nil {
				return newSymbolError("invalid module path", err)
			}
			pathPtr = p
		}
		if err := callBOOL(procSymLoadModuleExW, uintptr(r.process), 0, uintptr(unsafe.Pointer(pathPtr)), 0,
			uintptr(hint.ImageBase), uintptr(hint.ImageSize), 0, 0); err != nil {
			return newSymbolError("SymLoadModuleExW failed", err)
		}
		r.log.Debugf("loaded module from hint base=0x%x", hint.ImageBase)
		return nil
	}

	var bytesNeeded uint32
	if err := callBOOL(procEnumProcessModulesEx, uintptr(r.process), 0, 0, uintptr(unsafe.Pointer(&bytesNeeded)), listModulesAll); err != nil {
		return newSymbolError("EnumProcessModulesEx(size) failed", err)
	}
	if bytesNeeded < uint32(unsafe.Sizeof(uintptr(0))) {
		return newSymbolError("EnumProcessModulesEx returned no modules", nil)
	}

	count := int(bytesNeeded / uint32(unsafe.Sizeof(uintptr(0))))
	modules := make([]uintptr, count)
	if err := callBOOL(procEnumProcessModulesEx, uintptr(r.process), uintptr(unsafe.Pointer(&modules[0])), uintptr(bytesNeeded), uintptr(unsafe.Pointer(&bytesNeeded)), listModulesAll); err != nil {
		return newSymbolError("EnumProcessModulesEx(list) failed", err)
	}
	if len(modules) == 0 {
		return newSymbolError("EnumProcessModulesEx did not return any modules", nil)
	}

	hmod := modules[0]
	var pathBuf [syscall.MAX_PATH]uint16
	if err := callBOOL(procGetModuleFileNameExW, uintptr(r.process), hmod, uintptr(unsafe.Pointer(&pathBuf[0])), uintptr(len(pathBuf))); err != nil {
		return newSymbolError("GetModuleFileNameExW failed", err)
	}

	var mi moduleInfo
	if err := callBOOL(procGetModuleInformation, uintptr(r.process), hmod, uintptr(unsafe.Pointer(&mi)), uintptr(unsafe.Sizeof(mi))); err != nil {
		return newSymbolError("GetModuleInformation failed", err)
	}

	if err := callBOOL(procSymLoadModuleExW, uintptr(r.process), 0, uintptr(unsafe.Pointer(&pathBuf[0])), 0,
		uintptr(mi.BaseOfDll), uintptr(mi.SizeOfImage), 0, 0); err != nil {
		return newSymbolError("SymLoadModuleExW failed", err)
	}
	r.log.Debugf("loaded first enumerated module base=0x%x", mi.BaseOfDll)
	return nil
}

// Resolve looks up symbol (a bare name or "module!name"), returning its
// address, module base, and type size. Size outside [4, 8] is rejected
// per spec.md §4.1. Cache hits skip the DbgHelp round trip entirely.
func (r *SymbolResolver) Resolve(symbol string) (ResolvedSymbol, error) {
	if cached, ok := r.cache.Get(symbol); ok {
		return cached.(ResolvedSymbol), nil
	}

	// SymFromName natively understands "module!name" and restricts the
	// search to that module, so the full string is passed through
	// unsplit; splitQualifiedName exists for callers that need the parts
	// separately (e.g. diagnostics), not for this call site.
	namePtr, err := syscall.BytePtrFromString(symbol)
	if err != nil {
		return ResolvedSymbol{}, newSymbolError("invalid symbol name", err)
	}

	var info symbolInfo
	info.SizeOfStruct = sizeOfSymbolInfoHead
	info.MaxNameLen = maxSymbolNameLen

	if err := callBOOL(procSymFromName, uintptr(r.process), uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(&info))); err != nil {
		return ResolvedSymbol{}, newSymbolError(fmt.Sprintf("SymFromName(%q) failed", symbol), err)
	}

	var length uint64
	if err := callBOOL(procSymGetTypeInfo, uintptr(r.process), uintptr(info.ModBase), uintptr(info.TypeIndex), tiGetLength, uintptr(unsafe.Pointer(&length))); err != nil {
		return ResolvedSymbol{}, newSymbolError("SymGetTypeInfo(TI_GET_LENGTH) failed", err)
	}

	if !resolverSizeValid(int(length)) {
		return ResolvedSymbol{}, newSymbolError(fmt.Sprintf("symbol %q has size %d, outside [4, 8]", symbol, length), nil)
	}

	out := ResolvedSymbol{
		Name:       string(info.Name[:info.NameLen]),
		ModuleBase: info.ModBase,
		Address:    info.Address,
		Size:       int(length),
	}
	r.cache.Add(symbol, out)
	r.log.Debugf("resolved %q to addr=0x%x size=%d", symbol, out.Address, out.Size)
	return out, nil
}

// Close releases the DbgHelp symbol handler. Safe to call multiple times.
func (r *SymbolResolver) Close() {
	if r.initialized {
		_, _, _ = procSymCleanup.Call(uintptr(r.process))
		r.initialized = false
	}
}
