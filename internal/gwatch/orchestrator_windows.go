//go:build windows

package gwatch

import (
	"fmt"
	"syscall"
)

// Run launches req.Launch.ExePath under debug attachment, resolves
// req.Symbol against the target's modules as soon as the OS delivers the
// first CreateProcess event, arms a hardware watchpoint on it, and pumps
// the debug loop until the target exits. Ties together ProcessLauncher,
// SymbolResolver, and MemoryWatcher per spec.md §4.4.
func Run(req RunRequest) (exitCode uint32, err error) {
	launcher := NewProcessLauncher()
	defer launcher.Close()

	if err := launcher.Launch(req.Launch); err != nil {
		return 1, err
	}

	invade := req.Config.Invade != nil && *req.Config.Invade
	noArm := req.Config.NoArm != nil && *req.Config.NoArm
	searchPath := req.Config.SearchPath

	// Resolver and watcher open their own query-information/vm-read
	// handle rather than reusing the launcher's full-rights handle, per
	// spec.md §4.4. It outlives the resolver (the watcher needs it for
	// the rest of the run) so it is closed here, once, on every exit path.
	var targetHandle syscall.Handle
	defer func() {
		if targetHandle != 0 {
			_ = closeHandle(targetHandle)
		}
	}()

	var firstErr error
	sink := newLazySink(
		func(hint ModuleLoadHint) (Sink, error) {
			h, err := openProcess(processQueryInformation|processVMRead, false, launcher.PID())
			if err != nil {
				return nil, fmt.Errorf("open process %d for symbol resolution and watching: %w", launcher.PID(), err)
			}
			targetHandle = h

			resolver, err := NewSymbolResolver(h, searchPath, invade, &hint)
			if err != nil {
				return nil, err
			}

			symbol, err := resolver.Resolve(req.Symbol)
			resolver.Close()
			if err != nil {
				return nil, fmt.Errorf("resolve symbol %q in %q (check the binary was built with a PDB and that the symbol's type is 4 or 8 bytes wide): %w", req.Symbol, req.Launch.ExePath, err)
			}

			watcher, err := NewMemoryWatcher(h, symbol, noArm, req.Logger)
			if err != nil {
				return nil, err
			}

			return watcher, nil
		},
		func(e error) { firstErr = e },
	)

	code, err := launcher.RunDebugLoop(sink)
	if err != nil {
		return 1, err
	}
	if firstErr != nil {
		return 1, firstErr
	}

	return exitCodeOrDefault(code), nil
}
