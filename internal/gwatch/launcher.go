package gwatch

// launchState tracks the launcher lifecycle described in spec.md §4.2:
// Fresh -> Launched -> Running -> Terminated. Launch moves Fresh straight
// to Running (via Launched); Stop or an ExitProcess event move Running to
// Terminated. Re-launching from any non-Fresh state is an error.
type launchState int

const (
	stateFresh launchState = iota
	stateLaunched
	stateRunning
	stateTerminated
)

func (s launchState) String() string {
	switch s {
	case stateFresh:
		return "Fresh"
	case stateLaunched:
		return "Launched"
	case stateRunning:
		return "Running"
	case stateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// exitCodeOrDefault implements the "defaulting to 0 if the OS did not
// provide one" rule of spec.md §4.4.
func exitCodeOrDefault(exitCode *uint32) uint32 {
	if exitCode == nil {
		return 0
	}
	return *exitCode
}

// creationFlags picks DEBUG_PROCESS vs DEBUG_ONLY_THIS_PROCESS (and the
// optional new-console / suspended flags) the way spec.md §4.2 describes.
// Kept as a pure function, separate from the Windows CreateProcess call
// itself, so the flag-selection policy is unit-testable.
func creationFlags(cfg LaunchConfig) (debugFlag, newConsole, suspended bool) {
	return cfg.DebugChildren, cfg.NewConsole, cfg.Suspended
}
