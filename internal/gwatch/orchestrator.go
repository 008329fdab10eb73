package gwatch

// RunRequest bundles everything the orchestrator needs to drive one
// watch session end to end, independent of how the target is actually
// launched on this platform.
type RunRequest struct {
	Symbol string
	Launch LaunchConfig
	Config Config
	Logger AccessLogger
}

// lazySink defers creating the real MemoryWatcher until the first
// CreateProcess event delivers the information (process handle, image
// base) the symbol resolver needs. This replaces the original tool's
// eager "resolve before launch" ordering, which cannot work: the target's
// modules do not exist until CreateProcess fires. See SPEC_FULL.md's
// Open Question 1.
type lazySink struct {
	resolve func(hint ModuleLoadHint) (Sink, error)
	onError func(error)

	inner Sink
}

// newLazySink builds a Sink that does nothing until the first
// CreateProcess event, then calls resolve once to obtain the real Sink
// and delegates every event (including this first one) to it.
func newLazySink(resolve func(ModuleLoadHint) (Sink, error), onError func(error)) *lazySink {
	return &lazySink{resolve: resolve, onError: onError}
}

func (s *lazySink) OnEvent(ev DebugEvent) ContinueDecision {
	if s.inner == nil && ev.Kind == EventCreateProcess {
		sink, err := s.resolve(ModuleLoadHint{
			ImageBase: ev.CreateProcess.ImageBase,
			ImagePath: ev.CreateProcess.ImagePath,
		})
		if err != nil {
			s.onError(err)
			return NotHandled
		}
		s.inner = sink
	}
	if s.inner == nil {
		return Default
	}
	return s.inner.OnEvent(ev)
}
