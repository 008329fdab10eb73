package gwatch

import "github.com/sirupsen/logrus"

// Diagnostic-logging toggles, one per subsystem, following the pattern
// of pkg/logflags/logflags.go: a package-level boolean plus a factory
// that returns a silenced logger when the subsystem's logging is off.
var (
	launcherLog bool
	watcherLog  bool
	symbolsLog  bool
)

// Setup enables or disables diagnostic logging for every subsystem. The
// CLI's --log flag calls this once before starting the debug loop.
func Setup(enabled bool) {
	launcherLog = enabled
	watcherLog = enabled
	symbolsLog = enabled
}

func makeLogger(enabled bool, fields logrus.Fields) *logrus.Entry {
	base := logrus.New()
	base.SetOutput(logrus.StandardLogger().Out)
	logger := base.WithFields(fields)
	if enabled {
		logger.Logger.Level = logrus.DebugLevel
	} else {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// LauncherLogger returns a logger for the process launcher subsystem.
func LauncherLogger() *logrus.Entry {
	return makeLogger(launcherLog, logrus.Fields{"layer": "launcher"})
}

// WatcherLogger returns a logger for the memory watcher subsystem.
func WatcherLogger() *logrus.Entry {
	return makeLogger(watcherLog, logrus.Fields{"layer": "watcher"})
}

// SymbolsLogger returns a logger for the symbol resolver subsystem.
func SymbolsLogger() *logrus.Entry {
	return makeLogger(symbolsLog, logrus.Fields{"layer": "symbols"})
}
