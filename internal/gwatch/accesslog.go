package gwatch

import (
	"fmt"
	"io"
)

// StdAccessLogger writes the fixed access-log format of spec.md §6
// directly to an io.Writer, deliberately bypassing the structured
// diagnostic logger: the wire format is a contract, not a log line, so
// it is not routed through logrus (see SPEC_FULL.md, "Logging").
type StdAccessLogger struct {
	w io.Writer
}

// NewStdAccessLogger wraps w (os.Stdout in production) as an AccessLogger.
func NewStdAccessLogger(w io.Writer) *StdAccessLogger {
	return &StdAccessLogger{w: w}
}

// LogRead writes "<symbol> read <value>".
func (l *StdAccessLogger) LogRead(symbol string, value uint64) {
	fmt.Fprintf(l.w, "%s read %d\n", symbol, value)
}

// LogWrite writes "<symbol> write <old> -> <new>".
func (l *StdAccessLogger) LogWrite(symbol string, oldValue, newValue uint64) {
	fmt.Fprintf(l.w, "%s write %d -> %d\n", symbol, oldValue, newValue)
}
