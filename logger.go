package rtuslave

import (
	"fmt"
	"os"
	"time"
)

// LeveledLogger is the logging port the engine writes through. An
// engine with no logger configured falls back to a logger that
// timestamps every line and writes to stdout/stderr. The engine logs
// frames dropped for length or CRC, and overlapping address spaces,
// at Warning, and driver failures (re-arm or transmit) at Error.
// Frames for another slave, configuration changes and the no-comm
// condition are not logged.
type LeveledLogger interface {
	Info(msg string)
	Infof(format string, args ...interface{})
	Warning(msg string)
	Warningf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
}

var _ LeveledLogger = (*logger)(nil)

type logger struct {
	prefix string
}

func newLogger(prefix string) *logger {
	return &logger{prefix: prefix}
}

func (l *logger) Info(msg string) {
	l.write(os.Stdout, "info", msg)
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.write(os.Stdout, "info", fmt.Sprintf(format, args...))
}

func (l *logger) Warning(msg string) {
	l.write(os.Stdout, "warn", msg)
}

func (l *logger) Warningf(format string, args ...interface{}) {
	l.write(os.Stdout, "warn", fmt.Sprintf(format, args...))
}

func (l *logger) Error(msg string) {
	l.write(os.Stderr, "error", msg)
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.write(os.Stderr, "error", fmt.Sprintf(format, args...))
}

func (l *logger) write(w *os.File, level, msg string) {
	fmt.Fprintf(w, "%s %s [%s]: %s\n", time.Now().Format(time.RFC3339Nano), l.prefix, level, msg)
}
