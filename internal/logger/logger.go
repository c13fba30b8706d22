// Package logger provides leveled logging for the clt daemon and CLI.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	level  = InfoLevel
	stdlog = log.New(os.Stderr, "", log.LstdFlags)
)

// Init sets the level of the package-wide logger. Unknown level names fall
// back to info.
func Init(name string) {
	switch strings.ToLower(name) {
	case "debug":
		level = DebugLevel
	case "info":
		level = InfoLevel
	case "warn":
		level = WarnLevel
	case "error":
		level = ErrorLevel
	default:
		level = InfoLevel
	}
}

func output(l Level, tag, format string, args ...any) {
	if level > l {
		return
	}
	_ = stdlog.Output(3, fmt.Sprintf(tag+" "+format, args...))
}

func Debug(format string, args ...any) { output(DebugLevel, "[DEBUG]", format, args...) }

func Info(format string, args ...any) { output(InfoLevel, "[INFO]", format, args...) }

func Warn(format string, args ...any) { output(WarnLevel, "[WARN]", format, args...) }

func Error(format string, args ...any) { output(ErrorLevel, "[ERROR]", format, args...) }
