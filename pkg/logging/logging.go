// Package logging builds the zerolog loggers used across kexbuild.
package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "DISABLED", "OFF":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a timestamped logger writing console format to console and,
// when file is non-nil, uncolored console format to file as well.
func New(level string, console io.Writer, file io.Writer) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
	}
	if file != nil {
		w = zerolog.MultiLevelWriter(w, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ForFormat builds the logger for a named format. JSON lines go to console
// and, when file is non-nil, to file as well; any other format is console.
func ForFormat(format, level string, console io.Writer, file io.Writer) zerolog.Logger {
	if strings.EqualFold(format, FormatJSON) {
		w := console
		if file != nil {
			w = zerolog.MultiLevelWriter(console, file)
		}
		return NewJSON(level, w)
	}
	return New(level, console, file)
}

// NewJSON returns a timestamped logger writing JSON lines to w.
func NewJSON(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}
