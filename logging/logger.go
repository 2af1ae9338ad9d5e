// Package logging opens the run log: a leveled, timestamped log written both to a file in
// the output directory and to the console.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// LogFileName is the name of the run log inside the output directory.
const LogFileName = "bdd_test.log"

const timeFormat = "2006-01-02 15:04:05"

// Sink is an open run log. Close must be called at the end of the run to flush the file.
type Sink struct {
	*log.Logger
	file *os.File
	path string
}

// Open creates outputDir if needed and returns a logger that writes to
// outputDir/bdd_test.log and to console. A nil console writes only to the file.
func Open(outputDir, level string, console io.Writer) (*Sink, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outputDir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(f, console)
	}
	return &Sink{Logger: New(w, lvl), file: f, path: path}, nil
}

// New returns a logger with the run log's format writing to w.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}

func (s *Sink) Path() string {
	return s.path
}

func (s *Sink) Close() error {
	return s.file.Close()
}

func parseLevel(level string) (log.Level, error) {
	if strings.TrimSpace(level) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
