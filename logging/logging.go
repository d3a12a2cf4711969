// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/inconshreveable/log15"
)

// Options configure New.
type Options struct {
	Level  string // debug, info, warn, error, crit
	Format string // logfmt, terminal, json
	Writer io.Writer
}

// New returns a root logger writing to opts.Writer (stderr by default).
// Unknown levels fall back to info.
func New(opts Options) log15.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var format log15.Format
	switch strings.ToLower(opts.Format) {
	case "terminal", "term":
		format = log15.TerminalFormat()
	case "json":
		format = log15.JsonFormat()
	default:
		format = log15.LogfmtFormat()
	}

	lvl, err := log15.LvlFromString(strings.ToLower(opts.Level))
	if err != nil {
		lvl = log15.LvlInfo
	}

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, format)))
	return logger
}

// Discard returns a logger that drops everything.
func Discard() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l log15.Logger) log15.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
