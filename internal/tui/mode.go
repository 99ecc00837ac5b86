package tui

import (
	"io"
	"os"
	"runtime"
	"strings"
)

// OutputMode describes how batch output is rendered.
type OutputMode int

const (
	// ModeTUI redraws the batch table while work runs.
	ModeTUI OutputMode = iota
	// ModePlain writes the finished table once.
	ModePlain
	// ModeJSON writes the job list as JSON.
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeJSON:
		return "json"
	default:
		return "plain"
	}
}

// DetectMode picks the output mode for out. JSON wins over everything and
// interactive output needs a terminal that is not "dumb".
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	if jsonOutput {
		return ModeJSON
	}
	if noProgress || !IsTerminal(out) {
		return ModePlain
	}
	return ModeTUI
}

// IsTerminal reports whether w is a character device with a usable TERM.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return false
		}
	}
	return true
}
