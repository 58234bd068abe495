// Package output renders human-facing CLI results as framed sections.
package output

import (
	"os"
	"strconv"

	"github.com/bytehawks/distillery/src/target"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// RowStatus writes a row with label, detail, and a status icon.
func RowStatus(sec *Section, label, detail, status string, color bool) {
	icon := StatusIcon(status, color)
	if detail != "" {
		sec.Row("%-28s %s %s", label, detail, icon)
	} else {
		sec.Row("%-28s %s", label, icon)
	}
}

// Bold returns bold text if color is enabled.
func Bold(text string, color bool) string {
	if !color {
		return text
	}
	return colorBold + text + colorReset
}

// SectionAttempts renders one row per attempt of a resolution.
func SectionAttempts(sec *Section, log *target.AttemptLog, color bool) {
	if log == nil {
		return
	}
	for _, a := range log.Attempts {
		label := a.Target + " #" + strconv.Itoa(a.Number)
		if a.OK() {
			RowStatus(sec, label, Dimmed(formatElapsed(a.Duration), color), "success", color)
			continue
		}
		RowStatus(sec, label, string(a.Reason)+": "+a.Err.Error(), "failed", color)
	}
}

// SectionWarnings renders one row per warning, or nothing.
func SectionWarnings(sec *Section, warnings []string, color bool) {
	for _, w := range warnings {
		sec.Row("%s %s", StatusIcon("warning", color), w)
	}
}
