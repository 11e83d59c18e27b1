package logger

import (
	"github.com/fatih/color"
)

// colorScheme defines consistent colors for report output.
// Green: passing files and counts
// Red: failures
// Yellow: hints
// Dim: paths, counters and traces
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	dim     *color.Color
	bold    *color.Color
	banner  *color.Color
}

// newColorScheme creates the standard color scheme. When enabled is false
// every color renders plain text regardless of the terminal.
func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		dim:     color.New(color.Faint),
		bold:    color.New(color.Bold),
		banner:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{s.success, s.fail, s.warn, s.dim, s.bold, s.banner} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}
