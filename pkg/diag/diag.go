// Package diag implements the diagnostics the compiler reports against source
// documents: source ranges, error and warning records, and the sink that
// collects them across compiler stages.
package diag

import "fmt"

// Level classifies a diagnostic.
type Level int

// Possible values for Level.
const (
	Error Level = iota
	Warning
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Diag is a diagnostic: a leveled message attached to a range of source text.
// It implements the error interface so an isolated diagnostic can travel as an
// ordinary error value.
type Diag struct {
	Level   Level
	Message string
	Context Context
}

// Error returns a plain text representation of the diagnostic.
func (d *Diag) Error() string {
	return fmt.Sprintf("%s: %d-%d in %s: %s",
		d.Level, d.Context.From, d.Context.To, d.Context.Name, d.Message)
}

// Range returns the range of the diagnostic.
func (d *Diag) Range() Ranging {
	return d.Context.Range()
}

// Show renders the diagnostic with an ANSI-colored header followed by the
// source excerpt.
func (d *Diag) Show(indent string) string {
	color := "31;1"
	if d.Level == Warning {
		color = "33;1"
	}
	header := fmt.Sprintf("\033[%sm%s:\033[m %s\n", color, d.Level, d.Message)
	return header + indent + "  " + d.Context.Show(indent+"  ")
}
