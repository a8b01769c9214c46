package testutil

import "strings"

// Dedent removes the longest mix of spaces and tabs common to the start of
// every line in text. A leading newline is dropped and whitespace-only lines
// are blanked, so multiline raw strings can be written indented in test
// sources with the first line on its own line after the opening backtick.
func Dedent(text string) string {
	text = strings.TrimPrefix(text, "\n")
	lines := strings.Split(text, "\n")

	margin := ""
	found := false
	for i, line := range lines {
		rest := strings.TrimLeft(line, " \t")
		if rest == "" {
			lines[i] = ""
			continue
		}
		indent := line[:len(line)-len(rest)]
		switch {
		case !found:
			margin = indent
			found = true
		case strings.HasPrefix(indent, margin):
			// Deeper than the margin so far; keep it.
		case strings.HasPrefix(margin, indent):
			margin = indent
		default:
			margin = ""
		}
	}

	if margin != "" {
		for i, line := range lines {
			lines[i] = strings.TrimPrefix(line, margin)
		}
	}
	return strings.Join(lines, "\n")
}
