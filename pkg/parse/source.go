package parse

// Source describes a piece of source code to parse.
type Source struct {
	// Name of the source, usually a file path. Used in diagnostics.
	Name string
	// The source code itself.
	Code string
}

// SourceForTest returns a Source used for testing.
func SourceForTest(code string) Source {
	return Source{Name: "[test]", Code: code}
}
