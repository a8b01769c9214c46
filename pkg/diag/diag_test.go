package diag

import (
	"strings"
	"testing"
)

func TestDiagError(t *testing.T) {
	d := &Diag{Error, "bad thing", *NewContext("file.vel", "abc", Ranging{1, 2})}
	want := "error: 1-2 in file.vel: bad thing"
	if got := d.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestContextShow(t *testing.T) {
	c := NewContext("a.vel", "first\nsecond\nthird", Ranging{6, 12})
	show := c.Show("")
	if !strings.Contains(show, "line 2:") {
		t.Errorf("Show() = %q, want line 2 mentioned", show)
	}
	if !strings.Contains(show, "second") {
		t.Errorf("Show() = %q, want culprit text included", show)
	}
}

func TestContextLineRange(t *testing.T) {
	c := NewContext("a.vel", "one\ntwo\nthree\n", Ranging{4, 13})
	begin, end := c.LineRange()
	if begin != 2 || end != 3 {
		t.Errorf("LineRange() = %d, %d, want 2, 3", begin, end)
	}
}

func TestSinkOrderAndLevels(t *testing.T) {
	src := "some source text"
	var s Sink
	s.Errorf("f.vel", src, Ranging{10, 11}, "later error")
	s.Warnf("f.vel", src, Ranging{2, 3}, "early warning")
	if !s.HasError() {
		t.Errorf("HasError() = false, want true")
	}
	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(all))
	}
	if all[0].Message != "early warning" || all[1].Message != "later error" {
		t.Errorf("All() not in source order: %v, %v", all[0].Message, all[1].Message)
	}
}

func TestSinkGroupsByFile(t *testing.T) {
	src := "some source text"
	var s Sink
	s.Errorf("main.vel", src, Ranging{0, 1}, "main early")
	s.Errorf("lib.vel", src, Ranging{5, 6}, "lib late")
	s.Errorf("lib.vel", src, Ranging{1, 2}, "lib early")
	s.Errorf("main.vel", src, Ranging{8, 9}, "main late")
	var got []string
	for _, d := range s.All() {
		got = append(got, d.Message)
	}
	want := []string{"lib early", "lib late", "main early", "main late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All() order = %v, want %v", got, want)
		}
	}
}

func TestSinkWithoutErrors(t *testing.T) {
	var s Sink
	s.Warnf("f.vel", "x", Ranging{0, 1}, "just a warning")
	if s.HasError() {
		t.Errorf("HasError() = true, want false")
	}
}
