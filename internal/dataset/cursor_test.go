package dataset

import (
	"path/filepath"
	"testing"
)

func threeSampleStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, "x/a.wav", "x/b.wav", "x/c.wav")
	return buildSorted(t, root), root
}

func TestCursor_ForwardThenBackRoundTrips(t *testing.T) {
	s, _ := threeSampleStore(t)
	for start := 0; start < 2; start++ {
		c := NewCursor(s)
		for i := 0; i < start; i++ {
			c.StepForward()
		}
		if !c.StepForward() {
			t.Fatalf("StepForward at %d returned false", start)
		}
		if !c.StepBack() {
			t.Fatalf("StepBack at %d returned false", start+1)
		}
		if got := c.Position(); got != start {
			t.Errorf("position = %d, want %d", got, start)
		}
	}
}

func TestCursor_Boundaries(t *testing.T) {
	s, _ := threeSampleStore(t)
	c := NewCursor(s)

	if c.StepBack() {
		t.Error("StepBack at 0 returned true")
	}
	if c.Position() != 0 {
		t.Errorf("position = %d after StepBack at 0", c.Position())
	}

	c.StepForward()
	c.StepForward()
	if c.StepForward() {
		t.Error("StepForward at last index returned true")
	}
	if c.Position() != 2 {
		t.Errorf("position = %d, want 2", c.Position())
	}
}

func TestCursor_EmptyStore(t *testing.T) {
	c := NewCursor(buildSorted(t, t.TempDir()))

	if c.StepForward() {
		t.Error("StepForward on empty store returned true")
	}
	if c.StepBack() {
		t.Error("StepBack on empty store returned true")
	}
	if c.HasMore() {
		t.Error("HasMore on empty store returned true")
	}
	if _, ok := c.Current(); ok {
		t.Error("Current on empty store returned a sample")
	}
	if _, ok := c.Next(); ok {
		t.Error("Next on empty store returned a sample")
	}
}

func TestCursor_Seek(t *testing.T) {
	s, _ := threeSampleStore(t)
	c := NewCursor(s)

	tests := []struct {
		pos  int
		want bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{2, true},
		{3, false},
	}
	for _, tt := range tests {
		if got := c.Seek(tt.pos); got != tt.want {
			t.Errorf("Seek(%d) = %v, want %v", tt.pos, got, tt.want)
		}
	}
	if c.Position() != 2 {
		t.Errorf("position = %d, want 2 after last accepted seek", c.Position())
	}
}

func TestCursor_NextYieldsEverySampleOnce(t *testing.T) {
	s, _ := threeSampleStore(t)
	c := NewCursor(s)

	var got []string
	for c.HasMore() {
		sample, ok := c.Next()
		if !ok {
			t.Fatal("Next returned false while HasMore was true")
		}
		got = append(got, filepath.Base(sample))
	}
	want := []string{"a.wav", "b.wav", "c.wav"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("yield[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if _, ok := c.Next(); ok {
		t.Error("Next after end returned a sample")
	}
	if c.Position() != 3 {
		t.Errorf("position = %d, want 3 (exhausted)", c.Position())
	}
}

func TestCursor_MarkExhausted(t *testing.T) {
	s, _ := threeSampleStore(t)
	c := NewCursor(s)
	c.Next()
	c.MarkExhausted()

	if _, ok := c.Current(); ok {
		t.Error("Current after MarkExhausted returned a sample")
	}
	if c.HasMore() {
		t.Error("HasMore after MarkExhausted returned true")
	}
	if _, ok := c.Next(); ok {
		t.Error("Next after MarkExhausted returned a sample")
	}
}

func TestCursor_NavigationChoosesNextSample(t *testing.T) {
	s, _ := threeSampleStore(t)
	c := NewCursor(s)

	c.Next() // a
	c.StepForward()
	if got, _ := c.Next(); filepath.Base(got) != "b.wav" {
		t.Errorf("after StepForward Next = %s, want b.wav", got)
	}
	c.StepBack()
	if got, _ := c.Next(); filepath.Base(got) != "a.wav" {
		t.Errorf("after StepBack Next = %s, want a.wav", got)
	}
	if got, _ := c.Next(); filepath.Base(got) != "b.wav" {
		t.Errorf("Next = %s, want b.wav", got)
	}
}
