package tracker

import (
	"testing"

	"lrc-engine/internal/lrc"
)

func sampleLines() []lrc.Line {
	lines, _ := lrc.Parse("[00:01.00]one\n[00:05.00]two\n[00:09.00]three\n")
	return lines
}

func TestUpdatePosition(t *testing.T) {
	tr := New()
	tr.Set(sampleLines())

	tests := []struct {
		pos  int64
		want int
	}{
		{0, -1},
		{1000, 0},
		{4999, 0},
		{5000, 1},
		{9000, 2},
		{13999, 2},
		{20000, 2},
		{500, -1},
	}
	for _, tt := range tests {
		tr.Update(tt.pos)
		if got := tr.Index(); got != tt.want {
			t.Errorf("Update(%d): expected index %d, got %d", tt.pos, tt.want, got)
		}
	}
}

func TestUpdateReportsChangesOnly(t *testing.T) {
	tr := New()
	tr.Set(sampleLines())

	if !tr.Update(1000) {
		t.Error("first move into a line should report a change")
	}
	if tr.Update(1500) {
		t.Error("moving within the same line should not report a change")
	}
	if !tr.Update(5000) {
		t.Error("moving to the next line should report a change")
	}
}

func TestCurrentAndClear(t *testing.T) {
	tr := New()
	if _, ok := tr.Current(); ok {
		t.Fatal("fresh tracker should have no current line")
	}

	tr.Set(sampleLines())
	tr.Update(6000)
	line, ok := tr.Current()
	if !ok || line.Content != "two" {
		t.Errorf("expected current line %q, got %+v (ok=%v)", "two", line, ok)
	}

	tr.Clear()
	if tr.Index() != -1 {
		t.Errorf("expected -1 after clear, got %d", tr.Index())
	}
	tr.Update(6000)
	if tr.Index() != -1 {
		t.Errorf("expected -1 with no lines, got %d", tr.Index())
	}
}

func TestLinesAround(t *testing.T) {
	lines, _ := lrc.Parse("[00:01.00]a\n[00:02.00]b\n[00:03.00]c\n[00:04.00]d\n[00:05.00]e\n")
	tr := New()
	tr.Set(lines)

	if got := tr.LinesAround(3); len(got) != 0 {
		t.Errorf("expected empty window without a current line, got %d", len(got))
	}

	tr.Update(1000)
	got := tr.LinesAround(1)
	if len(got) != 2 || got[0].Content != "a" || got[1].Content != "b" {
		t.Errorf("window at start clamped incorrectly: %+v", got)
	}

	tr.Update(3000)
	got = tr.LinesAround(3)
	if len(got) != 5 {
		t.Errorf("expected whole document, got %d lines", len(got))
	}

	got = tr.LinesAround(0)
	if len(got) != 1 || got[0].Content != "c" {
		t.Errorf("zero count should return just the current line, got %+v", got)
	}
}

func TestIndexAtUnresolvedLine(t *testing.T) {
	lines := []lrc.Line{{TimeMs: 1000, EndTimeMs: lrc.Unbounded, Content: "solo"}}
	if got := IndexAt(lines, 999); got != -1 {
		t.Errorf("expected -1 before start, got %d", got)
	}
	if got := IndexAt(lines, 1_000_000); got != 0 {
		t.Errorf("unbounded line should contain late positions, got %d", got)
	}
}

func TestIndexAtGapFallsBack(t *testing.T) {
	lines := []lrc.Line{
		{TimeMs: 1000, EndTimeMs: 2000, Content: "a"},
		{TimeMs: 5000, EndTimeMs: 6000, Content: "b"},
	}
	if got := IndexAt(lines, 3000); got != 0 {
		t.Errorf("position in gap should fall back to previous line, got %d", got)
	}
}

func TestLead(t *testing.T) {
	tr := New()
	tr.Set(sampleLines())
	tr.SetLead(100)
	tr.Update(4900)
	if tr.Index() != 1 {
		t.Errorf("lead should select the upcoming line, got %d", tr.Index())
	}
}
